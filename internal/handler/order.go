package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// checkout handles POST /checkout: the one-way, atomic conversion of an
// active cart into an order.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req order.CheckoutRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "cart_id":
			req.CartID, err = decInt64(d)
		case "delivery_method":
			req.DeliveryMethod, err = decString(d)
		case "payment_method":
			req.PaymentMethod, err = decString(d)
		case "customer_name":
			req.CustomerName, err = decString(d)
		case "customer_mobile":
			req.CustomerMobile, err = decString(d)
		case "shipping_amount":
			req.ShippingAmount, err = decDecimal(d)
		case "tax_amount":
			req.TaxAmount, err = decDecimal(d)
		case "notes":
			req.Notes, err = decString(d)
		case "promocode_id":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var id int64
			id, err = decInt64(d)
			if err == nil && id != 0 {
				req.PromoCodeID = &id
			}
		case "address":
			req.Address, err = decString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orders.Checkout(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Checkout complete")
	e.FieldStart("order_id")
	e.Int64(o.ID)
	e.FieldStart("order")
	encodeOrder(&e, o)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// updateOrderStatus handles PUT /orders-admain/{id}/status (administrator).
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			status, err = decString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), pathID(r, "id"), order.Status(status))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Order status updated")
	e.FieldStart("order")
	encodeOrder(&e, o)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// listOrders handles GET /orders-admain (administrator), newest first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOrderList(w, orders)
}

// listShopperOrders handles GET /users/{guest_id}/orders.
func (h *Handler) listShopperOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByShopper(r.Context(), chi.URLParam(r, "guest_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOrderList(w, orders)
}

// orderDetails handles GET /orders/{id}/details: the order plus its frozen
// item snapshots.
func (h *Handler) orderDetails(w http.ResponseWriter, r *http.Request) {
	d, err := h.orders.Details(r.Context(), pathID(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order")
	encodeOrder(&e, d.Order)
	e.FieldStart("items")
	e.ArrStart()
	for i := range d.Items {
		encodeOrderItem(&e, &d.Items[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func writeOrderList(w http.ResponseWriter, orders []order.Order) {
	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}
