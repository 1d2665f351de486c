package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

// addCartItem handles POST /cart_items: resolve the shopper's active cart and
// insert or increment the (product, size) line.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var p cart.AddItemParams
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "guest_user_id":
			p.ShopperID, err = decString(d)
		case "cart_id":
			p.CartID, err = decInt64(d)
		case "product_id":
			p.ProductID, err = decInt64(d)
		case "size_label":
			p.SizeLabel, err = decString(d)
		case "quantity":
			var q int64
			q, err = decInt64(d)
			p.Quantity = int(q)
		case "price_per_unit":
			p.PricePerUnit, err = decDecimal(d)
		case "notes":
			p.Notes, err = decString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.carts.AddItem(r.Context(), p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	msg := "Item added"
	if res.Item.Quantity != p.Quantity {
		msg = "Item updated"
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str(msg)
	e.FieldStart("cart_id")
	e.Int64(res.CartID)
	e.FieldStart("item")
	encodeCartItem(&e, res.Item)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// activeCart handles GET /cart/user/{guest_id}.
func (h *Handler) activeCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.ActiveCart(r.Context(), chi.URLParam(r, "guest_id"))
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No active cart")
			return
		}
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

// removeCartItem handles DELETE /cart_items/delete. Removing the last item
// deletes the cart and signals the client to clear any pending promotion.
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	var cartID, productID int64
	var sizeLabel string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "cart_id":
			cartID, err = decInt64(d)
		case "product_id":
			productID, err = decInt64(d)
		case "size_label":
			sizeLabel, err = decString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.carts.RemoveItem(r.Context(), cartID, productID, sizeLabel)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	if res.CartDeleted {
		e.Str("Item deleted and cart removed")
		e.FieldStart("promoShouldClear")
		e.Bool(true)
	} else {
		e.Str("Item deleted")
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// updateQuantity handles PUT /cart_items/update.
func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var cartID, productID, quantity int64
	var sizeLabel string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "cart_id":
			cartID, err = decInt64(d)
		case "product_id":
			productID, err = decInt64(d)
		case "size_label":
			sizeLabel, err = decString(d)
		case "quantity":
			quantity, err = decInt64(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.carts.UpdateQuantity(r.Context(), cartID, productID, sizeLabel, int(quantity))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Quantity updated")
	e.FieldStart("item")
	encodeCartItem(&e, item)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// listCartItems handles GET /cart/{cart_id}/items.
func (h *Handler) listCartItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.Items(r.Context(), pathID(r, "cart_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range items {
		encodeCartItemView(&e, &items[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}
