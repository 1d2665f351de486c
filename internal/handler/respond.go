package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/promo"
)

const maxBodyBytes = 1 << 20

// errBadBody covers unreadable or malformed JSON request bodies.
var errBadBody = errors.New("invalid request body")

// writeJSON renders the encoder's buffer with the given status code.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders the wire error shape: {"error": "..."}.
func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// respondError maps domain errors to the contract's status codes and
// messages. Unrecognized errors are logged and surfaced as 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, cart.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "Quantity must be > 0")
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Cart item not found")
	case errors.Is(err, cart.ErrNotFound):
		writeError(w, http.StatusNotFound, "Cart not found")
	case errors.Is(err, promo.ErrMissingCode):
		writeError(w, http.StatusBadRequest, "Promo code is required")
	case errors.Is(err, promo.ErrNotFound):
		writeError(w, http.StatusNotFound, "Promo code not found or inactive")
	case errors.Is(err, promo.ErrInactive):
		writeError(w, http.StatusBadRequest, "Promo code is inactive")
	case errors.Is(err, promo.ErrExpired):
		writeError(w, http.StatusBadRequest, "Promo code is expired")
	case errors.Is(err, promo.ErrAlreadyUsed):
		writeError(w, http.StatusBadRequest, "You have already used this promo code")
	case errors.Is(err, promo.ErrInvalidStatus), errors.Is(err, order.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status value")
	case errors.Is(err, promo.ErrInvalidDiscount):
		writeError(w, http.StatusBadRequest, "Discount must be a percentage between 0 and 100")
	case errors.Is(err, order.ErrMissingCart):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, order.ErrCartNotFound):
		writeError(w, http.StatusNotFound, "Cart not found or already checked out")
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Cart is empty")
	case errors.Is(err, order.ErrPromoNotFound):
		writeError(w, http.StatusBadRequest, "Promo code not found")
	case errors.Is(err, order.ErrPromoNotUsable):
		writeError(w, http.StatusBadRequest, "Promo code is not valid or already used")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody reads the request body and walks its top-level object, passing
// each key to fn. Unknown keys must be skipped by fn.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return errBadBody
	}
	d := jx.DecodeBytes(data)
	if err := d.Obj(fn); err != nil {
		return errBadBody
	}
	return nil
}

// decString decodes a string field, tolerating null.
func decString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decInt64 decodes an integer field sent as a number or a numeric string,
// tolerating null.
func decInt64(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return parseInt64(s), nil
	default:
		return d.Int64()
	}
}

// decDecimal decodes a monetary field sent as a number or a numeric string,
// tolerating null.
func decDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, nil
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, errBadBody
		}
		return v, nil
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, errBadBody
		}
		return v, nil
	}
}

// decTime decodes an optional timestamp sent as RFC 3339 or a plain date.
func decTime(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			return &t, nil
		}
	}
	return nil, errBadBody
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// money renders a NUMERIC amount the way the wire contract expects: a fixed
// two-decimal string.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

// --- Entity encoders ---

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("guest_user_id")
	e.Str(c.ShopperID)
	e.FieldStart("status")
	e.Str(string(c.Status))
	e.FieldStart("total_price")
	money(e, c.TotalPrice)
	e.FieldStart("created_at")
	e.Str(c.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeCartItem(e *jx.Encoder, it *cart.Item) {
	e.ObjStart()
	encodeCartItemFields(e, it)
	e.ObjEnd()
}

func encodeCartItemFields(e *jx.Encoder, it *cart.Item) {
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("cart_id")
	e.Int64(it.CartID)
	e.FieldStart("product_id")
	e.Int64(it.ProductID)
	e.FieldStart("size_label")
	e.Str(it.SizeLabel)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("price_per_unit")
	money(e, it.PricePerUnit)
	e.FieldStart("total_price")
	money(e, it.TotalPrice)
	e.FieldStart("notes")
	e.Str(it.Notes)
}

func encodeCartItemView(e *jx.Encoder, v *cart.ItemView) {
	e.ObjStart()
	encodeCartItemFields(e, &v.Item)
	e.FieldStart("product_name")
	e.Str(v.ProductName)
	e.FieldStart("product_image")
	e.Str(v.ProductImage)
	e.FieldStart("category_name")
	e.Str(v.CategoryName)
	e.ObjEnd()
}

func encodePromo(e *jx.Encoder, c *promo.Code) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("discount_amount")
	e.Float64(c.DiscountPercent.InexactFloat64())
	e.FieldStart("status")
	e.Str(string(c.Status))
	e.FieldStart("end_date")
	if c.EndDate != nil {
		e.Str(c.EndDate.Format(time.RFC3339))
	} else {
		e.Null()
	}
	e.FieldStart("created_at")
	e.Str(c.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("cart_id")
	e.Int64(o.CartID)
	e.FieldStart("guest_user_id")
	e.Str(o.ShopperID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("payment_method")
	e.Str(o.PaymentMethod)
	e.FieldStart("delivery_method")
	e.Str(o.DeliveryMethod)
	e.FieldStart("customer_name")
	e.Str(o.CustomerName)
	e.FieldStart("customer_mobile")
	e.Str(o.CustomerMobile)
	e.FieldStart("shipping_amount")
	money(e, o.ShippingAmount)
	e.FieldStart("tax_amount")
	money(e, o.TaxAmount)
	e.FieldStart("subtotal_before_promo")
	money(e, o.SubtotalBeforePromo)
	e.FieldStart("subtotal_after_promo")
	money(e, o.SubtotalAfterPromo)
	e.FieldStart("total_price")
	money(e, o.TotalPrice)
	e.FieldStart("promocode_id")
	if o.PromoCodeID != nil {
		e.Int64(*o.PromoCodeID)
	} else {
		e.Null()
	}
	e.FieldStart("address")
	e.Str(o.Address)
	e.FieldStart("notes")
	e.Str(o.Notes)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeOrderItem(e *jx.Encoder, it *order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("order_id")
	e.Int64(it.OrderID)
	e.FieldStart("product_id")
	e.Int64(it.ProductID)
	e.FieldStart("product_name")
	e.Str(it.ProductName)
	e.FieldStart("size_label")
	e.Str(it.SizeLabel)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("price_per_unit")
	money(e, it.PricePerUnit)
	e.FieldStart("total_price")
	money(e, it.TotalPrice)
	e.ObjEnd()
}
