package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/promo"
)

// applyPromo handles POST /cart/{cart_id}/apply-promocode. The response is a
// preview: the cart's stored total is not changed.
func (h *Handler) applyPromo(w http.ResponseWriter, r *http.Request) {
	var codeText, shopperID string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "promo_code":
			codeText, err = decString(d)
		case "guest_user_id":
			shopperID, err = decString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.promos.PreviewApply(r.Context(), pathID(r, "cart_id"), codeText, shopperID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Promo code applied (pending)")
	e.FieldStart("discount_amount")
	money(&e, p.DiscountAmount)
	e.FieldStart("discount_percentage")
	e.Float64(p.DiscountPercent.InexactFloat64())
	e.FieldStart("promocode_id")
	e.Int64(p.CodeID)
	e.FieldStart("new_total")
	money(&e, p.NewTotal)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// removePromo handles POST /cart/{cart_id}/remove-promocode. Idempotent.
func (h *Handler) removePromo(w http.ResponseWriter, r *http.Request) {
	var shopperID string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "guest_user_id":
			shopperID, err = decString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.promos.RemovePending(r.Context(), shopperID); err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Promo code removed")
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// createPromo handles POST /promocode (administrator).
func (h *Handler) createPromo(w http.ResponseWriter, r *http.Request) {
	var code string
	var percent decimal.Decimal
	var endDate *time.Time
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = decString(d)
		case "discount_amount":
			percent, err = decDecimal(d)
		case "end_date":
			endDate, err = decTime(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.promos.CreateCode(r.Context(), code, percent, endDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Promo code created")
	e.FieldStart("promo")
	encodePromo(&e, c)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// listPromos handles GET /promocodes. Overdue active codes are expired before
// the list is returned.
func (h *Handler) listPromos(w http.ResponseWriter, r *http.Request) {
	codes, err := h.promos.ListCodes(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range codes {
		encodePromo(&e, &codes[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// updatePromo handles PUT /promocode/{id} (administrator). Moving the end
// date into the future reactivates an expired code.
func (h *Handler) updatePromo(w http.ResponseWriter, r *http.Request) {
	var p promo.UpdateParams
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "end_date":
			if d.Next() == jx.Null {
				p.ClearEndDate = true
				return d.Null()
			}
			p.EndDate, err = decTime(d)
		case "status":
			var s string
			s, err = decString(d)
			if err == nil && s != "" {
				status := promo.Status(s)
				p.Status = &status
			}
		case "discount_amount":
			var v decimal.Decimal
			v, err = decDecimal(d)
			if err == nil {
				p.DiscountPercent = &v
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.promos.UpdateCode(r.Context(), pathID(r, "id"), p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Promo updated successfully")
	e.FieldStart("promo")
	encodePromo(&e, c)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// setPromoStatus handles PUT /promocode/{id}/status (administrator).
func (h *Handler) setPromoStatus(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.promos.SetStatus(r.Context(), pathID(r, "id"), promo.Status(status))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str(fmt.Sprintf("Promo code status updated to '%s'", c.Status))
	e.FieldStart("promo")
	encodePromo(&e, c)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// deletePromo handles DELETE /promocode/{id} (administrator).
func (h *Handler) deletePromo(w http.ResponseWriter, r *http.Request) {
	c, err := h.promos.DeleteCode(r.Context(), pathID(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Promo code deleted successfully")
	e.FieldStart("promo")
	encodePromo(&e, c)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
