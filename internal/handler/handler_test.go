package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/promo"
)

type mockCartService struct {
	addItem        func(ctx context.Context, p cart.AddItemParams) (*cart.AddItemResult, error)
	removeItem     func(ctx context.Context, cartID, productID int64, sizeLabel string) (*cart.RemoveItemResult, error)
	updateQuantity func(ctx context.Context, cartID, productID int64, sizeLabel string, quantity int) (*cart.Item, error)
	activeCart     func(ctx context.Context, shopperID string) (*cart.Cart, error)
	items          func(ctx context.Context, cartID int64) ([]cart.ItemView, error)
}

func (m *mockCartService) AddItem(ctx context.Context, p cart.AddItemParams) (*cart.AddItemResult, error) {
	return m.addItem(ctx, p)
}

func (m *mockCartService) RemoveItem(ctx context.Context, cartID, productID int64, sizeLabel string) (*cart.RemoveItemResult, error) {
	return m.removeItem(ctx, cartID, productID, sizeLabel)
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, cartID, productID int64, sizeLabel string, quantity int) (*cart.Item, error) {
	return m.updateQuantity(ctx, cartID, productID, sizeLabel, quantity)
}

func (m *mockCartService) ActiveCart(ctx context.Context, shopperID string) (*cart.Cart, error) {
	return m.activeCart(ctx, shopperID)
}

func (m *mockCartService) Items(ctx context.Context, cartID int64) ([]cart.ItemView, error) {
	return m.items(ctx, cartID)
}

type mockPromoService struct {
	createCode    func(ctx context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*promo.Code, error)
	listCodes     func(ctx context.Context) ([]promo.Code, error)
	previewApply  func(ctx context.Context, cartID int64, codeText, shopperID string) (*promo.Preview, error)
	removePending func(ctx context.Context, shopperID string) error
	setStatus     func(ctx context.Context, id int64, status promo.Status) (*promo.Code, error)
	updateCode    func(ctx context.Context, id int64, p promo.UpdateParams) (*promo.Code, error)
	deleteCode    func(ctx context.Context, id int64) (*promo.Code, error)
}

func (m *mockPromoService) CreateCode(ctx context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*promo.Code, error) {
	return m.createCode(ctx, code, percent, endDate)
}

func (m *mockPromoService) ListCodes(ctx context.Context) ([]promo.Code, error) {
	return m.listCodes(ctx)
}

func (m *mockPromoService) PreviewApply(ctx context.Context, cartID int64, codeText, shopperID string) (*promo.Preview, error) {
	return m.previewApply(ctx, cartID, codeText, shopperID)
}

func (m *mockPromoService) RemovePending(ctx context.Context, shopperID string) error {
	return m.removePending(ctx, shopperID)
}

func (m *mockPromoService) SetStatus(ctx context.Context, id int64, status promo.Status) (*promo.Code, error) {
	return m.setStatus(ctx, id, status)
}

func (m *mockPromoService) UpdateCode(ctx context.Context, id int64, p promo.UpdateParams) (*promo.Code, error) {
	return m.updateCode(ctx, id, p)
}

func (m *mockPromoService) DeleteCode(ctx context.Context, id int64) (*promo.Code, error) {
	return m.deleteCode(ctx, id)
}

type mockOrderService struct {
	checkout      func(ctx context.Context, req order.CheckoutRequest) (*order.Order, error)
	updateStatus  func(ctx context.Context, id int64, status order.Status) (*order.Order, error)
	list          func(ctx context.Context) ([]order.Order, error)
	listByShopper func(ctx context.Context, shopperID string) ([]order.Order, error)
	details       func(ctx context.Context, id int64) (*order.Details, error)
}

func (m *mockOrderService) Checkout(ctx context.Context, req order.CheckoutRequest) (*order.Order, error) {
	return m.checkout(ctx, req)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	return m.updateStatus(ctx, id, status)
}

func (m *mockOrderService) List(ctx context.Context) ([]order.Order, error) {
	return m.list(ctx)
}

func (m *mockOrderService) ListByShopper(ctx context.Context, shopperID string) ([]order.Order, error) {
	return m.listByShopper(ctx, shopperID)
}

func (m *mockOrderService) Details(ctx context.Context, id int64) (*order.Details, error) {
	return m.details(ctx, id)
}

func newTestServer(t *testing.T, carts CartService, promos PromoService, orders OrderService) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(carts, promos, orders).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAddCartItem(t *testing.T) {
	t.Run("added", func(t *testing.T) {
		carts := &mockCartService{
			addItem: func(_ context.Context, p cart.AddItemParams) (*cart.AddItemResult, error) {
				assert.Equal(t, "guest-1", p.ShopperID)
				assert.Equal(t, int64(7), p.ProductID)
				assert.Equal(t, "M", p.SizeLabel)
				assert.Equal(t, 2, p.Quantity)
				assert.True(t, p.PricePerUnit.Equal(decimal.RequireFromString("9.50")))
				return &cart.AddItemResult{
					CartID: 3,
					Item: &cart.Item{
						ID: 11, CartID: 3, ProductID: 7, SizeLabel: "M",
						Quantity: 2, PricePerUnit: p.PricePerUnit,
						TotalPrice: decimal.RequireFromString("19.00"),
					},
				}, nil
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart_items",
			`{"guest_user_id":"guest-1","product_id":7,"size_label":"M","quantity":2,"price_per_unit":"9.50"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Item added", body["message"])
		assert.Equal(t, float64(3), body["cart_id"])
		item := body["item"].(map[string]any)
		assert.Equal(t, "19.00", item["total_price"])
	})

	t.Run("incremented reports update", func(t *testing.T) {
		carts := &mockCartService{
			addItem: func(_ context.Context, p cart.AddItemParams) (*cart.AddItemResult, error) {
				return &cart.AddItemResult{
					CartID: 3,
					Item: &cart.Item{
						ID: 11, CartID: 3, ProductID: 7, SizeLabel: "M",
						Quantity: 5, PricePerUnit: p.PricePerUnit,
						TotalPrice: decimal.RequireFromString("47.50"),
					},
				}, nil
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart_items",
			`{"guest_user_id":"guest-1","product_id":7,"size_label":"M","quantity":2,"price_per_unit":"9.50"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Item updated", body["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		carts := &mockCartService{
			addItem: func(_ context.Context, _ cart.AddItemParams) (*cart.AddItemResult, error) {
				return nil, cart.ErrMissingFields
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart_items", `{"guest_user_id":"guest-1"}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields", body["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer(t, &mockCartService{}, nil, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart_items", `{"broken`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields", body["error"])
	})
}

func TestActiveCart(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		carts := &mockCartService{
			activeCart: func(_ context.Context, shopperID string) (*cart.Cart, error) {
				assert.Equal(t, "guest-1", shopperID)
				return &cart.Cart{
					ID: 3, ShopperID: "guest-1", Status: cart.StatusActive,
					TotalPrice: decimal.RequireFromString("19.00"),
					CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodGet, srv.URL+"/cart/user/guest-1", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(3), body["id"])
		assert.Equal(t, "active", body["status"])
		assert.Equal(t, "19.00", body["total_price"])
	})

	t.Run("no active cart", func(t *testing.T) {
		carts := &mockCartService{
			activeCart: func(_ context.Context, _ string) (*cart.Cart, error) {
				return nil, cart.ErrNotFound
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodGet, srv.URL+"/cart/user/guest-1", "")

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "No active cart", body["error"])
	})
}

func TestRemoveCartItem(t *testing.T) {
	t.Run("cart survives", func(t *testing.T) {
		carts := &mockCartService{
			removeItem: func(_ context.Context, cartID, productID int64, sizeLabel string) (*cart.RemoveItemResult, error) {
				assert.Equal(t, int64(3), cartID)
				assert.Equal(t, int64(7), productID)
				assert.Equal(t, "M", sizeLabel)
				return &cart.RemoveItemResult{}, nil
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodDelete, srv.URL+"/cart_items/delete",
			`{"cart_id":3,"product_id":7,"size_label":"M"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Item deleted", body["message"])
		_, ok := body["promoShouldClear"]
		assert.False(t, ok)
	})

	t.Run("last item removes cart", func(t *testing.T) {
		carts := &mockCartService{
			removeItem: func(_ context.Context, _, _ int64, _ string) (*cart.RemoveItemResult, error) {
				return &cart.RemoveItemResult{CartDeleted: true}, nil
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodDelete, srv.URL+"/cart_items/delete",
			`{"cart_id":3,"product_id":7,"size_label":"M"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Item deleted and cart removed", body["message"])
		assert.Equal(t, true, body["promoShouldClear"])
	})
}

func TestUpdateQuantity(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		carts := &mockCartService{
			updateQuantity: func(_ context.Context, cartID, productID int64, sizeLabel string, quantity int) (*cart.Item, error) {
				assert.Equal(t, 4, quantity)
				return &cart.Item{
					ID: 11, CartID: cartID, ProductID: productID, SizeLabel: sizeLabel,
					Quantity: quantity, PricePerUnit: decimal.RequireFromString("9.50"),
					TotalPrice: decimal.RequireFromString("38.00"),
				}, nil
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodPut, srv.URL+"/cart_items/update",
			`{"cart_id":3,"product_id":7,"size_label":"M","quantity":4}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Quantity updated", body["message"])
		item := body["item"].(map[string]any)
		assert.Equal(t, float64(4), item["quantity"])
		assert.Equal(t, "38.00", item["total_price"])
	})

	t.Run("zero quantity", func(t *testing.T) {
		carts := &mockCartService{
			updateQuantity: func(_ context.Context, _, _ int64, _ string, _ int) (*cart.Item, error) {
				return nil, cart.ErrInvalidQuantity
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodPut, srv.URL+"/cart_items/update",
			`{"cart_id":3,"product_id":7,"size_label":"M","quantity":0}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Quantity must be > 0", body["error"])
	})

	t.Run("item missing", func(t *testing.T) {
		carts := &mockCartService{
			updateQuantity: func(_ context.Context, _, _ int64, _ string, _ int) (*cart.Item, error) {
				return nil, cart.ErrItemNotFound
			},
		}
		srv := newTestServer(t, carts, nil, nil)

		resp, body := doJSON(t, http.MethodPut, srv.URL+"/cart_items/update",
			`{"cart_id":3,"product_id":99,"size_label":"M","quantity":4}`)

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Cart item not found", body["error"])
	})
}

func TestApplyPromo(t *testing.T) {
	t.Run("applied pending", func(t *testing.T) {
		promos := &mockPromoService{
			previewApply: func(_ context.Context, cartID int64, codeText, shopperID string) (*promo.Preview, error) {
				assert.Equal(t, int64(3), cartID)
				assert.Equal(t, "SAVE10", codeText)
				assert.Equal(t, "guest-1", shopperID)
				return &promo.Preview{
					CodeID:          5,
					DiscountPercent: decimal.NewFromInt(10),
					DiscountAmount:  decimal.RequireFromString("10.00"),
					NewTotal:        decimal.RequireFromString("90.00"),
				}, nil
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart/3/apply-promocode",
			`{"promo_code":"SAVE10","guest_user_id":"guest-1"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Promo code applied (pending)", body["message"])
		assert.Equal(t, "10.00", body["discount_amount"])
		assert.Equal(t, float64(10), body["discount_percentage"])
		assert.Equal(t, float64(5), body["promocode_id"])
		assert.Equal(t, "90.00", body["new_total"])
	})

	t.Run("unknown code", func(t *testing.T) {
		promos := &mockPromoService{
			previewApply: func(_ context.Context, _ int64, _, _ string) (*promo.Preview, error) {
				return nil, promo.ErrNotFound
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart/3/apply-promocode",
			`{"promo_code":"NOPE","guest_user_id":"guest-1"}`)

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Promo code not found or inactive", body["error"])
	})

	t.Run("expired code", func(t *testing.T) {
		promos := &mockPromoService{
			previewApply: func(_ context.Context, _ int64, _, _ string) (*promo.Preview, error) {
				return nil, promo.ErrExpired
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart/3/apply-promocode",
			`{"promo_code":"OLD","guest_user_id":"guest-1"}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Promo code is expired", body["error"])
	})

	t.Run("already used", func(t *testing.T) {
		promos := &mockPromoService{
			previewApply: func(_ context.Context, _ int64, _, _ string) (*promo.Preview, error) {
				return nil, promo.ErrAlreadyUsed
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart/3/apply-promocode",
			`{"promo_code":"SAVE10","guest_user_id":"guest-1"}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "You have already used this promo code", body["error"])
	})
}

func TestRemovePromo(t *testing.T) {
	var gotShopper string
	promos := &mockPromoService{
		removePending: func(_ context.Context, shopperID string) error {
			gotShopper = shopperID
			return nil
		},
	}
	srv := newTestServer(t, nil, promos, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/cart/3/remove-promocode",
		`{"guest_user_id":"guest-1"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Promo code removed", body["message"])
	assert.Equal(t, "guest-1", gotShopper)
}

func TestCreatePromo(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
		promos := &mockPromoService{
			createCode: func(_ context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*promo.Code, error) {
				assert.Equal(t, "SAVE10", code)
				assert.True(t, percent.Equal(decimal.NewFromInt(10)))
				require.NotNil(t, endDate)
				assert.True(t, endDate.Equal(end))
				return &promo.Code{
					ID: 5, Code: code, DiscountPercent: percent,
					Status: promo.StatusActive, EndDate: endDate,
					CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/promocode",
			`{"code":"SAVE10","discount_amount":10,"end_date":"2025-12-31"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Promo code created", body["message"])
		p := body["promo"].(map[string]any)
		assert.Equal(t, "SAVE10", p["code"])
		assert.Equal(t, float64(10), p["discount_amount"])
		assert.Equal(t, "active", p["status"])
	})

	t.Run("discount out of range", func(t *testing.T) {
		promos := &mockPromoService{
			createCode: func(_ context.Context, _ string, _ decimal.Decimal, _ *time.Time) (*promo.Code, error) {
				return nil, promo.ErrInvalidDiscount
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/promocode",
			`{"code":"SAVE200","discount_amount":200}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Discount must be a percentage between 0 and 100", body["error"])
	})
}

func TestSetPromoStatus(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		promos := &mockPromoService{
			setStatus: func(_ context.Context, id int64, status promo.Status) (*promo.Code, error) {
				assert.Equal(t, int64(5), id)
				assert.Equal(t, promo.StatusInactive, status)
				return &promo.Code{
					ID: 5, Code: "SAVE10",
					DiscountPercent: decimal.NewFromInt(10),
					Status:          promo.StatusInactive,
					CreatedAt:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPut, srv.URL+"/promocode/5/status",
			`{"status":"inactive"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Promo code status updated to 'inactive'", body["message"])
	})

	t.Run("unknown status", func(t *testing.T) {
		promos := &mockPromoService{
			setStatus: func(_ context.Context, _ int64, _ promo.Status) (*promo.Code, error) {
				return nil, promo.ErrInvalidStatus
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodPut, srv.URL+"/promocode/5/status",
			`{"status":"banana"}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid status value", body["error"])
	})
}

func TestUpdatePromo(t *testing.T) {
	promos := &mockPromoService{
		updateCode: func(_ context.Context, id int64, p promo.UpdateParams) (*promo.Code, error) {
			assert.Equal(t, int64(5), id)
			require.NotNil(t, p.EndDate)
			require.NotNil(t, p.DiscountPercent)
			assert.True(t, p.DiscountPercent.Equal(decimal.NewFromInt(15)))
			return &promo.Code{
				ID: 5, Code: "SAVE10",
				DiscountPercent: *p.DiscountPercent,
				Status:          promo.StatusActive,
				EndDate:         p.EndDate,
				CreatedAt:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	srv := newTestServer(t, nil, promos, nil)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/promocode/5",
		`{"end_date":"2026-01-31","discount_amount":15}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Promo updated successfully", body["message"])
	p := body["promo"].(map[string]any)
	assert.Equal(t, float64(15), p["discount_amount"])
}

func TestDeletePromo(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		promos := &mockPromoService{
			deleteCode: func(_ context.Context, id int64) (*promo.Code, error) {
				assert.Equal(t, int64(5), id)
				return &promo.Code{
					ID: 5, Code: "SAVE10",
					DiscountPercent: decimal.NewFromInt(10),
					Status:          promo.StatusActive,
					CreatedAt:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodDelete, srv.URL+"/promocode/5", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Promo code deleted successfully", body["message"])
	})

	t.Run("missing", func(t *testing.T) {
		promos := &mockPromoService{
			deleteCode: func(_ context.Context, _ int64) (*promo.Code, error) {
				return nil, promo.ErrNotFound
			},
		}
		srv := newTestServer(t, nil, promos, nil)

		resp, body := doJSON(t, http.MethodDelete, srv.URL+"/promocode/99", "")

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Promo code not found or inactive", body["error"])
	})
}

func TestCheckout(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		orders := &mockOrderService{
			checkout: func(_ context.Context, req order.CheckoutRequest) (*order.Order, error) {
				assert.Equal(t, int64(3), req.CartID)
				assert.Equal(t, "card", req.PaymentMethod)
				assert.Equal(t, "delivery", req.DeliveryMethod)
				require.NotNil(t, req.PromoCodeID)
				assert.Equal(t, int64(5), *req.PromoCodeID)
				promoID := int64(5)
				return &order.Order{
					ID: 42, CartID: 3, ShopperID: "guest-1",
					Status: order.StatusPending, PaymentMethod: "card", DeliveryMethod: "delivery",
					ShippingAmount:      decimal.RequireFromString("5.00"),
					TaxAmount:           decimal.RequireFromString("2.00"),
					SubtotalBeforePromo: decimal.RequireFromString("100.00"),
					SubtotalAfterPromo:  decimal.RequireFromString("90.00"),
					TotalPrice:          decimal.RequireFromString("97.00"),
					PromoCodeID:         &promoID,
					CreatedAt:           time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		srv := newTestServer(t, nil, nil, orders)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/checkout",
			`{"cart_id":3,"payment_method":"card","delivery_method":"delivery","shipping_amount":"5.00","tax_amount":"2.00","promocode_id":5}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Checkout complete", body["message"])
		assert.Equal(t, float64(42), body["order_id"])
		o := body["order"].(map[string]any)
		assert.Equal(t, "pending", o["status"])
		assert.Equal(t, "100.00", o["subtotal_before_promo"])
		assert.Equal(t, "90.00", o["subtotal_after_promo"])
		assert.Equal(t, "97.00", o["total_price"])
	})

	t.Run("cart already checked out", func(t *testing.T) {
		orders := &mockOrderService{
			checkout: func(_ context.Context, _ order.CheckoutRequest) (*order.Order, error) {
				return nil, order.ErrCartNotFound
			},
		}
		srv := newTestServer(t, nil, nil, orders)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/checkout", `{"cart_id":3}`)

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Cart not found or already checked out", body["error"])
	})

	t.Run("empty cart", func(t *testing.T) {
		orders := &mockOrderService{
			checkout: func(_ context.Context, _ order.CheckoutRequest) (*order.Order, error) {
				return nil, order.ErrEmptyCart
			},
		}
		srv := newTestServer(t, nil, nil, orders)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/checkout", `{"cart_id":3}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Cart is empty", body["error"])
	})

	t.Run("unusable promo", func(t *testing.T) {
		orders := &mockOrderService{
			checkout: func(_ context.Context, _ order.CheckoutRequest) (*order.Order, error) {
				return nil, order.ErrPromoNotUsable
			},
		}
		srv := newTestServer(t, nil, nil, orders)

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/checkout", `{"cart_id":3,"promocode_id":5}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Promo code is not valid or already used", body["error"])
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := &mockOrderService{
		updateStatus: func(_ context.Context, id int64, status order.Status) (*order.Order, error) {
			assert.Equal(t, int64(42), id)
			assert.Equal(t, order.StatusShipped, status)
			return &order.Order{ID: 42, Status: status, CreatedAt: time.Now()}, nil
		},
	}
	srv := newTestServer(t, nil, nil, orders)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/orders-admain/42/status",
		`{"status":"shipped"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Order status updated", body["message"])
	o := body["order"].(map[string]any)
	assert.Equal(t, "shipped", o["status"])
}

func TestOrderDetails(t *testing.T) {
	orders := &mockOrderService{
		details: func(_ context.Context, id int64) (*order.Details, error) {
			assert.Equal(t, int64(42), id)
			return &order.Details{
				Order: &order.Order{
					ID: 42, CartID: 3, ShopperID: "guest-1", Status: order.StatusPending,
					TotalPrice: decimal.RequireFromString("97.00"),
					CreatedAt:  time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
				},
				Items: []order.Item{
					{
						ID: 1, OrderID: 42, ProductID: 7, ProductName: "Hoodie",
						SizeLabel: "M", Quantity: 2,
						PricePerUnit: decimal.RequireFromString("9.50"),
						TotalPrice:   decimal.RequireFromString("19.00"),
					},
				},
			}, nil
		},
	}
	srv := newTestServer(t, nil, nil, orders)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/42/details", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	o := body["order"].(map[string]any)
	assert.Equal(t, float64(42), o["id"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "Hoodie", first["product_name"])
	assert.Equal(t, "19.00", first["total_price"])
}

func TestListShopperOrders(t *testing.T) {
	orders := &mockOrderService{
		listByShopper: func(_ context.Context, shopperID string) ([]order.Order, error) {
			assert.Equal(t, "guest-1", shopperID)
			return []order.Order{
				{ID: 43, ShopperID: shopperID, Status: order.StatusDelivered, CreatedAt: time.Now()},
				{ID: 42, ShopperID: shopperID, Status: order.StatusPending, CreatedAt: time.Now()},
			}, nil
		},
	}
	srv := newTestServer(t, nil, nil, orders)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/users/guest-1/orders", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, float64(43), list[0]["id"])
	assert.Equal(t, float64(42), list[1]["id"])
}

func TestListPromos(t *testing.T) {
	promos := &mockPromoService{
		listCodes: func(_ context.Context) ([]promo.Code, error) {
			return []promo.Code{
				{ID: 5, Code: "SAVE10", DiscountPercent: decimal.NewFromInt(10), Status: promo.StatusActive, CreatedAt: time.Now()},
				{ID: 6, Code: "OLD", DiscountPercent: decimal.NewFromInt(20), Status: promo.StatusExpired, CreatedAt: time.Now()},
			}, nil
		},
	}
	srv := newTestServer(t, nil, promos, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/promocodes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "SAVE10", list[0]["code"])
	assert.Equal(t, "expired", list[1]["status"])
}
