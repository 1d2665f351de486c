//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutFlow(t *testing.T) {
	guest := "guest-checkout-flow"

	// Two lines: 2 x 30.00 + 1 x 40.00 = 100.00.
	resp := doPost(t, "/cart_items", map[string]any{
		"guest_user_id":  guest,
		"product_id":     1,
		"size_label":     "M",
		"quantity":       2,
		"price_per_unit": "30.00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cartID := int64(decodeJSON[map[string]any](t, resp)["cart_id"].(float64))

	resp = doPost(t, "/cart_items", map[string]any{
		"guest_user_id":  guest,
		"product_id":     2,
		"size_label":     "L",
		"quantity":       1,
		"price_per_unit": "40.00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	promoID := createPromo(t, "CHECKOUT10", 10)
	resp = doPost(t, fmt.Sprintf("/cart/%d/apply-promocode", cartID), map[string]any{
		"promo_code":    "CHECKOUT10",
		"guest_user_id": guest,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doPost(t, "/checkout", map[string]any{
		"cart_id":         cartID,
		"payment_method":  "card",
		"delivery_method": "delivery",
		"customer_name":   "Sam Shopper",
		"customer_mobile": "+15550001111",
		"shipping_amount": "5.00",
		"tax_amount":      "2.50",
		"promocode_id":    promoID,
		"address":         "1 Main St",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "Checkout complete", body["message"])
	orderID := int64(body["order_id"].(float64))
	require.NotZero(t, orderID)

	o := body["order"].(map[string]any)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "100.00", o["subtotal_before_promo"])
	assert.Equal(t, "90.00", o["subtotal_after_promo"])
	assert.Equal(t, "97.50", o["total_price"])
	assert.Equal(t, float64(promoID), o["promocode_id"])

	// The cart is retired: no active cart, and a second checkout fails.
	resp = doGet(t, "/cart/user/"+guest)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doPost(t, "/checkout", map[string]any{"cart_id": cartID})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Cart not found or already checked out",
		decodeJSON[map[string]any](t, resp)["error"])

	// Order details carry frozen snapshots with product names.
	resp = doGet(t, fmt.Sprintf("/orders/%d/details", orderID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	details := decodeJSON[map[string]any](t, resp)
	items := details["items"].([]any)
	require.Len(t, items, 2)
	names := map[string]bool{}
	for _, it := range items {
		names[it.(map[string]any)["product_name"].(string)] = true
	}
	assert.True(t, names["Classic Crewneck T-Shirt"])
	assert.True(t, names["Zip-Up Hoodie"])

	// The shopper's order history includes the new order.
	resp = doGet(t, "/users/"+guest+"/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decodeJSON[[]map[string]any](t, resp)
	require.NotEmpty(t, orders)
	assert.Equal(t, float64(orderID), orders[0]["id"])

	// The promo is consumed: applying it again is rejected.
	cartID2 := buildCart(t, guest, "10.00", 1)
	resp = doPost(t, fmt.Sprintf("/cart/%d/apply-promocode", cartID2), map[string]any{
		"promo_code":    "CHECKOUT10",
		"guest_user_id": guest,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You have already used this promo code",
		decodeJSON[map[string]any](t, resp)["error"])
}

func TestCheckoutWithoutPromo(t *testing.T) {
	guest := "guest-checkout-plain"
	cartID := buildCart(t, guest, "12.00", 3) // 36.00

	resp := doPost(t, "/checkout", map[string]any{
		"cart_id":         cartID,
		"payment_method":  "cash",
		"delivery_method": "pickup",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	o := decodeJSON[map[string]any](t, resp)["order"].(map[string]any)
	assert.Equal(t, "36.00", o["subtotal_before_promo"])
	assert.Equal(t, "36.00", o["subtotal_after_promo"])
	assert.Equal(t, "36.00", o["total_price"])
	assert.Nil(t, o["promocode_id"])
}

func TestCheckoutUnusablePromo(t *testing.T) {
	guest := "guest-checkout-badpromo"
	cartID := buildCart(t, guest, "10.00", 1)

	// A code the shopper never applied cannot be consumed at checkout.
	promoID := createPromo(t, "NEVERAPPLIED", 10)
	resp := doPost(t, "/checkout", map[string]any{
		"cart_id":      cartID,
		"promocode_id": promoID,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Promo code is not valid or already used",
		decodeJSON[map[string]any](t, resp)["error"])
}

func TestCheckoutErrors(t *testing.T) {
	t.Run("missing cart id", func(t *testing.T) {
		resp := doPost(t, "/checkout", map[string]any{})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields", decodeJSON[map[string]any](t, resp)["error"])
	})

	t.Run("unknown cart", func(t *testing.T) {
		resp := doPost(t, "/checkout", map[string]any{"cart_id": 999999})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Cart not found or already checked out",
			decodeJSON[map[string]any](t, resp)["error"])
	})
}

func TestOrderAdministration(t *testing.T) {
	guest := "guest-order-admin"
	cartID := buildCart(t, guest, "22.00", 1)

	resp := doPost(t, "/checkout", map[string]any{"cart_id": cartID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orderID := int64(decodeJSON[map[string]any](t, resp)["order_id"].(float64))

	// Admin listing includes the order.
	resp = doGet(t, "/orders-admain")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decodeJSON[[]map[string]any](t, resp)
	found := false
	for _, o := range orders {
		if int64(o["id"].(float64)) == orderID {
			found = true
		}
	}
	assert.True(t, found)

	// Status moves freely within the vocabulary.
	for _, status := range []string{"confirmed", "shipped", "delivered"} {
		resp = doPut(t, fmt.Sprintf("/orders-admain/%d/status", orderID), map[string]any{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		o := decodeJSON[map[string]any](t, resp)["order"].(map[string]any)
		assert.Equal(t, status, o["status"])
	}

	// Values outside the vocabulary are rejected.
	resp = doPut(t, fmt.Sprintf("/orders-admain/%d/status", orderID), map[string]any{"status": "teleported"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid status value", decodeJSON[map[string]any](t, resp)["error"])

	resp = doGet(t, "/orders/999999/details")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Order not found", decodeJSON[map[string]any](t, resp)["error"])
}
