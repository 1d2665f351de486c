// Package handler exposes the cart, promotion, and checkout workflow over
// HTTP/JSON. Routing is chi, bodies are encoded and decoded with jx, and
// domain errors are mapped to the wire contract's status codes and messages.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/promo"
)

// CartService is the cart manager surface the handler needs.
type CartService interface {
	AddItem(ctx context.Context, p cart.AddItemParams) (*cart.AddItemResult, error)
	RemoveItem(ctx context.Context, cartID, productID int64, sizeLabel string) (*cart.RemoveItemResult, error)
	UpdateQuantity(ctx context.Context, cartID, productID int64, sizeLabel string, quantity int) (*cart.Item, error)
	ActiveCart(ctx context.Context, shopperID string) (*cart.Cart, error)
	Items(ctx context.Context, cartID int64) ([]cart.ItemView, error)
}

// PromoService is the promotion engine surface the handler needs.
type PromoService interface {
	CreateCode(ctx context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*promo.Code, error)
	ListCodes(ctx context.Context) ([]promo.Code, error)
	PreviewApply(ctx context.Context, cartID int64, codeText, shopperID string) (*promo.Preview, error)
	RemovePending(ctx context.Context, shopperID string) error
	SetStatus(ctx context.Context, id int64, status promo.Status) (*promo.Code, error)
	UpdateCode(ctx context.Context, id int64, p promo.UpdateParams) (*promo.Code, error)
	DeleteCode(ctx context.Context, id int64) (*promo.Code, error)
}

// OrderService is the checkout orchestrator surface the handler needs.
type OrderService interface {
	Checkout(ctx context.Context, req order.CheckoutRequest) (*order.Order, error)
	UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error)
	List(ctx context.Context) ([]order.Order, error)
	ListByShopper(ctx context.Context, shopperID string) ([]order.Order, error)
	Details(ctx context.Context, id int64) (*order.Details, error)
}

// Handler wires the domain services to the HTTP surface.
type Handler struct {
	carts  CartService
	promos PromoService
	orders OrderService
}

// New constructs a Handler with the required domain services.
func New(carts CartService, promos PromoService, orders OrderService) *Handler {
	return &Handler{carts: carts, promos: promos, orders: orders}
}

// Routes returns the router for the full HTTP surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Cart manager.
	r.Post("/cart_items", h.addCartItem)
	r.Get("/cart/user/{guest_id}", h.activeCart)
	r.Delete("/cart_items/delete", h.removeCartItem)
	r.Put("/cart_items/update", h.updateQuantity)
	r.Get("/cart/{cart_id}/items", h.listCartItems)

	// Promotion engine.
	r.Post("/cart/{cart_id}/apply-promocode", h.applyPromo)
	r.Post("/cart/{cart_id}/remove-promocode", h.removePromo)
	r.Post("/promocode", h.createPromo)
	r.Get("/promocodes", h.listPromos)
	r.Put("/promocode/{id}", h.updatePromo)
	r.Put("/promocode/{id}/status", h.setPromoStatus)
	r.Delete("/promocode/{id}", h.deletePromo)

	// Checkout orchestrator.
	r.Post("/checkout", h.checkout)
	r.Put("/orders-admain/{id}/status", h.updateOrderStatus)
	r.Get("/orders-admain", h.listOrders)
	r.Get("/users/{guest_id}/orders", h.listShopperOrders)
	r.Get("/orders/{id}/details", h.orderDetails)

	return r
}

// pathID parses the named chi URL parameter as an int64, returning 0 when the
// parameter is absent or malformed.
func pathID(r *http.Request, name string) int64 {
	return parseInt64(chi.URLParam(r, name))
}
