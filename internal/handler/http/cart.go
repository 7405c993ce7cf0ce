package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartService is the cart store as seen by the HTTP layer.
type CartService interface {
	Cart() domain.Cart
	AddProduct(ctx context.Context, productID int)
	RemoveProduct(ctx context.Context, productID int)
	UpdateProductAmount(ctx context.Context, in domain.UpdateProductAmount)
}

// CartHandler serves the cart endpoints. Cart operations never fail from the
// caller's point of view: they answer with the resulting cart and any problem
// is delivered as a notification.
type CartHandler struct {
	cart   CartService
	logger *slog.Logger
}

// NewCartHandler creates a cart handler.
func NewCartHandler(cart CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, logger: logger}
}

// --- Request DTOs ---

// AddProductRequest is the body of POST /api/v1/cart/items.
type AddProductRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

// UpdateAmountRequest is the body of PUT /api/v1/cart/items/{productId}.
// Zero and negative amounts are accepted and ignored by the cart.
type UpdateAmountRequest struct {
	Amount *int `json:"amount" validate:"required"`
}

// --- Response DTOs ---

// CartLine is a cart line with its subtotal.
type CartLine struct {
	domain.Product
	Subtotal float64 `json:"subtotal"`
}

// CartResponse is the cart as returned by every cart endpoint.
type CartResponse struct {
	Items     []CartLine `json:"items"`
	ItemCount int        `json:"item_count"`
	Total     float64    `json:"total"`
}

func newCartResponse(c domain.Cart) CartResponse {
	lines := make([]CartLine, len(c))
	for i, p := range c {
		lines[i] = CartLine{Product: p, Subtotal: p.Subtotal()}
	}
	return CartResponse{Items: lines, ItemCount: c.ItemCount(), Total: c.Total()}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, newCartResponse(h.cart.Cart()))
}

// AddProduct handles POST /api/v1/cart/items
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cart.AddProduct(r.Context(), req.ProductID)
	httputil.WriteData(w, http.StatusOK, newCartResponse(h.cart.Cart()))
}

// UpdateProductAmount handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateProductAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIntParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req UpdateAmountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cart.UpdateProductAmount(r.Context(), domain.UpdateProductAmount{ProductID: productID, Amount: *req.Amount})
	httputil.WriteData(w, http.StatusOK, newCartResponse(h.cart.Cart()))
}

// RemoveProduct handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIntParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	h.cart.RemoveProduct(r.Context(), productID)
	httputil.WriteData(w, http.StatusOK, newCartResponse(h.cart.Cart()))
}
