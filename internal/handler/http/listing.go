package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
)

// ListingService builds the home page product list.
type ListingService interface {
	Products(ctx context.Context) ([]domain.ListedProduct, error)
}

// NotificationFeed hands out pending shopper notifications.
type NotificationFeed interface {
	Drain() []domain.Notification
}

// StorefrontHandler serves the product listing and notification endpoints.
type StorefrontHandler struct {
	listing ListingService
	feed    NotificationFeed
	logger  *slog.Logger
}

// NewStorefrontHandler creates a storefront handler.
func NewStorefrontHandler(listing ListingService, feed NotificationFeed, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{listing: listing, feed: feed, logger: logger}
}

// ListProducts handles GET /api/v1/products
func (h *StorefrontHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.listing.Products(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// DrainNotifications handles GET /api/v1/notifications. Each notification is
// returned once.
func (h *StorefrontHandler) DrainNotifications(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.feed.Drain())
}
