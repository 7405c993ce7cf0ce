package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// TracerName names the server spans created for API requests.
const TracerName = "github.com/utafrali/storefront/internal/handler/http"

// RouterDeps bundles what the router serves.
type RouterDeps struct {
	Cart          CartService
	Listing       ListingService
	Notifications NotificationFeed
	Health        *health.Handler
	CORS          middleware.CORSConfig
	Logger        *slog.Logger

	// RateLimitRPS caps API requests per second; zero disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Tracing(TracerName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(deps.CORS))

	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(deps.Cart, logger)
	storefrontHandler := NewStorefrontHandler(deps.Listing, deps.Notifications, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst, logger))
		r.Use(ContentTypeJSON)

		r.Get("/cart", cartHandler.GetCart)
		r.Post("/cart/items", cartHandler.AddProduct)
		r.Put("/cart/items/{productId}", cartHandler.UpdateProductAmount)
		r.Delete("/cart/items/{productId}", cartHandler.RemoveProduct)

		r.Get("/products", storefrontHandler.ListProducts)
		r.Get("/notifications", storefrontHandler.DrainNotifications)
	})

	return r
}
