package remote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

const tracerName = "github.com/utafrali/storefront/internal/remote"

// CircuitOpenFallback replaces the breaker's raw ErrCircuitOpen with a
// structured unavailable error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("storefront API is temporarily unavailable")
}

type baseClient struct {
	doer    httpclient.Doer
	baseURL string
	service string
}

func newBaseClient(doer httpclient.Doer, baseURL, service string) baseClient {
	return baseClient{doer: doer, baseURL: strings.TrimRight(baseURL, "/"), service: service}
}

// get fetches path into dst inside a client span named after op.
func (c baseClient) get(ctx context.Context, op, path string, dst any, attrs ...attribute.KeyValue) (err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, c.service+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs,
			attribute.String("peer.service", c.service),
			attribute.String("url.path", path),
		)...),
	)
	defer func() { tracing.EndSpan(span, err) }()

	return httpclient.GetJSON(ctx, c.doer, c.baseURL+path, c.service, dst)
}

// StockClient queries the stock service. Results are never cached.
type StockClient struct {
	baseClient
}

// NewStockClient creates a stock client rooted at baseURL.
func NewStockClient(doer httpclient.Doer, baseURL string) *StockClient {
	return &StockClient{newBaseClient(doer, baseURL, "stock")}
}

// Stock returns the available quantity for productID.
func (c *StockClient) Stock(ctx context.Context, productID int) (domain.Stock, error) {
	var stock domain.Stock
	if err := c.get(ctx, "Stock", "/stock/"+strconv.Itoa(productID), &stock,
		attribute.Int("product.id", productID)); err != nil {
		return domain.Stock{}, fmt.Errorf("get stock for product %d: %w", productID, err)
	}
	return stock, nil
}

// CatalogClient queries the catalog service.
type CatalogClient struct {
	baseClient
}

// NewCatalogClient creates a catalog client rooted at baseURL.
func NewCatalogClient(doer httpclient.Doer, baseURL string) *CatalogClient {
	return &CatalogClient{newBaseClient(doer, baseURL, "catalog")}
}

// Product returns one product's metadata.
func (c *CatalogClient) Product(ctx context.Context, productID int) (domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	if err := c.get(ctx, "Product", "/products/"+strconv.Itoa(productID), &p,
		attribute.Int("product.id", productID)); err != nil {
		return domain.CatalogProduct{}, fmt.Errorf("get product %d: %w", productID, err)
	}
	return p, nil
}

// Products returns the full catalog.
func (c *CatalogClient) Products(ctx context.Context) ([]domain.CatalogProduct, error) {
	var products []domain.CatalogProduct
	if err := c.get(ctx, "Products", "/products", &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.CatalogProduct{}
	}
	return products, nil
}
