package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ============================================================================
// Mocks
// ============================================================================

type mockCart struct {
	mock.Mock
}

func (m *mockCart) Cart() domain.Cart {
	args := m.Called()
	return args.Get(0).(domain.Cart)
}

func (m *mockCart) AddProduct(ctx context.Context, productID int) {
	m.Called(ctx, productID)
}

func (m *mockCart) RemoveProduct(ctx context.Context, productID int) {
	m.Called(ctx, productID)
}

func (m *mockCart) UpdateProductAmount(ctx context.Context, in domain.UpdateProductAmount) {
	m.Called(ctx, in)
}

type mockListing struct {
	mock.Mock
}

func (m *mockListing) Products(ctx context.Context) ([]domain.ListedProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ListedProduct), args.Error(1)
}

type stubFeed struct {
	pending []domain.Notification
}

func (f *stubFeed) Drain() []domain.Notification {
	out := f.pending
	f.pending = []domain.Notification{}
	return out
}

// ============================================================================
// Helpers
// ============================================================================

func testRouter(cart CartService, listing ListingService, feed NotificationFeed) http.Handler {
	return NewRouter(RouterDeps{
		Cart:          cart,
		Listing:       listing,
		Notifications: feed,
		Health:        health.NewHandler(),
		CORS:          middleware.DefaultCORSConfig(),
		Logger:        slog.New(slog.DiscardHandler),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type cartEnvelope struct {
	Data  CartResponse            `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeCart(t *testing.T, rr *httptest.ResponseRecorder) cartEnvelope {
	t.Helper()
	var env cartEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func twoLines() domain.Cart {
	return domain.Cart{
		{ID: 1, Title: "Tênis A", Price: 100, Image: "a", Amount: 2},
		{ID: 2, Title: "Tênis B", Price: 50, Image: "b", Amount: 1},
	}
}

// ============================================================================
// Cart endpoints
// ============================================================================

func TestGetCart(t *testing.T) {
	cart := new(mockCart)
	cart.On("Cart").Return(twoLines())

	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodGet, "/api/v1/cart", "")

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeCart(t, rr)
	assert.Nil(t, env.Error)
	assert.Equal(t, 3, env.Data.ItemCount)
	assert.InDelta(t, 250.0, env.Data.Total, 1e-9)
	require.Len(t, env.Data.Items, 2)
	assert.InDelta(t, 200.0, env.Data.Items[0].Subtotal, 1e-9)
	assert.Equal(t, "Tênis A", env.Data.Items[0].Title)
}

func TestGetCart_EmptyCartHasEmptyItems(t *testing.T) {
	cart := new(mockCart)
	cart.On("Cart").Return(domain.Cart{})

	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodGet, "/api/v1/cart", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"items":[],"item_count":0,"total":0}}`, rr.Body.String())
}

func TestAddProduct(t *testing.T) {
	cart := new(mockCart)
	cart.On("AddProduct", mock.Anything, 2).Once()
	cart.On("Cart").Return(twoLines())

	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodPost, "/api/v1/cart/items", `{"product_id":2}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decodeCart(t, rr).Data.ItemCount)
	cart.AssertExpectations(t)
}

func TestAddProduct_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"product_id":`, "INVALID_INPUT"},
		{"missing id", `{}`, "VALIDATION_ERROR"},
		{"negative id", `{"product_id":-1}`, "VALIDATION_ERROR"},
		{"unknown field", `{"product_id":1,"qty":2}`, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := new(mockCart)
			rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodPost, "/api/v1/cart/items", tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			env := decodeCart(t, rr)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			cart.AssertNotCalled(t, "AddProduct", mock.Anything, mock.Anything)
		})
	}
}

func TestAddProduct_RejectsNonJSONContentType(t *testing.T) {
	cart := new(mockCart)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`product_id=1`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	testRouter(cart, new(mockListing), &stubFeed{}).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestUpdateProductAmount(t *testing.T) {
	cart := new(mockCart)
	cart.On("UpdateProductAmount", mock.Anything, domain.UpdateProductAmount{ProductID: 1, Amount: 5}).Once()
	cart.On("Cart").Return(twoLines())

	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodPut, "/api/v1/cart/items/1", `{"amount":5}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	cart.AssertExpectations(t)
}

func TestUpdateProductAmount_ZeroIsPassedThrough(t *testing.T) {
	cart := new(mockCart)
	cart.On("UpdateProductAmount", mock.Anything, domain.UpdateProductAmount{ProductID: 1, Amount: 0}).Once()
	cart.On("Cart").Return(twoLines())

	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodPut, "/api/v1/cart/items/1", `{"amount":0}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	cart.AssertExpectations(t)
}

func TestUpdateProductAmount_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"non-integer id", "/api/v1/cart/items/abc", `{"amount":1}`},
		{"zero id", "/api/v1/cart/items/0", `{"amount":1}`},
		{"missing amount", "/api/v1/cart/items/1", `{}`},
		{"string amount", "/api/v1/cart/items/1", `{"amount":"2"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := new(mockCart)
			rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodPut, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			cart.AssertNotCalled(t, "UpdateProductAmount", mock.Anything, mock.Anything)
		})
	}
}

func TestRemoveProduct(t *testing.T) {
	cart := new(mockCart)
	cart.On("RemoveProduct", mock.Anything, 2).Once()
	cart.On("Cart").Return(domain.Cart{twoLines()[0]})

	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodDelete, "/api/v1/cart/items/2", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeCart(t, rr).Data.Items, 1)
	cart.AssertExpectations(t)
}

func TestRemoveProduct_InvalidID(t *testing.T) {
	cart := new(mockCart)
	rr := do(t, testRouter(cart, new(mockListing), &stubFeed{}), http.MethodDelete, "/api/v1/cart/items/x", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	cart.AssertNotCalled(t, "RemoveProduct", mock.Anything, mock.Anything)
}

// ============================================================================
// Storefront endpoints
// ============================================================================

func TestListProducts(t *testing.T) {
	listing := new(mockListing)
	listing.On("Products", mock.Anything).Return([]domain.ListedProduct{
		{CatalogProduct: domain.CatalogProduct{ID: 1, Title: "A", Price: 10, Image: "a"}, CartAmount: 2},
	}, nil)

	rr := do(t, testRouter(new(mockCart), listing, &stubFeed{}), http.MethodGet, "/api/v1/products", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[{"id":1,"title":"A","price":10,"image":"a","cart_amount":2}]}`, rr.Body.String())
}

func TestListProducts_CatalogDown(t *testing.T) {
	listing := new(mockListing)
	listing.On("Products", mock.Anything).Return(nil, errors.New("connection refused"))

	rr := do(t, testRouter(new(mockCart), listing, &stubFeed{}), http.MethodGet, "/api/v1/products", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestDrainNotifications(t *testing.T) {
	feed := &stubFeed{pending: []domain.Notification{domain.NewNotification(domain.KindStockShortage, 3)}}
	h := testRouter(new(mockCart), new(mockListing), feed)

	rr := do(t, h, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Data []domain.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Requested quantity is out of stock", env.Data[0].Message)

	rr = do(t, h, http.MethodGet, "/api/v1/notifications", "")
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	h := testRouter(new(mockCart), new(mockListing), &stubFeed{})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready", "").Code)

	rr := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "storefront_http_requests_total")
}
