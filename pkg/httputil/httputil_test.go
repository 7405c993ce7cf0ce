package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteData_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusOK, map[string]int{"item_count": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"item_count":3}}`, rec.Body.String())
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app not found", apperrors.NotFound("product", "9"), http.StatusNotFound, "NOT_FOUND"},
		{"out of stock", apperrors.OutOfStock(1, 4, 2), http.StatusConflict, "OUT_OF_STOCK"},
		{"sentinel not found", fmt.Errorf("load: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"sentinel invalid", apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"sentinel unavailable", apperrors.ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := testLogger()
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), tt.err, l)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestWriteError_LogsInternalErrors(t *testing.T) {
	l, buf := testLogger()
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("disk on fire"), l)

	assert.Contains(t, buf.String(), "disk on fire")
	resp := decode(t, rec)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	l, _ := testLogger()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "req-7"))

	rec := httptest.NewRecorder()
	WriteError(rec, req, apperrors.ErrNotFound, l)

	assert.Equal(t, "req-7", decode(t, rec).Error.RequestID)
}

func TestWriteError_ValidationFields(t *testing.T) {
	type body struct {
		Amount int `json:"amount" validate:"gt=0"`
	}
	verr := validator.Validate(body{Amount: 0})
	require.Error(t, verr)

	l, _ := testLogger()
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPut, "/x", nil), verr, l)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "must be greater than 0", resp.Error.Fields["amount"])
}

func TestParseIntParam(t *testing.T) {
	rec := httptest.NewRecorder()
	n, ok := ParseIntParam(rec, "productId", "42")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"", "abc", "0", "-3", "1.5"} {
		rec := httptest.NewRecorder()
		_, ok := ParseIntParam(rec, "productId", bad)
		assert.False(t, ok, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
	}
}
