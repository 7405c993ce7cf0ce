package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type addRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

type amountRequest struct {
	Amount int `json:"amount" validate:"lte=1000"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(addRequest{ProductID: 3}))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	err := Validate(addRequest{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["product_id"])
	assert.Contains(t, err.Error(), "field 'product_id' is required")
}

func TestValidate_Bounds(t *testing.T) {
	var valErr *ValidationError

	require.ErrorAs(t, Validate(addRequest{ProductID: -1}), &valErr)
	assert.Equal(t, "must be greater than 0", valErr.Fields()["product_id"])

	require.ErrorAs(t, Validate(amountRequest{Amount: 1001}), &valErr)
	assert.Equal(t, "must be less than or equal to 1000", valErr.Fields()["amount"])
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":7}`))
	var req addRequest
	require.NoError(t, DecodeAndValidate(r, &req))
	assert.Equal(t, 7, req.ProductID)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":`))
	var req addRequest
	err := DecodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed request body")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":1,"qty":2}`))
	var req addRequest
	assert.Error(t, DecodeAndValidate(r, &req))
}
