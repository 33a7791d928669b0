package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/common"
)

type errorEnvelope struct {
	Error common.ErrorBody `json:"error"`
}

func TestWriteErrorAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, common.ValidationFailed("cart is empty", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, common.CodeValidation, body.Error.Code)
	require.Equal(t, "cart is empty", body.Error.Message)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("dial tcp 10.0.0.1: refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "10.0.0.1")
}

func TestDecodeJSONValidates(t *testing.T) {
	type payload struct {
		Status string `json:"status" validate:"required,oneof=paid pending"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"void"}`))
	var p payload
	err := common.DecodeJSON(req, &p, false)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
	require.Equal(t, map[string]string{"Status": "failed oneof"}, appErr.Details)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	err = common.DecodeJSON(req, &p, false)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeBadRequest, appErr.Code)
}

func TestDecodeJSONAllowEmpty(t *testing.T) {
	type payload struct {
		Status string `json:"status"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	var p payload
	require.NoError(t, common.DecodeJSON(req, &p, true))
}
