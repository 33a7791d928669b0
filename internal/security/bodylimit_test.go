package security

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/common"
)

type lineRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

func decodeHandler(t *testing.T, got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req lineRequest
		if err := common.DecodeJSON(r, &req, false); err != nil {
			common.WriteError(w, err)
			return
		}
		*got = req.ProductID
		w.WriteHeader(http.StatusCreated)
	})
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code
}

func TestBodyLimitPassesSmallBodies(t *testing.T) {
	var got string
	h := BodyLimit{Max: 64}.Middleware(decodeHandler(t, &got))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(`{"productId":"p1"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "p1", got)
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	called := false
	h := BodyLimit{Max: 8}.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(`{"productId":"p1"}`)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Equal(t, common.CodeTooLarge, errorCode(t, rr))
	require.False(t, called)
}

func TestBodyLimitRejectsStreamedBodies(t *testing.T) {
	var got string
	h := BodyLimit{Max: 8}.Middleware(decodeHandler(t, &got))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", io.NopCloser(strings.NewReader(`{"productId":"p1"}`)))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Equal(t, common.CodeTooLarge, errorCode(t, rr))
	require.Empty(t, got)
}

func TestBodyLimitMalformedBodyIsBadRequest(t *testing.T) {
	var got string
	h := BodyLimit{Max: 64}.Middleware(decodeHandler(t, &got))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(`{"productId":`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, common.CodeBadRequest, errorCode(t, rr))
}
