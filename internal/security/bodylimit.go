package security

import (
	"net/http"

	"github.com/noah-isme/toko-pos/internal/common"
)

// BodyLimit caps request payloads. Bodies that declare an oversized
// Content-Length are refused up front; streamed bodies are cut off by
// http.MaxBytesReader and surface as 413 from common.DecodeJSON.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, common.CodeTooLarge, "request entity too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
