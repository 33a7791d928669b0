package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

const defaultIdemTTL = 10 * time.Minute

// Idem guards a route with the Idempotency-Key header. Keys are scoped to the
// terminal session so two terminals cannot collide on the same key. A key is
// released again when the request is rejected with a 4xx, since nothing was
// submitted and the terminal may retry with a corrected body.
type Idem struct {
	R   redis.UniversalClient
	TTL time.Duration
}

func idemKey(scope, key string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return defaultIdemTTL
	}
	return i.TTL
}

// Middleware rejects a replayed Idempotency-Key with 409.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(header) > 255 {
			JSONError(w, http.StatusBadRequest, CodeBadRequest, "idempotency key too long", nil)
			return
		}
		ctx := r.Context()
		scope, _ := SessionID(ctx)
		key := idemKey(scope, header)
		ok, err := i.R.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, CodeReplay, "duplicate request", nil)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if status := ww.Status(); status >= 400 && status < 500 {
			_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
		}
	})
}
