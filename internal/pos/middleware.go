package pos

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/session"
	"github.com/noah-isme/toko-pos/internal/tenant"
)

type sessionKey struct{}

func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the terminal session attached by RequireSession.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*session.Session)
	return sess, ok && sess != nil
}

// RequireSession resolves the bearer token to a live session and attaches it,
// along with its tenant and operator, to the request context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || h.Tokens == nil || h.Sessions == nil {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		claims, err := h.Tokens.Parse(token)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		sess, ok := h.Sessions.Get(claims.SessionID)
		if !ok || sess.TenantID != claims.TenantID {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "session expired", nil)
			return
		}

		ctx := withSession(r.Context(), sess)
		ctx = common.WithSessionID(ctx, sess.ID)
		ctx = common.WithOperatorID(ctx, sess.OperatorID)
		ctx = tenant.WithTenant(ctx, sess.TenantID)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("session_id", sess.ID).Str("operator_id", sess.OperatorID).Str("tenant_id", sess.TenantID)
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
