package pos

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/session"
	"github.com/noah-isme/toko-pos/internal/tenant"
)

type loginRequest struct {
	TenantID string `json:"tenantId" validate:"omitempty,max=64"`
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

type operatorView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type sessionView struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenantId"`
	Operator  operatorView `json:"operator"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Catalog   loadReport   `json:"catalog"`
}

type loadReport struct {
	LoadedAt time.Time       `json:"loadedAt"`
	Failed   []catalog.Slice `json:"failed"`
}

func reportFor(snap catalog.Snapshot, err error) loadReport {
	report := loadReport{LoadedAt: snap.LoadedAt, Failed: []catalog.Slice{}}
	var partial *catalog.PartialLoadError
	if errors.As(err, &partial) {
		report.Failed = partial.Slices()
	}
	return report
}

// Login authenticates the operator against the back-office, loads the
// tenant catalog and opens a terminal session. Slices that fail to load are
// reported but do not block the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	tenantID, err := h.Tenants.Resolve(r, req.TenantID)
	if err != nil {
		msg, reason := "tenant is required", "failed required"
		if errors.Is(err, tenant.ErrInvalid) {
			msg, reason = "tenant is invalid", "failed slug"
		}
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, msg,
			map[string]string{"tenantId": reason})
		return
	}

	ctx := r.Context()
	login, err := h.Backoffice.Login(ctx, tenantID, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, backoffice.ErrUnauthorized) {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "invalid credentials", nil)
			return
		}
		writeError(w, err)
		return
	}
	if login.Token == "" {
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstream, "back-office returned no token", nil)
		return
	}

	cred := backoffice.Credentials{Token: login.Token, TenantID: tenantID}
	snap, loadErr := h.Loader.Load(ctx, cred, catalog.Snapshot{})
	var partial *catalog.PartialLoadError
	if loadErr != nil && !errors.As(loadErr, &partial) {
		writeError(w, loadErr)
		return
	}
	if partial != nil {
		h.Logger.Warn().Err(partial).Str("tenant_id", tenantID).Msg("catalog partially loaded at login")
	}

	operatorName := login.User.Name
	if operatorName == "" {
		operatorName = login.User.Username
	}
	sess := h.Sessions.Create(session.Params{
		TenantID:        tenantID,
		OperatorID:      login.User.ID,
		OperatorName:    operatorName,
		BackofficeToken: login.Token,
		Catalog:         snap,
	})
	token, expiresAt, err := h.Tokens.Issue(sess)
	if err != nil {
		h.Sessions.Delete(sess.ID)
		writeError(w, err)
		return
	}

	h.Logger.Info().
		Str("session_id", sess.ID).
		Str("tenant_id", tenantID).
		Str("operator_id", sess.OperatorID).
		Msg("terminal session opened")
	common.Data(w, http.StatusCreated, sessionView{
		ID:        sess.ID,
		TenantID:  tenantID,
		Operator:  operatorView{ID: sess.OperatorID, Name: operatorName, Role: login.User.Role},
		Token:     token,
		ExpiresAt: expiresAt,
		Catalog:   reportFor(snap, loadErr),
	})
}

// Logout closes the current session. An in-flight checkout keeps running.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	h.Sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// TrackOrder proxies the public order tracking lookup.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderNo := strings.TrimSpace(chi.URLParam(r, "orderNo"))
	if orderNo == "" || len(orderNo) > 64 {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid order number", nil)
		return
	}
	order, err := h.Backoffice.TrackOrder(r.Context(), orderNo)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, order)
}
