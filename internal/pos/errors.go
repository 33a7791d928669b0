package pos

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/resilience"
	"github.com/noah-isme/toko-pos/internal/session"
)

var validationErrors = map[error]string{
	session.ErrUnknownProduct:  "product not found in catalog",
	session.ErrUnknownVariant:  "variant not found for product",
	session.ErrVariantRequired: "product requires a variant",
	session.ErrUnknownDiscount: "discount not found",
	session.ErrUnknownCustomer: "customer not found",
	pricing.ErrInvalidDiscount: "discount cannot be applied",
	cart.ErrInvalidLine:        "catalog record cannot be added to the cart",
}

// writeError maps domain errors onto the error envelope.
func writeError(w http.ResponseWriter, err error) {
	var (
		appErr *common.AppError
		valErr *checkout.ValidationError
		subErr *checkout.SubmissionError
		apiErr *backoffice.APIError
	)
	switch {
	case errors.As(err, &appErr):
		common.WriteError(w, appErr)
		return
	case errors.Is(err, session.ErrCheckoutInFlight):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "a checkout is already in progress", nil)
		return
	case errors.Is(err, session.ErrUnknownLine):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart line not found", nil)
		return
	case errors.As(err, &valErr):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, valErr.Reason,
			map[string]string{valErr.Field: valErr.Reason})
		return
	case errors.As(err, &subErr):
		writeSubmissionError(w, subErr)
		return
	}
	for target, msg := range validationErrors {
		if errors.Is(err, target) {
			common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, msg, nil)
			return
		}
	}
	switch {
	case errors.Is(err, backoffice.ErrUnauthorized):
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "back-office rejected the credentials", nil)
	case errors.Is(err, resilience.ErrOpenCircuit):
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUpstream, "back-office temporarily unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusGatewayTimeout, common.CodeUpstream, "back-office timed out", nil)
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusNotFound {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, upstreamMessage(apiErr, "not found"), nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstream, upstreamMessage(apiErr, "back-office request failed"), nil)
	default:
		common.WriteError(w, err)
	}
}

// writeSubmissionError reports a failed order post. The cart is intact, so
// the order number is returned for the operator's reference.
func writeSubmissionError(w http.ResponseWriter, err *checkout.SubmissionError) {
	details := map[string]string{"orderNo": err.OrderNo}
	var apiErr *backoffice.APIError
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUpstream, "back-office temporarily unavailable", details)
	case errors.Is(err, backoffice.ErrUnauthorized):
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "back-office rejected the credentials", details)
	case errors.As(err, &apiErr):
		common.JSONError(w, http.StatusBadGateway, common.CodeSubmissionFailed, upstreamMessage(apiErr, "order submission failed"), details)
	default:
		common.JSONError(w, http.StatusBadGateway, common.CodeSubmissionFailed, "order submission failed", details)
	}
}

func upstreamMessage(err *backoffice.APIError, fallback string) string {
	if err.Message != "" {
		return err.Message
	}
	return fallback
}
