package pos

import (
	"net/http"

	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

type checkoutRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=paid pending PAID PENDING"`
}

type checkoutView struct {
	OrderNo      string           `json:"orderNo"`
	OrderID      string           `json:"orderId,omitempty"`
	Status       string           `json:"status"`
	FinalAmount  pricing.Money    `json:"finalAmount"`
	PointsEarned int64            `json:"pointsEarned"`
	Order        checkout.Payload `json:"order"`
}

// Checkout submits the cart. On failure the cart is left intact so the
// operator can retry.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	var req checkoutRequest
	if err := common.DecodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	status, err := checkout.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Orders.Submit(r.Context(), sess, status)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, checkoutView{
		OrderNo:      res.OrderNo,
		OrderID:      res.Receipt.ID,
		Status:       string(res.Payload.Status),
		FinalAmount:  res.Payload.FinalAmount,
		PointsEarned: res.Payload.PointsEarned,
		Order:        res.Payload,
	})
}
