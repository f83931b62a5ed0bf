package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winova/contest-api/internal/service"
	appErrors "github.com/winova/contest-api/pkg/errors"
	"github.com/winova/contest-api/pkg/response"
)

// PaymentHandler exposes payment reconciliation endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateOrder godoc
// @Summary Initiate a charge for a contest entry
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.InitiateChargeRequest true "Charge payload"
// @Success 201 {object} response.Envelope
// @Router /payments/orders [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.InitiateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	payment, err := h.payments.InitiateCharge(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Capture godoc
// @Summary Capture a previously created charge
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CaptureRequest true "Capture payload"
// @Success 200 {object} response.Envelope
// @Router /payments/capture [post]
func (h *PaymentHandler) Capture(c *gin.Context) {
	var req service.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	payment, err := h.payments.Capture(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// ListMine godoc
// @Summary List the caller's payments
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/user [get]
func (h *PaymentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payments, err := h.payments.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// RequestRefund godoc
// @Summary Request a refund for a completed payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/refund [post]
func (h *PaymentHandler) RequestRefund(c *gin.Context) {
	payment, err := h.payments.RequestRefund(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

type resolveRefundRequest struct {
	Success *bool `json:"success" binding:"required"`
}

// ResolveRefund godoc
// @Summary Resolve a pending refund
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body resolveRefundRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/refund/resolve [put]
func (h *PaymentHandler) ResolveRefund(c *gin.Context) {
	var req resolveRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	payment, err := h.payments.ResolveRefund(c.Request.Context(), c.Param("id"), *req.Success)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}
