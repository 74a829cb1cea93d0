package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/middleware"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/metrics"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/services"
)

// RestPaymentHandler handles REST requests for payments.
type RestPaymentHandler struct {
	paymentService services.IPaymentService
}

// NewRestPaymentHandler creates a new RestPaymentHandler.
func NewRestPaymentHandler(paymentService services.IPaymentService) *RestPaymentHandler {
	return &RestPaymentHandler{paymentService: paymentService}
}

type initiatePaymentRequest struct {
	ListingID int64          `json:"listing_id"`
	Amount    int64          `json:"amount"`
	Provider  string         `json:"provider"`
	Metadata  map[string]any `json:"metadata"`
}

// InitiatePayment handles POST /v1/payments.
func (h *RestPaymentHandler) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	buyerID, _ := middleware.CallerIdentity(c)
	result, err := h.paymentService.Initiate(c.Request.Context(), services.InitiatePaymentInput{
		BuyerID:   buyerID,
		ListingID: req.ListingID,
		Amount:    req.Amount,
		Provider:  models.PaymentProvider(req.Provider),
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.PaymentsInitiated.WithLabelValues(req.Provider).Inc()
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// PaymentStatus handles GET /v1/payments/:reference.
func (h *RestPaymentHandler) PaymentStatus(c *gin.Context) {
	payment, err := h.paymentService.Status(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// ConfirmPayment handles POST /v1/payments/:reference/confirm. This is the
// provider webhook target; the body is forwarded as the confirmation payload.
func (h *RestPaymentHandler) ConfirmPayment(c *gin.Context) {
	var confirmation map[string]any
	if err := c.ShouldBindJSON(&confirmation); err != nil {
		// Providers retry with empty bodies; treat those as empty payloads.
		confirmation = map[string]any{}
	}

	payment, err := h.paymentService.Confirm(c.Request.Context(), c.Param("reference"), confirmation)
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.PaymentsSettled.WithLabelValues("confirmed").Inc()
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

type cancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// CancelPayment handles POST /v1/payments/:reference/cancel. A payment that
// is unknown or no longer pending yields 404, matching the engine's
// "not found or not cancellable" answer.
func (h *RestPaymentHandler) CancelPayment(c *gin.Context) {
	var req cancelPaymentRequest
	_ = c.ShouldBindJSON(&req)

	cancelled, err := h.paymentService.Cancel(c.Request.Context(), c.Param("reference"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	if !cancelled {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found or not cancellable"})
		return
	}
	metrics.PaymentsSettled.WithLabelValues("cancelled").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
