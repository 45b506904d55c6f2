package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/middleware"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/services"
)

// RefundHandler handles cancellation and refund endpoints
type RefundHandler struct {
	refunds *services.RefundService
	logger  *logrus.Logger
}

// NewRefundHandler creates a new RefundHandler
func NewRefundHandler(refunds *services.RefundService, logger *logrus.Logger) *RefundHandler {
	return &RefundHandler{refunds: refunds, logger: logger}
}

// Cancel cancels a booking fully or for a subset of rooms
// @Summary Cancel a booking
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.CancelBookingRequest true "Cancellation"
// @Success 200 {object} models.RefundDetail
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *RefundHandler) Cancel(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	detail, err := h.refunds.CancelBooking(bookingID, userCtx.UserID, userCtx.Permissions, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateTransaction fills payout details in on a refund
// @Summary Update refund transaction
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path string true "Refund ID"
// @Param request body models.UpdateRefundTransactionRequest true "Transaction details"
// @Success 200 {object} models.Refund
// @Security BearerAuth
// @Router /api/v1/refunds/{id}/transaction [patch]
func (h *RefundHandler) UpdateTransaction(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refund ID"})
		return
	}

	var req models.UpdateRefundTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	refund, err := h.refunds.UpdateTransaction(refundID, userCtx.Permissions, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}

// Get returns one refund with its room rows
// @Summary Get a refund
// @Tags Refunds
// @Produce json
// @Param id path string true "Refund ID"
// @Success 200 {object} models.RefundDetail
// @Security BearerAuth
// @Router /api/v1/refunds/{id} [get]
func (h *RefundHandler) Get(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refund ID"})
		return
	}

	detail, err := h.refunds.Get(refundID, userCtx.UserID, userCtx.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
