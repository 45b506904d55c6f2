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

// BookingEditHandler handles the edit negotiation endpoints
type BookingEditHandler struct {
	edits  *services.BookingEditService
	logger *logrus.Logger
}

// NewBookingEditHandler creates a new BookingEditHandler
func NewBookingEditHandler(edits *services.BookingEditService, logger *logrus.Logger) *BookingEditHandler {
	return &BookingEditHandler{edits: edits, logger: logger}
}

// Request opens an edit negotiation for a booking
// @Summary Request a booking edit
// @Tags Edits
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.RequestEditRequest true "Edit request"
// @Success 201 {object} models.BookingEdit
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/edits [post]
func (h *BookingEditHandler) Request(c *gin.Context) {
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

	var req models.RequestEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	edit, err := h.edits.RequestEdit(bookingID, userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, edit)
}

// Review records admin room suggestions and locks the edit
// @Summary Review a booking edit
// @Tags Edits
// @Accept json
// @Produce json
// @Param id path string true "Edit ID"
// @Param request body models.ReviewEditRequest true "Review"
// @Success 200 {object} models.BookingEdit
// @Security BearerAuth
// @Router /api/v1/edits/{id}/review [post]
func (h *BookingEditHandler) Review(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	editID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid edit ID"})
		return
	}

	var req models.ReviewEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	edit, err := h.edits.Review(editID, userCtx.UserID, userCtx.Permissions, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, edit)
}

// Decide applies the customer's per-room decisions
// @Summary Decide a booking edit
// @Tags Edits
// @Accept json
// @Produce json
// @Param id path string true "Edit ID"
// @Param request body models.DecideEditRequest true "Decisions"
// @Success 200 {object} models.EditSettlement
// @Security BearerAuth
// @Router /api/v1/edits/{id}/decision [post]
func (h *BookingEditHandler) Decide(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	editID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid edit ID"})
		return
	}

	var req models.DecideEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	settlement, err := h.edits.Decide(editID, userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// Get returns one edit
// @Summary Get a booking edit
// @Tags Edits
// @Produce json
// @Param id path string true "Edit ID"
// @Success 200 {object} models.BookingEdit
// @Security BearerAuth
// @Router /api/v1/edits/{id} [get]
func (h *BookingEditHandler) Get(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	editID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid edit ID"})
		return
	}

	edit, err := h.edits.Get(editID, userCtx.UserID, userCtx.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, edit)
}
