package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/middleware"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/services"
	"github.com/grandstay/hotel-booking-backend/internal/utils"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookings *services.BookingService
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// Create creates a new booking
// @Summary Create a new booking
// @Description Allocate rooms and create a booking with tax and optional payment
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.BookingDetail "Booking created"
// @Failure 400 {object} map[string]interface{} "Invalid request or insufficient inventory"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	device := utils.ParseUserAgent(c.GetHeader("User-Agent"))
	source := device.BookingSource()
	deviceInfo := device.Summary()

	detail, err := h.bookings.Create(userCtx.UserID, &req, &source, &deviceInfo)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

// Get returns one booking with its rooms and taxes
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.BookingDetail
// @Security BearerAuth
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
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

	detail, err := h.bookings.Get(bookingID, userCtx.UserID, userCtx.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// MyBookings lists the caller's bookings
// @Summary List own bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/my-bookings [get]
func (h *BookingHandler) MyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookings, err := h.bookings.ListByUser(userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// Query lists bookings with admin filters
// @Summary Query bookings
// @Tags Bookings
// @Produce json
// @Param user_id query string false "Filter by user"
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) Query(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var q models.BookingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	bookings, err := h.bookings.Query(q, userCtx.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// Availability returns the AVAILABLE room count for a type
// @Summary Room type availability
// @Tags Rooms
// @Produce json
// @Param id path string true "Room type ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/room-types/{id}/availability [get]
func (h *BookingHandler) Availability(c *gin.Context) {
	roomTypeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room type ID"})
		return
	}

	count, err := h.bookings.Availability(c.Request.Context(), roomTypeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_type_id": roomTypeID, "available": count})
}
