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

// RoomHandler handles admin room inventory endpoints
type RoomHandler struct {
	rooms  *services.RoomService
	logger *logrus.Logger
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(rooms *services.RoomService, logger *logrus.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, logger: logger}
}

// Lock freezes an AVAILABLE room
// @Summary Lock a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body models.LockRoomRequest true "Lock reason"
// @Success 200 {object} models.Room
// @Security BearerAuth
// @Router /api/v1/rooms/{id}/lock [post]
func (h *RoomHandler) Lock(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	var req models.LockRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	room, err := h.rooms.Lock(roomID, userCtx.Permissions, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Unlock releases a FROZEN room back to AVAILABLE
// @Summary Unlock a room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} models.Room
// @Security BearerAuth
// @Router /api/v1/rooms/{id}/unlock [post]
func (h *RoomHandler) Unlock(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	room, err := h.rooms.Unlock(roomID, userCtx.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
