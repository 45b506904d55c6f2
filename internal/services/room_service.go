package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/cache"
	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/pkg/permissions"
)

// RoomService covers the admin inventory operations: freezing a room for
// maintenance or negotiation and releasing it again.
type RoomService struct {
	roomRepo     *database.RoomRepository
	permChecker  PermissionChecker
	availability *cache.AvailabilityCache
	logger       *logrus.Logger
}

// NewRoomService creates a new RoomService
func NewRoomService(
	roomRepo *database.RoomRepository,
	permChecker PermissionChecker,
	availability *cache.AvailabilityCache,
	logger *logrus.Logger,
) *RoomService {
	return &RoomService{
		roomRepo:     roomRepo,
		permChecker:  permChecker,
		availability: availability,
		logger:       logger,
	}
}

// Lock freezes an AVAILABLE room. Freezing a room in any other status is a
// conflict.
func (s *RoomService) Lock(roomID uuid.UUID, requesterPerms []string, reason string) (*models.Room, error) {
	if !s.permChecker.Has(requesterPerms, permissions.ResourceRoomManagement, permissions.ActionWrite) {
		return nil, apperrors.Forbidden("room locking requires room management access")
	}
	if err := s.roomRepo.Lock(roomID, reason); err != nil {
		return nil, err
	}
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	s.availability.Invalidate(context.Background(), room.RoomTypeID)
	s.logger.WithFields(logrus.Fields{"room_id": roomID, "reason": reason}).Info("room locked")
	return room, nil
}

// Unlock releases a FROZEN room back to AVAILABLE.
func (s *RoomService) Unlock(roomID uuid.UUID, requesterPerms []string) (*models.Room, error) {
	if !s.permChecker.Has(requesterPerms, permissions.ResourceRoomManagement, permissions.ActionWrite) {
		return nil, apperrors.Forbidden("room unlocking requires room management access")
	}
	if err := s.roomRepo.Unlock(roomID); err != nil {
		return nil, err
	}
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	s.availability.Invalidate(context.Background(), room.RoomTypeID)
	s.logger.WithField("room_id", roomID).Info("room unlocked")
	return room, nil
}
