package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstay/hotel-booking-backend/internal/cache"
	"github.com/grandstay/hotel-booking-backend/internal/database"
)

func newTestHoldExpiryService(db *sqlx.DB) *HoldExpiryService {
	logger := newTestLogger()
	return NewHoldExpiryService(
		db,
		database.NewRoomRepository(db),
		database.NewBookingRepository(db),
		cache.NewAvailabilityCache(nil, time.Second, logger),
		logger,
		time.Minute,
	)
}

func TestHoldExpiryService_Sweep_ReleasesRoomsAndExpiresBookings(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestHoldExpiryService(db)

	roomA := uuid.New()
	typeID := uuid.New()
	bookingID := uuid.New()
	now := time.Now()
	holdExpiry := now.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE status = 'HELD'").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_type_id", "room_number", "status", "hold_expires_at", "freeze_reason", "created_at", "updated_at",
		}).AddRow(roomA.String(), typeID.String(), "204", "HELD", holdExpiry, nil, now, now))
	mock.ExpectQuery("SELECT DISTINCT b.id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bookingID.String()))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(uuid.NewString(), bookingID.String(), roomA.String(), typeID.String(), 2, 0, true, false, false, nil, now, now))
	mock.ExpectExec("UPDATE rooms").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps SET is_room_active = FALSE").
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET booking_status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Sweep(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldExpiryService_Sweep_ReleasesSwappedBookedRooms(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestHoldExpiryService(db)

	roomA := uuid.New()
	roomB := uuid.New()
	typeID := uuid.New()
	bookingID := uuid.New()
	now := time.Now()
	holdExpiry := now.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE status = 'HELD'").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_type_id", "room_number", "status", "hold_expires_at", "freeze_reason", "created_at", "updated_at",
		}).AddRow(roomA.String(), typeID.String(), "204", "HELD", holdExpiry, nil, now, now))
	mock.ExpectQuery("SELECT DISTINCT b.id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bookingID.String()))
	// roomB was swapped in by an edit and sits BOOKED; expiring the
	// booking must free it alongside the lapsed hold.
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(uuid.NewString(), bookingID.String(), roomA.String(), typeID.String(), 2, 0, true, false, false, nil, now, now).
			AddRow(uuid.NewString(), bookingID.String(), roomB.String(), typeID.String(), 1, 0, true, false, true, nil, now, now))
	mock.ExpectExec("UPDATE rooms").
		WithArgs(`{"` + roomA.String() + `","` + roomB.String() + `"}`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE booking_room_maps SET is_room_active = FALSE").
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE bookings SET booking_status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Sweep(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldExpiryService_Sweep_NothingToDo(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestHoldExpiryService(db)

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE status = 'HELD'").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_type_id", "room_number", "status", "hold_expires_at", "freeze_reason", "created_at", "updated_at",
		}))
	mock.ExpectRollback()

	require.NoError(t, svc.Sweep(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldExpiryService_StartStop(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestHoldExpiryService(db)

	svc.Start()
	svc.Stop()

	assert.NoError(t, mock.ExpectationsWereMet())
}
