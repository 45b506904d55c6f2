package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/cache"
	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/pkg/permissions"
)

const testLockTTL = 30 * time.Minute

func newTestEditService(db *sqlx.DB) *BookingEditService {
	logger := newTestLogger()
	return NewBookingEditService(
		db,
		database.NewBookingEditRepository(db),
		database.NewBookingRepository(db),
		database.NewRoomRepository(db),
		database.NewRoomTypeRepository(db),
		database.NewRefundRepository(db),
		permissions.NewChecker(),
		NewNotifier(nil, logger),
		cache.NewAvailabilityCache(nil, time.Second, logger),
		logger,
		testLockTTL,
	)
}

func editRows(editID, bookingID, userID uuid.UUID, editType models.EditType, status models.EditStatus, lockExpiresAt *time.Time) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "booking_id", "user_id", "requested_room_changes", "edit_type", "edit_status",
		"reviewed_by", "lock_expires_at", "total_price", "created_at", "updated_at",
	})
	var lock interface{}
	if lockExpiresAt != nil {
		lock = *lockExpiresAt
	}
	return rows.AddRow(editID.String(), bookingID.String(), userID.String(), nil, editType, status,
		nil, lock, 0.0, now, now)
}

func availableRoomRows(roomID, typeID uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "room_type_id", "room_number", "status", "hold_expires_at", "freeze_reason", "created_at", "updated_at",
	}).AddRow(roomID.String(), typeID.String(), "101", models.RoomStatusAvailable, nil, nil, now, now)
}

func frozenRoomRows(roomID, typeID uuid.UUID, reason string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "room_type_id", "room_number", "status", "hold_expires_at", "freeze_reason", "created_at", "updated_at",
	}).AddRow(roomID.String(), typeID.String(), "101", models.RoomStatusFrozen, nil, reason, now, now)
}

func TestEditTypeFor(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, models.EditTypePre, editTypeFor(now.AddDate(0, 0, 2), now))
	// The check-in day itself already counts as post check-in.
	assert.Equal(t, models.EditTypePost, editTypeFor(now.Add(5*time.Hour), now))
	assert.Equal(t, models.EditTypePost, editTypeFor(now.AddDate(0, 0, -1), now))
}

func TestBookingEditService_RequestEdit_DuplicateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	bookingID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+)").
		WithArgs(bookingID).
		WillReturnRows(bookingRows(bookingID, userID, models.BookingStatusConfirmed, 450))
	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_edits").
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.RequestEdit(bookingID, userID, &models.RequestEditRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_RequestEdit_PostRejectsRoomChanges(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	bookingID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+)").
		WithArgs(bookingID).
		WillReturnRows(bookingRowsAt(bookingID, userID, models.BookingStatusCheckedIn, 450,
			now.AddDate(0, 0, -3), now.AddDate(0, 0, -1), now.AddDate(0, 0, 2)))
	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_edits").
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err := svc.RequestEdit(bookingID, userID, &models.RequestEditRequest{
		RoomChanges: models.RoomChangeMap{uuid.New(): uuid.New()},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_RequestEdit_ProjectsTotal(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	bookingID := uuid.New()
	userID := uuid.New()
	currentType := uuid.New()
	desiredType := uuid.New()
	roomA := uuid.New()
	mapA := uuid.New()

	now := time.Now()
	checkIn := now.AddDate(0, 0, 2)
	checkOut := checkIn.AddDate(0, 0, 3)

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+)").
		WithArgs(bookingID).
		WillReturnRows(bookingRowsAt(bookingID, userID, models.BookingStatusConfirmed, 300, now, checkIn, checkOut))
	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_edits").
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(mapA.String(), bookingID.String(), roomA.String(), currentType.String(), 2, 0, true, false, false, nil, now, now))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(desiredType).
		WillReturnRows(roomTypeRows(desiredType, "Suite", 150))
	// The projected total prices the desired type: 150/night for 3 nights.
	mock.ExpectExec("INSERT INTO booking_edits").
		WithArgs(sqlmock.AnyArg(), bookingID, userID, sqlmock.AnyArg(), models.EditTypePre,
			models.EditStatusPending, nil, nil, 450.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	edit, err := svc.RequestEdit(bookingID, userID, &models.RequestEditRequest{
		RoomChanges: models.RoomChangeMap{roomA: desiredType},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EditTypePre, edit.EditType)
	assert.Equal(t, models.EditStatusPending, edit.EditStatus)
	assert.Equal(t, 450.0, edit.TotalPrice)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Review_RequiresPermission(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	_, err := svc.Review(uuid.New(), uuid.New(), []string{"BOOKING_MANAGEMENT.READ"}, &models.ReviewEditRequest{Reject: true})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Review_LocksEdit(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	reviewerID := uuid.New()
	typeID := uuid.New()
	roomA := uuid.New()
	candidate := uuid.New()
	mapA := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, bookingID, userID, models.EditTypePre, models.EditStatusPending, nil))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(mapA.String(), bookingID.String(), roomA.String(), typeID.String(), 2, 0, true, false, false, nil, now, now))
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = (.+) FOR UPDATE").
		WithArgs(candidate).
		WillReturnRows(availableRoomRows(candidate, typeID))
	mock.ExpectExec("UPDATE booking_room_maps SET edit_suggested_rooms").
		WithArgs(bookingID, roomA, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits").
		WithArgs(editID, reviewerID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	edit, err := svc.Review(editID, reviewerID, []string{"ROOM_MANAGEMENT.WRITE"}, &models.ReviewEditRequest{
		Suggestions: map[uuid.UUID][]uuid.UUID{roomA: {candidate}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EditStatusAwaitingCustomer, edit.EditStatus)
	require.NotNil(t, edit.LockExpiresAt)
	assert.WithinDuration(t, time.Now().Add(testLockTTL), *edit.LockExpiresAt, 5*time.Second)
	require.NotNil(t, edit.ReviewedBy)
	assert.Equal(t, reviewerID, *edit.ReviewedBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Review_Reject(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, uuid.New(), uuid.New(), models.EditTypePre, models.EditStatusPending, nil))
	mock.ExpectExec("UPDATE booking_edits SET edit_status").
		WithArgs(editID, models.EditStatusRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	edit, err := svc.Review(editID, uuid.New(), []string{"ROOM_MANAGEMENT.WRITE"}, &models.ReviewEditRequest{Reject: true})
	require.NoError(t, err)
	assert.Equal(t, models.EditStatusRejected, edit.EditStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Decide_LockExpired(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	userID := uuid.New()
	expired := time.Now().Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, uuid.New(), userID, models.EditTypePre, models.EditStatusAwaitingCustomer, &expired))
	mock.ExpectRollback()

	_, err := svc.Decide(editID, userID, &models.DecideEditRequest{
		Decisions: map[uuid.UUID]models.RoomDecision{uuid.New(): {Action: models.DecisionKeep}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Decide_AcceptSwapsRoom(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	oldType := uuid.New()
	newType := uuid.New()
	roomA := uuid.New()
	target := uuid.New()
	mapA := uuid.New()

	now := time.Now()
	lock := now.Add(20 * time.Minute)
	checkIn := now.AddDate(0, 0, 1)
	checkOut := checkIn.AddDate(0, 0, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, bookingID, userID, models.EditTypePre, models.EditStatusAwaitingCustomer, &lock))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE").
		WithArgs(bookingID).
		WillReturnRows(bookingRowsAt(bookingID, userID, models.BookingStatusConfirmed, 1000, now, checkIn, checkOut))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(mapA.String(), bookingID.String(), roomA.String(), oldType.String(), 2, 1, true, false, false,
				"{"+target.String()+"}", now, now))
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = (.+) FOR UPDATE").
		WithArgs(target).
		WillReturnRows(availableRoomRows(target, newType))
	mock.ExpectExec("UPDATE rooms").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rooms").
		WithArgs(roomA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps").
		WithArgs(mapA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO booking_room_maps").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(oldType).
		WillReturnRows(roomTypeRows(oldType, "Standard", 100))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(newType).
		WillReturnRows(roomTypeRows(newType, "Suite", 150))
	mock.ExpectExec("UPDATE booking_room_maps SET edit_suggested_rooms = NULL").
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Swap delta is (150-100) x 3 nights = 150 on a 1000 booking.
	mock.ExpectExec("UPDATE bookings SET total_price").
		WithArgs(bookingID, 1150.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET total_price").
		WithArgs(editID, 1150.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET edit_status").
		WithArgs(editID, models.EditStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	settlement, err := svc.Decide(editID, userID, &models.DecideEditRequest{
		Decisions: map[uuid.UUID]models.RoomDecision{
			roomA: {Action: models.DecisionAccept, TargetRoomID: &target},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EditStatusApproved, settlement.EditStatus)
	assert.Equal(t, 1000.0, settlement.OriginalAmount)
	assert.Equal(t, 0.0, settlement.RefundedAmount)
	assert.Equal(t, 1150.0, settlement.NewTotalAmount)
	assert.Nil(t, settlement.RefundID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Decide_AcceptClaimsFrozenRoom(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	typeID := uuid.New()
	roomA := uuid.New()
	target := uuid.New()
	mapA := uuid.New()

	now := time.Now()
	lock := now.Add(20 * time.Minute)
	checkIn := now.AddDate(0, 0, 1)
	checkOut := checkIn.AddDate(0, 0, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, bookingID, userID, models.EditTypePre, models.EditStatusAwaitingCustomer, &lock))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE").
		WithArgs(bookingID).
		WillReturnRows(bookingRowsAt(bookingID, userID, models.BookingStatusConfirmed, 1000, now, checkIn, checkOut))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(mapA.String(), bookingID.String(), roomA.String(), typeID.String(), 2, 1, true, false, false,
				"{"+target.String()+"}", now, now))
	// The target sits FROZEN under the suggestion freeze; accepting it
	// must book it, not bounce with a conflict.
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = (.+) FOR UPDATE").
		WithArgs(target).
		WillReturnRows(frozenRoomRows(target, typeID, "edit suggestion"))
	mock.ExpectExec("UPDATE rooms").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rooms").
		WithArgs(roomA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps").
		WithArgs(mapA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO booking_room_maps").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(typeID).
		WillReturnRows(roomTypeRows(typeID, "Standard", 100))
	mock.ExpectExec("UPDATE booking_room_maps SET edit_suggested_rooms = NULL").
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET total_price").
		WithArgs(editID, 1000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET edit_status").
		WithArgs(editID, models.EditStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	settlement, err := svc.Decide(editID, userID, &models.DecideEditRequest{
		Decisions: map[uuid.UUID]models.RoomDecision{
			roomA: {Action: models.DecisionAccept, TargetRoomID: &target},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EditStatusApproved, settlement.EditStatus)
	assert.Equal(t, 1000.0, settlement.NewTotalAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Decide_RefundAndKeep(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	typeID := uuid.New()
	roomA := uuid.New()
	roomB := uuid.New()
	mapA := uuid.New()
	mapB := uuid.New()

	now := time.Now()
	lock := now.Add(20 * time.Minute)
	createdAt := now.Add(-49 * time.Hour)
	checkIn := now.AddDate(0, 0, 2)
	checkOut := checkIn.AddDate(0, 0, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, bookingID, userID, models.EditTypePre, models.EditStatusAwaitingCustomer, &lock))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE").
		WithArgs(bookingID).
		WillReturnRows(bookingRowsAt(bookingID, userID, models.BookingStatusConfirmed, 450, createdAt, checkIn, checkOut))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(mapA.String(), bookingID.String(), roomA.String(), typeID.String(), 2, 0, true, false, false,
				"{"+uuid.NewString()+"}", now, now).
			AddRow(mapB.String(), bookingID.String(), roomB.String(), typeID.String(), 1, 0, true, false, false,
				"{"+uuid.NewString()+"}", now, now))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(typeID).
		WillReturnRows(roomTypeRows(typeID, "Standard", 40))
	mock.ExpectExec("UPDATE rooms").
		WithArgs(roomA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps SET is_room_active = FALSE").
		WithArgs(mapA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps SET edit_suggested_rooms = NULL").
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Two elapsed days at 40/night refund 80, leaving 370.
	mock.ExpectExec("UPDATE bookings SET total_price").
		WithArgs(bookingID, 370.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET total_price").
		WithArgs(editID, 370.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET edit_status").
		WithArgs(editID, models.EditStatusPartiallyApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refunds").
		WithArgs(sqlmock.AnyArg(), bookingID, userID, models.RefundTypePartial, models.RefundStatusInitiated,
			80.0, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO refund_room_maps").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), roomA, 80.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	settlement, err := svc.Decide(editID, userID, &models.DecideEditRequest{
		Decisions: map[uuid.UUID]models.RoomDecision{
			roomA: {Action: models.DecisionRefund},
			roomB: {Action: models.DecisionKeep},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EditStatusPartiallyApproved, settlement.EditStatus)
	assert.Equal(t, 80.0, settlement.RefundedAmount)
	assert.Equal(t, 370.0, settlement.NewTotalAmount)
	require.NotNil(t, settlement.RefundID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Decide_AcceptAndRefundReconcile(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	oldType := uuid.New()
	newType := uuid.New()
	refundType := uuid.New()
	roomA := uuid.New()
	roomB := uuid.New()
	target := uuid.New()
	mapA := uuid.New()
	mapB := uuid.New()

	now := time.Now()
	lock := now.Add(20 * time.Minute)
	createdAt := now.Add(-49 * time.Hour)
	checkIn := now.AddDate(0, 0, 3)
	checkOut := checkIn.AddDate(0, 0, 2)

	// The two decisions iterate in map order, so the per-room statements
	// may interleave either way round.
	mock.MatchExpectationsInOrder(false)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, bookingID, userID, models.EditTypePre, models.EditStatusAwaitingCustomer, &lock))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE").
		WithArgs(bookingID).
		WillReturnRows(bookingRowsAt(bookingID, userID, models.BookingStatusConfirmed, 1000, createdAt, checkIn, checkOut))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(mapA.String(), bookingID.String(), roomA.String(), oldType.String(), 2, 0, true, false, false,
				"{"+target.String()+"}", now, now).
			AddRow(mapB.String(), bookingID.String(), roomB.String(), refundType.String(), 1, 0, true, false, false,
				"{"+uuid.NewString()+"}", now, now))

	// Accept: swap roomA for the 120/night target, +20/night over 2 nights.
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = (.+) FOR UPDATE").
		WithArgs(target).
		WillReturnRows(availableRoomRows(target, newType))
	mock.ExpectExec("UPDATE rooms SET status = 'BOOKED'").
		WithArgs(`{"` + target.String() + `"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rooms SET status = 'AVAILABLE'").
		WithArgs(roomA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps SET is_room_active = FALSE, is_pre_edited_room = TRUE").
		WithArgs(mapA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO booking_room_maps").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(oldType).
		WillReturnRows(roomTypeRows(oldType, "Standard", 100))
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(newType).
		WillReturnRows(roomTypeRows(newType, "Suite", 120))

	// Refund: roomB at 60/night for two elapsed days refunds 120.
	mock.ExpectQuery("SELECT (.+) FROM room_types WHERE id = (.+)").
		WithArgs(refundType).
		WillReturnRows(roomTypeRows(refundType, "Economy", 60))
	mock.ExpectExec("UPDATE rooms SET status = 'AVAILABLE'").
		WithArgs(roomB).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_room_maps SET is_room_active = FALSE, updated_at").
		WithArgs(mapB).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE booking_room_maps SET edit_suggested_rooms = NULL").
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	// 1000 + 40 - 120 = 920.
	mock.ExpectExec("UPDATE bookings SET total_price").
		WithArgs(bookingID, 920.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET total_price").
		WithArgs(editID, 920.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_edits SET edit_status").
		WithArgs(editID, models.EditStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refunds").
		WithArgs(sqlmock.AnyArg(), bookingID, userID, models.RefundTypePartial, models.RefundStatusInitiated,
			120.0, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO refund_room_maps").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), roomB, 120.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	settlement, err := svc.Decide(editID, userID, &models.DecideEditRequest{
		Decisions: map[uuid.UUID]models.RoomDecision{
			roomA: {Action: models.DecisionAccept, TargetRoomID: &target},
			roomB: {Action: models.DecisionRefund},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EditStatusApproved, settlement.EditStatus)
	assert.Equal(t, 1000.0, settlement.OriginalAmount)
	assert.Equal(t, 120.0, settlement.RefundedAmount)
	assert.Equal(t, 920.0, settlement.NewTotalAmount)
	require.NotNil(t, settlement.RefundID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingEditService_Decide_MissingDecision(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestEditService(db)

	editID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	typeID := uuid.New()
	roomA := uuid.New()
	roomB := uuid.New()

	now := time.Now()
	lock := now.Add(20 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM booking_edits WHERE id = (.+) FOR UPDATE").
		WithArgs(editID).
		WillReturnRows(editRows(editID, bookingID, userID, models.EditTypePre, models.EditStatusAwaitingCustomer, &lock))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE").
		WithArgs(bookingID).
		WillReturnRows(bookingRows(bookingID, userID, models.BookingStatusConfirmed, 450))
	mock.ExpectQuery("SELECT (.+) FROM booking_room_maps").
		WithArgs(bookingID).
		WillReturnRows(roomMapColumnsRows().
			AddRow(uuid.NewString(), bookingID.String(), roomA.String(), typeID.String(), 2, 0, true, false, false,
				"{"+uuid.NewString()+"}", now, now))
	mock.ExpectRollback()

	_, err := svc.Decide(editID, userID, &models.DecideEditRequest{
		Decisions: map[uuid.UUID]models.RoomDecision{roomB: {Action: models.DecisionKeep}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
	assert.NoError(t, mock.ExpectationsWereMet())
}
