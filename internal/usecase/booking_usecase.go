package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"time"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/converter"
	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/delivery/http/middleware"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/domain/repository"
	"tutorinminutes-backend/internal/service"
	"tutorinminutes-backend/internal/timeslot"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated         = errors.New("user not found in context")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingNotOwned         = errors.New("booking does not belong to you")
	ErrModeNotOffered          = errors.New("tutor does not offer this mode")
	ErrSubjectNotTaught        = errors.New("tutor does not teach this subject")
	ErrSessionInPast           = errors.New("cannot book a session in the past")
	ErrInvalidSlot             = errors.New("time is not a bookable slot")
	ErrInvalidDuration         = errors.New("duration must be whole hours within opening time")
	ErrLocationRequired        = errors.New("location is required for offline sessions")
	ErrOutsideServiceArea      = errors.New("location is outside the tutor's service area")
)

const defaultDurationMinutes = 60

type BookingUsecase interface {
	GetMyBookings(ctx context.Context) (*dto.BookingListResponse, error)
	CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) error
}

type bookingUsecase struct {
	db            *gorm.DB
	log           *logrus.Logger
	bookingRepo   repository.BookingRepository
	catalog       CatalogSource
	slotService   *service.SlotService
	auditService  service.AuditService
	currency      string
	serviceRadius float64
	loc           *time.Location
	now           func() time.Time
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	bookingRepo repository.BookingRepository,
	catalogSource CatalogSource,
	slotService *service.SlotService,
	auditService service.AuditService,
	currency string,
	serviceRadius float64,
	loc *time.Location,
) BookingUsecase {
	return &bookingUsecase{
		db:            db,
		log:           log,
		bookingRepo:   bookingRepo,
		catalog:       catalogSource,
		slotService:   slotService,
		auditService:  auditService,
		currency:      currency,
		serviceRadius: serviceRadius,
		loc:           loc,
		now:           time.Now,
	}
}

// GetMyBookings returns all bookings for the logged-in student
func (u *bookingUsecase) GetMyBookings(ctx context.Context) (*dto.BookingListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	bookings, err := u.bookingRepo.FindByStudentID(ctx, u.db, userID)
	if err != nil {
		u.log.Warnf("Failed to find bookings for student %s: %+v", userID, err)
		return nil, err
	}

	return &dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	}, nil
}

// CreateBooking books a tutor with a Redis-first slot hold.
//
// Flow:
// 1. Validate tutor, mode, subject, location and slot against the catalog
// 2. Reject overlaps with live bookings already in the database
// 3. Hold every slot of the session in Redis, all or nothing
// 4. Insert booking and audit row in one transaction
// 5. If the insert fails, release the held slots
func (u *bookingUsecase) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	// Step 1: Validate against the catalog
	tutor, err := u.findTutor(ctx, req.TutorID)
	if err != nil {
		return nil, err
	}

	mode := catalog.ParseMode(req.Mode)
	if mode == catalog.ModeAll || !tutor.OffersMode(mode) {
		return nil, ErrModeNotOffered
	}
	if !tutor.HasSubject(req.Subject) {
		return nil, ErrSubjectNotTaught
	}
	if mode == catalog.ModeOffline {
		if req.Location == nil {
			return nil, ErrLocationRequired
		}
		if tutor.Location != nil {
			at := catalog.Location{Lat: req.Location.Lat, Lng: req.Location.Lng}
			if catalog.Distance(*tutor.Location, at) > u.serviceRadius {
				return nil, ErrOutsideServiceArea
			}
		}
	}

	date, err := time.ParseInLocation(time.DateOnly, req.Date, u.loc)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultDurationMinutes
	}
	slots, err := timeslot.Span(req.Time, duration)
	if err != nil {
		if errors.Is(err, timeslot.ErrInvalidStart) {
			return nil, ErrInvalidSlot
		}
		return nil, ErrInvalidDuration
	}
	startsAt, err := timeslot.StartsAt(date, req.Time, u.loc)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if !startsAt.After(u.now()) {
		return nil, ErrSessionInPast
	}

	// Step 2: Database overlap check, covers keys lost from Redis
	existing, err := u.bookingRepo.FindActiveByTutorAndDate(ctx, u.db, tutor.ID, date)
	if err != nil {
		u.log.Warnf("Failed to find bookings for tutor %s: %+v", tutor.ID, err)
		return nil, err
	}
	if overlaps(existing, slots) {
		return nil, service.ErrSlotTaken
	}

	// Step 3: Redis atomic slot hold
	bookingCode := generateBookingCode(date)
	if err := u.slotService.Hold(ctx, tutor.ID, date, slots, bookingCode); err != nil {
		if errors.Is(err, service.ErrSlotTaken) {
			return nil, service.ErrSlotTaken
		}
		u.log.Warnf("Failed Redis slot hold for tutor %s: %+v", tutor.ID, err)
		return nil, err
	}

	// Step 4: Insert booking to DB
	booking := &entity.Booking{
		ID:              uuid.New(),
		BookingCode:     bookingCode,
		StudentID:       userID,
		TutorID:         tutor.ID,
		Subject:         req.Subject,
		Mode:            string(mode),
		SessionDate:     date,
		StartTime:       req.Time,
		DurationMinutes: duration,
		Notes:           req.Notes,
		Amount:          sessionAmount(tutor.PricePerHour, duration),
		Currency:        u.currency,
		Status:          entity.BookingStatusPending,
	}
	if mode == catalog.ModeOffline {
		lat, lng := req.Location.Lat, req.Location.Lng
		booking.Latitude, booking.Longitude = &lat, &lng
		booking.Address = req.Location.Address
	}

	if err := u.insertBooking(ctx, booking); err != nil {
		u.log.Errorf("Failed to insert booking to DB, releasing Redis slots: %+v", err)

		// Step 5: COMPENSATE - release the hold since the DB insert failed
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, releaseErr := u.slotService.Release(releaseCtx, tutor.ID, date, slots, bookingCode); releaseErr != nil {
			u.log.Errorf("CRITICAL: Failed to release Redis slots after DB failure for booking %s: %+v", bookingCode, releaseErr)
		}

		if isDuplicateKeyError(err, "bookings_active_slot_key") {
			return nil, service.ErrSlotTaken
		}
		return nil, err
	}

	// Reload booking with tutor info for response
	full, err := u.bookingRepo.FindByID(ctx, u.db, booking.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload booking %s: %+v", booking.ID, err)
		return converter.BookingToResponse(booking), nil
	}

	u.log.Infof("Booking created: id=%s, tutor=%s, date=%s, time=%s, code=%s", booking.ID, tutor.ID, req.Date, req.Time, bookingCode)
	return converter.BookingToResponse(full), nil
}

func (u *bookingUsecase) insertBooking(ctx context.Context, booking *entity.Booking) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.bookingRepo.Create(ctx, tx, booking); err != nil {
		return err
	}

	if err := u.auditService.LogCreate(ctx, tx, &booking.StudentID, entity.AuditActionBookingCreate, entity.AuditEntityBooking, booking.ID.String(), booking); err != nil {
		return err
	}

	return tx.Commit().Error
}

// CancelBooking cancels a booking and frees its slots.
// Admins may cancel any booking, students only their own.
func (u *bookingUsecase) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)

	booking, err := u.bookingRepo.FindByID(ctx, u.db, bookingID)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return err
	}
	if booking == nil {
		return ErrBookingNotFound
	}
	if booking.StudentID != userID && roleID != entity.RoleIDAdmin {
		return ErrBookingNotOwned
	}
	if booking.IsCancelled() {
		return ErrBookingAlreadyCancelled
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := u.bookingRepo.CancelBooking(ctx, tx, bookingID)
	if err != nil {
		u.log.Warnf("Failed to cancel booking %s: %+v", bookingID, err)
		return err
	}
	if rows == 0 {
		return ErrBookingAlreadyCancelled
	}

	if err := u.auditService.LogUpdate(ctx, tx, &userID, entity.AuditActionBookingCancel, entity.AuditEntityBooking, bookingID.String(),
		entity.JSON{"status": booking.Status}, entity.JSON{"status": entity.BookingStatusCancelled}); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	slots, err := timeslot.Span(booking.StartTime, booking.DurationMinutes)
	if err != nil {
		u.log.Warnf("Booking %s has an off-grid slot, nothing to release: %+v", bookingID, err)
		return nil
	}
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := u.slotService.Release(releaseCtx, booking.TutorID, booking.SessionDate, slots, booking.BookingCode); err != nil {
		// Non-fatal: keys expire after the session day and are rebuilt on startup
		u.log.Warnf("Failed to release Redis slots for booking %s (non-fatal): %+v", bookingID, err)
	}

	u.log.Infof("Booking cancelled: id=%s, tutor=%s", bookingID, booking.TutorID)
	return nil
}

func (u *bookingUsecase) findTutor(ctx context.Context, id string) (*catalog.Tutor, error) {
	tutors, err := u.catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(tutors, func(t catalog.Tutor) bool { return t.ID == id })
	if idx < 0 {
		return nil, ErrTutorNotFound
	}
	return &tutors[idx], nil
}

func overlaps(bookings []entity.Booking, slots []string) bool {
	for _, b := range bookings {
		span, err := timeslot.Span(b.StartTime, b.DurationMinutes)
		if err != nil {
			continue
		}
		for _, s := range span {
			if slices.Contains(slots, s) {
				return true
			}
		}
	}
	return false
}

// sessionAmount is pricePerHour * minutes / 60, rounded to two decimals.
func sessionAmount(pricePerHour float64, minutes int) decimal.Decimal {
	return decimal.NewFromFloat(pricePerHour).
		Mul(decimal.NewFromInt(int64(minutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)
}

// generateBookingCode generates a unique booking code: BK-YYYYMMDD-XXXXXX
func generateBookingCode(sessionDate time.Time) string {
	dateStr := sessionDate.Format("20060102")
	randomBytes := make([]byte, 3)
	rand.Read(randomBytes)
	return fmt.Sprintf("BK-%s-%X", dateStr, randomBytes)
}
