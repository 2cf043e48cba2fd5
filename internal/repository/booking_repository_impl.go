package repository

import (
	"context"
	"errors"
	"time"

	"tutorinminutes-backend/internal/domain/entity"
	domainRepo "tutorinminutes-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type bookingRepository struct{}

func NewBookingRepository() domainRepo.BookingRepository {
	return &bookingRepository{}
}

func (r *bookingRepository) Create(ctx context.Context, db *gorm.DB, booking *entity.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.WithContext(ctx).Preload("Tutor").Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByStudentID(ctx context.Context, db *gorm.DB, studentID uuid.UUID) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.WithContext(ctx).Preload("Tutor").
		Where("student_id = ?", studentID).
		Order("session_date DESC, start_time DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByPaymentIntentID(ctx context.Context, db *gorm.DB, intentID string) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// FindActiveByTutorAndDate lists the non-cancelled sessions a tutor has on date.
func (r *bookingRepository) FindActiveByTutorAndDate(ctx context.Context, db *gorm.DB, tutorID string, date time.Time) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.WithContext(ctx).
		Where("tutor_id = ? AND session_date = ? AND status != ?", tutorID, date.Format(time.DateOnly), entity.BookingStatusCancelled).
		Order("start_time").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindActive pages through non-cancelled bookings on or after filter.From.
func (r *bookingRepository) FindActive(ctx context.Context, db *gorm.DB, filter entity.SlotFilter, limit, offset int) ([]entity.Booking, error) {
	query := db.WithContext(ctx).Model(&entity.Booking{}).
		Where("status != ?", entity.BookingStatusCancelled)
	if !filter.From.IsZero() {
		query = query.Where("session_date >= ?", filter.From.Format(time.DateOnly))
	}
	if filter.TutorID != "" {
		query = query.Where("tutor_id = ?", filter.TutorID)
	}

	var bookings []entity.Booking
	err := query.Order("id").Limit(limit).Offset(offset).Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// CancelBooking atomically cancels a booking ONLY if it's not already cancelled.
// Returns affected rows: 1 = success, 0 = already cancelled (prevents double-cancel race).
func (r *bookingRepository) CancelBooking(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Booking{}).
		Where("id = ? AND status != ?", id, entity.BookingStatusCancelled).
		Update("status", entity.BookingStatusCancelled)
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status entity.BookingStatus) error {
	return db.WithContext(ctx).Model(&entity.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *bookingRepository) SetPaymentIntent(ctx context.Context, db *gorm.DB, id uuid.UUID, intentID string) error {
	return db.WithContext(ctx).Model(&entity.Booking{}).
		Where("id = ?", id).
		Update("payment_intent_id", intentID).Error
}
