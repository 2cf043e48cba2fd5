package repository

import (
	"context"
	"time"

	"tutorinminutes-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(ctx context.Context, db *gorm.DB, booking *entity.Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Booking, error)
	FindByStudentID(ctx context.Context, db *gorm.DB, studentID uuid.UUID) ([]entity.Booking, error)
	FindByPaymentIntentID(ctx context.Context, db *gorm.DB, intentID string) (*entity.Booking, error)
	FindActiveByTutorAndDate(ctx context.Context, db *gorm.DB, tutorID string, date time.Time) ([]entity.Booking, error)
	FindActive(ctx context.Context, db *gorm.DB, filter entity.SlotFilter, limit, offset int) ([]entity.Booking, error)
	CancelBooking(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status entity.BookingStatus) error
	SetPaymentIntent(ctx context.Context, db *gorm.DB, id uuid.UUID, intentID string) error
}
