package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is one tutoring session reserved by a student.
type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingCode     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"booking_code"`
	StudentID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	TutorID         string          `gorm:"type:varchar(64);not null;index" json:"tutor_id"`
	Subject         string          `gorm:"type:varchar(100);not null" json:"subject"`
	Mode            string          `gorm:"type:varchar(20);not null" json:"mode"`
	SessionDate     time.Time       `gorm:"type:date;not null;index" json:"session_date"`
	StartTime       string          `gorm:"type:varchar(5);not null" json:"start_time"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`
	Latitude        *float64        `gorm:"type:double precision" json:"latitude,omitempty"`
	Longitude       *float64        `gorm:"type:double precision" json:"longitude,omitempty"`
	Address         string          `gorm:"type:text" json:"address,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentIntentID *string         `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	Status          BookingStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Student User  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Tutor   Tutor `gorm:"foreignKey:TutorID" json:"tutor,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

// IsPending checks if booking is in pending status
func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

// IsConfirmed checks if booking is confirmed
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// IsCancelled checks if booking is cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// SlotFilter narrows the slot sync query. Zero values mean no constraint.
type SlotFilter struct {
	From    time.Time
	TutorID string
}
