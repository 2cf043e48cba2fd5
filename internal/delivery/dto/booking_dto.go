package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type LocationRequest struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address" validate:"omitempty,max=500"`
}

type CreateBookingRequest struct {
	TutorID         string           `json:"tutor_id" validate:"required,max=64"`
	Subject         string           `json:"subject" validate:"required,max=100"`
	Mode            string           `json:"mode" validate:"required,oneof=online offline"`
	Date            string           `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string           `json:"time" validate:"required,clock"`
	DurationMinutes int              `json:"duration_minutes" validate:"omitempty,min=60,max=720"`
	Location        *LocationRequest `json:"location" validate:"required_if=Mode offline,omitempty"`
	Notes           string           `json:"notes" validate:"omitempty,max=1000"`
}

// Response DTOs

type BookingResponse struct {
	ID              uuid.UUID         `json:"id"`
	BookingCode     string            `json:"booking_code"`
	StudentID       uuid.UUID         `json:"student_id"`
	TutorID         string            `json:"tutor_id"`
	TutorName       string            `json:"tutor_name,omitempty"`
	Subject         string            `json:"subject"`
	Mode            string            `json:"mode"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	DurationMinutes int               `json:"duration_minutes"`
	Location        *LocationResponse `json:"location,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Amount          string            `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Status          string            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}
