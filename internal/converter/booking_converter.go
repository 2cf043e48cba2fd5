package converter

import (
	"time"

	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/domain/entity"
)

// BookingToResponse converts a Booking entity to BookingResponse DTO
func BookingToResponse(booking *entity.Booking) *dto.BookingResponse {
	if booking == nil {
		return nil
	}

	response := &dto.BookingResponse{
		ID:              booking.ID,
		BookingCode:     booking.BookingCode,
		StudentID:       booking.StudentID,
		TutorID:         booking.TutorID,
		Subject:         booking.Subject,
		Mode:            booking.Mode,
		Date:            booking.SessionDate.Format(time.DateOnly),
		Time:            booking.StartTime,
		DurationMinutes: booking.DurationMinutes,
		Notes:           booking.Notes,
		Amount:          booking.Amount.StringFixed(2),
		Currency:        booking.Currency,
		Status:          string(booking.Status),
		CreatedAt:       booking.CreatedAt,
		UpdatedAt:       booking.UpdatedAt,
	}

	// Tutor is only set when preloaded
	if booking.Tutor.ID != "" {
		response.TutorName = booking.Tutor.Name
	}
	if booking.Latitude != nil && booking.Longitude != nil {
		response.Location = &dto.LocationResponse{
			Lat:     *booking.Latitude,
			Lng:     *booking.Longitude,
			Address: booking.Address,
		}
	}
	if booking.PaymentIntentID != nil {
		response.PaymentIntentID = *booking.PaymentIntentID
	}

	return response
}

// BookingsToResponses converts a slice of Booking entities to slice of BookingResponse DTOs
func BookingsToResponses(bookings []entity.Booking) []dto.BookingResponse {
	responses := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		responses[i] = *BookingToResponse(&bookings[i])
	}
	return responses
}
