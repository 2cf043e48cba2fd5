package dto

// Request DTOs

type CreatePaymentIntentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

// Response DTOs

type PaymentIntentResponse struct {
	BookingID       string `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

type PaymentConfirmResponse struct {
	BookingID       string `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	PaymentStatus   string `json:"payment_status"`
	BookingStatus   string `json:"booking_status"`
}
