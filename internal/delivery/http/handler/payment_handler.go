package handler

import (
	"encoding/json"
	"net/http"

	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/usecase"
	"tutorinminutes-backend/pkg/response"
	"tutorinminutes-backend/pkg/validator"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	intent, err := h.paymentUsecase.CreatePaymentIntent(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to create payment intent")
		return
	}

	response.Success(w, http.StatusCreated, "Payment intent created successfully", intent)
}

func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.paymentUsecase.ConfirmPayment(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to confirm payment")
		return
	}

	response.Success(w, http.StatusOK, "Payment processed", result)
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrUnauthenticated:
		response.Unauthorized(w, "Invalid token")
	case usecase.ErrBookingNotFound:
		response.NotFound(w, "Booking not found")
	case usecase.ErrPaymentIntentNotFound:
		response.NotFound(w, "Payment intent not found")
	case usecase.ErrBookingNotOwned:
		response.Forbidden(w, "Booking does not belong to you")
	case usecase.ErrBookingAlreadyCancelled:
		response.Conflict(w, "Booking is cancelled")
	case usecase.ErrBookingAlreadyPaid:
		response.Conflict(w, "Booking is already paid")
	case usecase.ErrPaymentFailed:
		response.Error(w, http.StatusPaymentRequired, "Payment could not be processed", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
