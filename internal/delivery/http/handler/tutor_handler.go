package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/usecase"
	"tutorinminutes-backend/pkg/response"
	"tutorinminutes-backend/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
)

type TutorHandler struct {
	tutorUsecase usecase.TutorUsecase
	validator    *validator.CustomValidator
	decoder      *schema.Decoder
}

func NewTutorHandler(tutorUsecase usecase.TutorUsecase, validator *validator.CustomValidator) *TutorHandler {
	return &TutorHandler{
		tutorUsecase: tutorUsecase,
		validator:    validator,
		decoder:      newQueryDecoder(),
	}
}

// ListTutors handles GET /tutors with filter, sort and pagination parameters.
func (h *TutorHandler) ListTutors(w http.ResponseWriter, r *http.Request) {
	var q dto.TutorListQuery
	if !h.decodeQuery(w, r, &q) {
		return
	}

	tutors, err := h.tutorUsecase.ListTutors(r.Context(), &q)
	if err != nil {
		h.writeListError(w, err)
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Tutors retrieved successfully", tutors.Tutors,
		response.NewMeta(tutors.Page, tutors.Limit, int64(tutors.Total)))
}

func (h *TutorHandler) SearchTutors(w http.ResponseWriter, r *http.Request) {
	var q dto.TutorListQuery
	if !h.decodeQuery(w, r, &q) {
		return
	}

	tutors, err := h.tutorUsecase.SearchTutors(r.Context(), &q)
	if err != nil {
		h.writeListError(w, err)
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Tutors retrieved successfully", tutors.Tutors,
		response.NewMeta(tutors.Page, tutors.Limit, int64(tutors.Total)))
}

func (h *TutorHandler) writeListError(w http.ResponseWriter, err error) {
	switch err {
	case usecase.ErrSearchTermRequired:
		response.BadRequest(w, "Search term is required")
	case usecase.ErrLocationIncomplete:
		response.BadRequest(w, "lat and lng must be given together")
	default:
		response.InternalServerError(w, "Failed to get tutors")
	}
}

func (h *TutorHandler) GetNearbyTutors(w http.ResponseWriter, r *http.Request) {
	var q dto.NearbyQuery
	if !h.decodeQuery(w, r, &q) {
		return
	}

	tutors, err := h.tutorUsecase.GetNearbyTutors(r.Context(), &q)
	if err != nil {
		response.InternalServerError(w, "Failed to get nearby tutors")
		return
	}

	response.Success(w, http.StatusOK, "Nearby tutors retrieved successfully", tutors)
}

func (h *TutorHandler) GetTutor(w http.ResponseWriter, r *http.Request) {
	tutor, err := h.tutorUsecase.GetTutor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		switch err {
		case usecase.ErrTutorNotFound:
			response.NotFound(w, "Tutor not found")
		default:
			response.InternalServerError(w, "Failed to get tutor")
		}
		return
	}

	response.Success(w, http.StatusOK, "Tutor retrieved successfully", tutor)
}

func (h *TutorHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var q dto.AvailabilityQuery
	if !h.decodeQuery(w, r, &q) {
		return
	}

	availability, err := h.tutorUsecase.GetAvailability(r.Context(), mux.Vars(r)["id"], &q)
	if err != nil {
		switch err {
		case usecase.ErrTutorNotFound:
			response.NotFound(w, "Tutor not found")
		case usecase.ErrInvalidDateFormat:
			response.BadRequest(w, "Invalid date format, use YYYY-MM-DD")
		case usecase.ErrDateInPast:
			response.BadRequest(w, "Date is in the past")
		default:
			response.InternalServerError(w, "Failed to get availability")
		}
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", availability)
}

// CheckService handles POST /check-service.
func (h *TutorHandler) CheckService(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.tutorUsecase.CheckService(r.Context(), &req)
	if err != nil {
		response.InternalServerError(w, "Failed to check service availability")
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

func (h *TutorHandler) CreateTutor(w http.ResponseWriter, r *http.Request) {
	var req dto.TutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	tutor, err := h.tutorUsecase.CreateTutor(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidTutor):
			response.Error(w, http.StatusBadRequest, "Invalid tutor record", err.Error())
		case errors.Is(err, usecase.ErrTutorAlreadyExists):
			response.Conflict(w, "Tutor already exists")
		default:
			response.InternalServerError(w, "Failed to create tutor")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Tutor created successfully", tutor)
}

func (h *TutorHandler) UpdateTutor(w http.ResponseWriter, r *http.Request) {
	var req dto.TutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	tutor, err := h.tutorUsecase.UpdateTutor(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidTutor):
			response.Error(w, http.StatusBadRequest, "Invalid tutor record", err.Error())
		case errors.Is(err, usecase.ErrTutorNotFound):
			response.NotFound(w, "Tutor not found")
		default:
			response.InternalServerError(w, "Failed to update tutor")
		}
		return
	}

	response.Success(w, http.StatusOK, "Tutor updated successfully", tutor)
}

func (h *TutorHandler) DeleteTutor(w http.ResponseWriter, r *http.Request) {
	err := h.tutorUsecase.DeleteTutor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		switch err {
		case usecase.ErrTutorNotFound:
			response.NotFound(w, "Tutor not found")
		case usecase.ErrTutorHasBookings:
			response.Conflict(w, "Tutor still has bookings")
		default:
			response.InternalServerError(w, "Failed to delete tutor")
		}
		return
	}

	response.Success(w, http.StatusOK, "Tutor deleted successfully", nil)
}

func (h *TutorHandler) decodeQuery(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeAndValidateQuery(w, r, h.decoder, h.validator, dst)
}
