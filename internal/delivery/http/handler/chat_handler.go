package handler

import (
	"encoding/json"
	"net/http"

	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/usecase"
	"tutorinminutes-backend/pkg/response"
	"tutorinminutes-backend/pkg/validator"
)

type ChatHandler struct {
	chatUsecase usecase.ChatUsecase
	validator   *validator.CustomValidator
}

func NewChatHandler(chatUsecase usecase.ChatUsecase, validator *validator.CustomValidator) *ChatHandler {
	return &ChatHandler{
		chatUsecase: chatUsecase,
		validator:   validator,
	}
}

// Reply handles POST /chat. An unreachable agent still yields 200 with the
// fallback text.
func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	reply, err := h.chatUsecase.Reply(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrEmptyChatMessage:
			response.BadRequest(w, "Message is empty")
		default:
			response.InternalServerError(w, "Failed to reach support")
		}
		return
	}

	response.Success(w, http.StatusOK, "Reply received", reply)
}
