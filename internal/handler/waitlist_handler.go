package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"clevermock-web/internal/domain"
	"clevermock-web/internal/observability"
	"clevermock-web/internal/service"
)

const (
	msgWaitlistInvalid   = "Please provide a valid email address"
	msgWaitlistDuplicate = "This email is already on the waitlist"
	msgWaitlistJoined    = "Successfully joined the waitlist!"
	msgWaitlistFailed    = "Something went wrong. Please try again later."
)

// WaitlistHandler handles the pre-launch signup form
type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

type WaitlistRequest struct {
	Email string `json:"email"`
}

type WaitlistResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    *WaitlistResponseData `json:"data,omitempty"`
}

type WaitlistResponseData struct {
	Email string `json:"email"`
}

// Join adds the submitted email to the waitlist
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req WaitlistRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, WaitlistResponse{Message: msgWaitlistInvalid})
		return
	}

	entry, err := h.waitlist.Join(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, WaitlistResponse{
			Success: true,
			Message: msgWaitlistJoined,
			Data:    &WaitlistResponseData{Email: entry.Email},
		})
	case errors.Is(err, domain.ErrInvalidEmail):
		writeJSON(w, http.StatusBadRequest, WaitlistResponse{Message: msgWaitlistInvalid})
	case errors.Is(err, domain.ErrAlreadyOnWaitlist):
		writeJSON(w, http.StatusConflict, WaitlistResponse{Message: msgWaitlistDuplicate})
	default:
		observability.FromContext(r.Context()).Error("waitlist signup failed",
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, WaitlistResponse{Message: msgWaitlistFailed})
	}
}
