package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/domain"
	"clevermock-web/internal/interview"
	"clevermock-web/internal/observability"
	"clevermock-web/internal/session"
)

const (
	maxCVSize = 10 << 20
	// Room for the text fields and multipart framing around the file.
	maxPrepareBody = maxCVSize + 1<<20
)

var allowedCVExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// PrepareHandler handles interview preparation: CV upload, plan refinement
// and acceptance.
type PrepareHandler struct {
	clients *SessionClients
}

func NewPrepareHandler(clients *SessionClients) *PrepareHandler {
	return &PrepareHandler{clients: clients}
}

// Start uploads the CV and remembers the new conversation for this tab.
func (h *PrepareHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := observability.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxPrepareBody)
	if err := r.ParseMultipartForm(maxCVSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "CV must be 10MB or smaller")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please upload a CV file")
		return
	}
	defer file.Close()

	if header.Size > maxCVSize {
		writeError(w, http.StatusRequestEntityTooLarge, "CV must be 10MB or smaller")
		return
	}
	if !allowedCVExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		writeError(w, http.StatusBadRequest, "CV must be a PDF or Word document")
		return
	}

	position := strings.TrimSpace(r.FormValue("position"))
	instruction := strings.TrimSpace(r.FormValue("instruction"))

	client := h.clients.Client(w, r)
	resp, err := client.StartPreparation(r.Context(), apiclient.CVFile{
		Name:    header.Filename,
		Content: file,
	}, position, instruction)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	conv := domain.ConversationContext{
		ConversationID:   resp.ConversationID,
		Position:         position,
		Instruction:      instruction,
		CVName:           header.Filename,
		InterviewDetails: resp.InterviewDetails,
		Status:           resp.Status,
	}
	if err := h.clients.Contexts(w, r).Save(r.Context(), conv); err != nil {
		log.Error("failed to save interview context", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to start preparation")
		return
	}

	log.Info("interview preparation started", slog.String("conversation_id", conv.ConversationID))
	writeJSON(w, http.StatusOK, conv)
}

// Context returns the conversation of this tab.
func (h *PrepareHandler) Context(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.loadContext(w, r, h.clients.Contexts(w, r))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Refine forwards feedback on the plan and stores the updated plan.
func (h *PrepareHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var form RefineForm
	if !decodeForm(w, r, &form) {
		return
	}

	contexts := h.clients.Contexts(w, r)
	conv, ok := h.loadContext(w, r, contexts)
	if !ok {
		return
	}

	resp, err := h.clients.Client(w, r).RefineDetails(r.Context(), conv.ConversationID, form.Message)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	conv.InterviewDetails = resp.InterviewDetails
	if err := contexts.Save(r.Context(), conv); err != nil {
		observability.FromContext(r.Context()).Error("failed to save interview context",
			slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, conv)
}

// Accept locks in the plan so the interview room can open.
func (h *PrepareHandler) Accept(w http.ResponseWriter, r *http.Request) {
	contexts := h.clients.Contexts(w, r)
	conv, ok := h.loadContext(w, r, contexts)
	if !ok {
		return
	}

	resp, err := h.clients.Client(w, r).AcceptDetails(r.Context(), conv.ConversationID)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	if resp.Status != "" {
		conv.Status = resp.Status
	}
	if err := contexts.Save(r.Context(), conv); err != nil {
		observability.FromContext(r.Context()).Error("failed to save interview context",
			slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *PrepareHandler) loadContext(w http.ResponseWriter, r *http.Request, contexts *session.ContextStore) (domain.ConversationContext, bool) {
	conv, err := contexts.Load(r.Context())
	switch {
	case err == nil:
		return conv, true
	case errors.Is(err, domain.ErrNoContext):
		writeError(w, http.StatusNotFound, interview.ErrorNoContext.Message())
	case errors.Is(err, domain.ErrNoConversationID):
		writeError(w, http.StatusNotFound, interview.ErrorNoConversationID.Message())
	default:
		observability.FromContext(r.Context()).Error("failed to load interview context",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgUnexpected)
	}
	return domain.ConversationContext{}, false
}
