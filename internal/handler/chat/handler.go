package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentorcrm/chat/internal/model/chat"
	chatService "github.com/mentorcrm/chat/internal/service/chat"
	"github.com/mentorcrm/chat/pkg/utils"
)

// Handler serves the session history API.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a session history handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers the session history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/{mode}/sessions", h.handleListSessions)
	r.Get("/{mode}/sessions/{sessionID}/messages", h.handleListMessages)
	r.Delete("/{mode}/sessions/{sessionID}", h.handleDeleteSession)
}

// handleListSessions lists the sessions of one mode.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}

	sessions, err := h.chatSvc.ListSessions(r.Context(), mode)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

// handleListMessages returns the full transcript of a session.
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}

	messages, err := h.chatSvc.LoadTranscript(r.Context(), mode, chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleDeleteSession deletes a session.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}

	if err := h.chatSvc.DeleteSession(r.Context(), mode, chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func modeParam(w http.ResponseWriter, r *http.Request) (chat.Mode, bool) {
	mode := chat.Mode(chi.URLParam(r, "mode"))
	if !mode.Valid() {
		utils.RespondError(w, http.StatusNotFound, "Modo de conversa desconhecido.")
		return "", false
	}
	return mode, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "Sessão não encontrada.")
	case errors.Is(err, chatService.ErrInvalidMode):
		utils.RespondError(w, http.StatusNotFound, "Modo de conversa desconhecido.")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
