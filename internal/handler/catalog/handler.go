package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentorcrm/chat/internal/model/catalog"
	"github.com/mentorcrm/chat/pkg/utils"
)

// Handler serves the platform list resources.
type Handler struct {
	store catalog.Store
}

// New creates a list resource handler.
func New(store catalog.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers a read-only list route per resource.
func (h *Handler) RegisterRoutes(r chi.Router) {
	for kind, path := range catalog.Paths {
		r.Get(path, h.handleList(kind))
	}
}

// handleList lists every entry of one resource.
func (h *Handler) handleList(kind catalog.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, h.store.List(kind))
	}
}
