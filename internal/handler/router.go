package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mentorcrm/chat/internal/config"
	catalogHandler "github.com/mentorcrm/chat/internal/handler/catalog"
	"github.com/mentorcrm/chat/internal/handler/chat"
	middlewarePkg "github.com/mentorcrm/chat/internal/middleware"
	"github.com/mentorcrm/chat/internal/model/catalog"
	aiService "github.com/mentorcrm/chat/internal/service/ai"
	chatService "github.com/mentorcrm/chat/internal/service/chat"
	"github.com/mentorcrm/chat/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, catalogs catalog.Store, chatSvc *chatService.Service, responder aiService.Responder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	tokens := middlewarePkg.NewTokens(cfg.Tokens)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		// The websocket authenticates through its query token and reports
		// failures with a close code, not an HTTP status.
		chat.NewWebSocketHandler(chatSvc, responder, tokens).RegisterRoutes(api)

		api.Group(func(rest chi.Router) {
			rest.Use(tokens.Bearer)
			chat.New(chatSvc).RegisterRoutes(rest)
			catalogHandler.New(catalogs).RegisterRoutes(rest)
		})
	})

	return r
}
