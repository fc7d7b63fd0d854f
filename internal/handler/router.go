package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ai-friend/backend/internal/handler/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/handler/stream"
	"github.com/zhouzirui/ai-friend/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/ai-friend/backend/internal/middleware"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
	"github.com/zhouzirui/ai-friend/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the session service.
func NewRouter(sessions *session.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(sessions)
	streamHandler := stream.New(sessions)
	wsHandler := ws.New(sessions)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)

		api.Method(http.MethodGet, "/stream", streamHandler)

		wsHandler.RegisterRoutes(api)
	})

	return r
}
