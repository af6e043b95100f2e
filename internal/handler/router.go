package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/aidiary/backend/internal/config"
	chathandler "github.com/aidiary/backend/internal/handler/chat"
	diaryhandler "github.com/aidiary/backend/internal/handler/diary"
	settingshandler "github.com/aidiary/backend/internal/handler/settings"
	"github.com/aidiary/backend/internal/middleware"
	chatservice "github.com/aidiary/backend/internal/service/chat"
	diaryservice "github.com/aidiary/backend/internal/service/diary"
	"github.com/aidiary/backend/internal/service/llm"
	"github.com/aidiary/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg *config.Config, resolver *llm.Resolver, prober llm.KeyProber, responder *chatservice.Responder, synthesizer *diaryservice.Synthesizer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.FrontendURL, cfg.Server.Production))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimitMax, 15*time.Minute))

	chatHandler := chathandler.New(responder, resolver)
	diaryHandler := diaryhandler.New(synthesizer, resolver)
	settingsHandler := settingshandler.New(resolver, prober)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		diaryHandler.RegisterRoutes(api)
		settingsHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":    "OK",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})

		api.Get("/test", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"message":           "AI Diary Server is running!",
				"openai_configured": resolver.Available(""),
				"model":             resolver.Model(),
			})
		})
	})

	return r
}
