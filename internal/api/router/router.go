package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/healthcareplus/clinic-assistant/internal/conversation"
	httpmiddleware "github.com/healthcareplus/clinic-assistant/internal/http/middleware"
	"github.com/healthcareplus/clinic-assistant/internal/scheduling"
	"github.com/healthcareplus/clinic-assistant/internal/webchat"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	ChatHandler     *conversation.Handler
	CalendarHandler *scheduling.Handler
	WebChatHandler  *webchat.Handler
	MetricsHandler  http.Handler

	CORSAllowedOrigins []string

	// Requests/sec per client on the chat endpoints; 0 disables limiting.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			api.Group(func(chat chi.Router) {
				if cfg.ChatRateLimit > 0 {
					chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
				}
				chat.Post("/chat", cfg.ChatHandler.Chat)
			})
		}
		if cfg.CalendarHandler != nil {
			api.Route("/calendar", cfg.CalendarHandler.RegisterRoutes)
		}
	})

	if cfg.WebChatHandler != nil {
		r.Route("/webchat", func(wc chi.Router) {
			wc.Get("/ws", cfg.WebChatHandler.HandleWebSocket)
			wc.Post("/message", cfg.WebChatHandler.HandleMessage)
			wc.Get("/history", cfg.WebChatHandler.HandleHistory)
			wc.Get("/widget.js", cfg.WebChatHandler.HandleWidgetJS)
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
