package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"workmatch/internal/config"
	"workmatch/internal/events"
	"workmatch/internal/metrics"
	"workmatch/internal/ratelimit"
	"workmatch/internal/security"
	"workmatch/internal/service"
	"workmatch/internal/store"

	_ "workmatch/docs"
)

// Deps are the collaborators the router wires into services and middleware.
type Deps struct {
	Config    *config.Config
	Repos     store.Repositories
	Tokens    *security.TokenService
	Cipher    service.Cipher
	Publisher events.Publisher
	Limiter   ratelimit.Limiter
	Logger    *zap.Logger
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}

	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	userSvc := service.NewUserService(d.Repos.Users)
	convSvc := service.NewConversationService(d.Repos.Conversations, d.Repos.Users, d.Cipher, publisher, log)
	msgSvc := service.NewMessageService(d.Repos.Conversations, d.Repos.Messages, d.Cipher, publisher, log, cfg.MessageMaxLength)
	relSvc := service.NewRelationshipService(d.Repos.Relationships, d.Repos.Users, publisher, log)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
			"docs":    "/docs/index.html",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API routes, all authenticated
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(d.Tokens, d.Repos.Users))

		r.Get("/me", handleMe())
		r.Patch("/me/availability", handleSetAvailability(userSvc))
		r.Patch("/me/needed-specialists", handleSetNeededSpecialists(userSvc))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", handleListUsers(userSvc))
			r.Get("/{userID}", handleGetUser(userSvc))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.With(RateLimit(d.Limiter, "conversations")).Post("/", handleFindOrCreateConversation(convSvc))
			r.Get("/", handleListConversations(convSvc))
			r.Get("/{conversationID}", handleGetConversation(convSvc))
			r.Patch("/{conversationID}/read", handleMarkConversationRead(msgSvc))
			r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
			r.With(RateLimit(d.Limiter, "messages")).Post("/{conversationID}/messages", handleCreateMessageInConversation(msgSvc))
		})

		r.With(RateLimit(d.Limiter, "messages")).Post("/messages", handleCreateMessage(msgSvc))

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", handleAddRelationship(relSvc))
			r.Get("/", handleListRelationships(relSvc))
			r.Patch("/{relationshipID}", handleSetRelationshipDone(relSvc))
			r.Delete("/{relationshipID}", handleRemoveRelationship(relSvc))
		})
	})

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
