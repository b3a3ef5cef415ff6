package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type RouterConfig struct {
	Auth           ports.AuthService
	AllowedOrigins []string
	GraphQLPath    string
	// GraphQL is mounted at GraphQLPath when set.
	GraphQL http.Handler
}

func NewHandler(pollHandler *PollHandler, voteHandler *VoteHandler, eventHandler *EventHandler, authHandler *AuthHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(Authenticate(cfg.Auth))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", pollHandler.ListPolls)
			r.Get("/count", pollHandler.PollCount)
			r.Get("/{id}", pollHandler.GetPoll)
			r.Get("/{id}/voters/{identity}", voteHandler.HasVoted)

			r.Group(func(r chi.Router) {
				r.Use(RequireIdentity)
				r.Post("/", pollHandler.CreatePoll)
				r.Post("/{id}/votes", voteHandler.VoteOnPoll)
			})
		})

		r.Get("/users/{identity}/polls", pollHandler.UserPolls)
		r.Get("/events", eventHandler.ListEvents)
	})

	if authHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	}

	if cfg.GraphQL != nil {
		path := cfg.GraphQLPath
		if path == "" {
			path = "/graphql"
		}
		r.Handle(path, cfg.GraphQL)
	}

	return r
}
