// Package httpapi exposes the user and contact services over HTTP.
// It owns routing, the bearer-token middleware, and the mapping from
// service errors to response status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contactkeeper/internal/logging"
	"github.com/dmitrijs2005/contactkeeper/internal/server/models"
	"github.com/dmitrijs2005/contactkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserService is the subset of the user service the HTTP layer calls.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// ContactService is the subset of the contact service the HTTP layer calls.
type ContactService interface {
	List(ctx context.Context, ownerID string) ([]*models.Contact, error)
	Get(ctx context.Context, id string) (*models.Contact, error)
	Create(ctx context.Context, ownerID, name, phone string, extra map[string]string) (*models.Contact, error)
	Update(ctx context.Context, id string, callerID string, patch *services.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, id string, callerID string) (*models.Contact, error)
}

type Server struct {
	address   string
	logger    logging.Logger
	users     UserService
	contacts  ContactService
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, us UserService, cs ContactService, secretKey string) (*Server, error) {
	return &Server{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		contacts:  cs,
		jwtSecret: []byte(secretKey),
	}, nil
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.With(s.requireAccessToken).Get("/current", s.handleCurrentUser)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Use(s.requireAccessToken)
			r.Get("/", s.handleListContacts)
			r.Post("/", s.handleCreateContact)
			r.Route("/{contactID}", func(r chi.Router) {
				r.Get("/", s.handleGetContact)
				r.Put("/", s.handleUpdateContact)
				r.Delete("/", s.handleDeleteContact)
			})
		})
	})

	return r
}

// Run starts the HTTP server and drains it when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
