// Package api exposes the auth service and the chat proxy over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"authchat/internal/auth"
	"authchat/internal/observability"
)

// WelcomeText is served on the root path.
const WelcomeText = "Welcome to My Backend API! Use /api/auth for authentication-related endpoints."

// AuthService is the part of auth.Service the handlers use.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*auth.SignupResult, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyAuthToken(token string) (string, error)
}

// ChatService answers chat messages.
type ChatService interface {
	Reply(ctx context.Context, message string) (string, error)
}

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// Options configures a Server.
type Options struct {
	Auth    AuthService
	Chat    ChatService
	Health  HealthFunc
	Metrics *observability.Metrics
	Logger  *zap.Logger

	// FrontendURL is the only origin allowed by CORS.
	FrontendURL string

	// AccessLog receives one combined-format line per request when set.
	AccessLog io.Writer
}

// Server holds the HTTP handlers.
type Server struct {
	auth    AuthService
	chat    ChatService
	health  HealthFunc
	metrics *observability.Metrics
	logger  *zap.Logger
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router and wraps it with recovery, CORS and the
// optional access log.
func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if opts.Chat == nil {
		return nil, fmt.Errorf("chat service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		auth:    opts.Auth,
		chat:    opts.Chat,
		health:  opts.Health,
		metrics: opts.Metrics,
		logger:  logger,
	}
	s.router = s.routes()

	var h http.Handler = s.router
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{opts.FrontendURL}),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
	)(h)
	if opts.AccessLog != nil {
		h = handlers.LoggingHandler(opts.AccessLog, h)
	}
	s.handler = h

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/", s.handleWelcome).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRouter.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	authRouter.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	authRouter.Handle("/me", s.RequireAuth(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)

	return r
}

// recoveryLogger adapts zap to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("panic recovered", zap.String("panic", fmt.Sprint(v...)))
}
