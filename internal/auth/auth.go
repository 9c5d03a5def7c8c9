// Package auth implements signup, login and the password reset flow on top of
// a credential store, a password hasher, a token issuer and a mailer.
package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"authchat/internal/database"
	"authchat/internal/errutil"
	"authchat/internal/models"
)

var tracer = otel.Tracer("authchat/auth")

// Client-facing messages.
const (
	MsgUserCreated          = "User created successfully!"
	MsgMissingCredentials   = "Please provide email and password"
	MsgUserExists           = "User already exists"
	MsgInvalidCredentials   = "Invalid credentials"
	MsgEmailRequired        = "Email is required"
	MsgUserNotFound         = "User not found"
	MsgResetLinkSent        = "Password reset link sent to email"
	MsgResetFieldsRequired  = "Token and password are required"
	MsgInvalidResetToken    = "Token is invalid or has expired"
	MsgPasswordResetSuccess = "Password reset successfully"
	MsgInvalidAuthToken     = "Invalid or expired token"
)

const (
	defaultMailTimeout = 10 * time.Second
	dummyPassword      = "timing-parity-placeholder"
)

// UserStore is the persistence the service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, email, token string) (*models.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error
	CompleteReset(ctx context.Context, id primitive.ObjectID, token, passwordHash string) error
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// SignupResult is returned by a successful Signup.
type SignupResult struct {
	UserID string
	Token  string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserID string
	Token  string
}

// Service orchestrates the authentication flows.
type Service struct {
	store        UserStore
	hasher       PasswordHasher
	tokens       *TokenIssuer
	mailer       Mailer
	resetBaseURL string
	resetTTL     time.Duration
	mailTimeout  time.Duration
	now          func() time.Time
	logger       *zap.Logger
	dummyHash    string
}

// Option configures a Service.
type Option func(*Service)

// WithResetBaseURL sets the frontend URL the reset link is built on.
func WithResetBaseURL(u string) Option {
	return func(s *Service) { s.resetBaseURL = strings.TrimRight(u, "/") }
}

// WithResetTTL sets how long a persisted reset token stays valid.
func WithResetTTL(d time.Duration) Option {
	return func(s *Service) { s.resetTTL = d }
}

// WithMailTimeout bounds the reset mail delivery.
func WithMailTimeout(d time.Duration) Option {
	return func(s *Service) { s.mailTimeout = d }
}

// WithClock overrides the wall clock used for persisted expiries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. All four collaborators are required.
func NewService(store UserStore, hasher PasswordHasher, tokens *TokenIssuer, mailer Mailer, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("user store is required")
	case hasher == nil:
		return nil, errors.New("password hasher is required")
	case tokens == nil:
		return nil, errors.New("token issuer is required")
	case mailer == nil:
		return nil, errors.New("mailer is required")
	}

	s := &Service{
		store:       store,
		hasher:      hasher,
		tokens:      tokens,
		mailer:      mailer,
		resetTTL:    TokenTTL,
		mailTimeout: defaultMailTimeout,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Unknown emails are verified against this hash so that a login for a
	// missing account costs the same as one with a wrong password.
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_INIT_FAILED").With("operation", "hash dummy password").Wrap(err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Signup creates a user and returns an auth token for it.
func (s *Service) Signup(ctx context.Context, email, password string) (res *SignupResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Signup")
	defer func() { endSpan(span, err) }()

	if err = requireFields(MsgMissingCredentials, email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, hashError(err)
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if err = s.store.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, errutil.Conflict(MsgUserExists)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "create user").Wrap(err)
	}

	userID := user.ID.Hex()
	span.SetAttributes(attribute.String("user.id", userID))

	token, err := s.tokens.IssueAuthToken(userID)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "issue token").Wrap(err)
	}

	s.logger.Info("user signed up", zap.String("user_id", userID))
	return &SignupResult{UserID: userID, Token: token}, nil
}

// Login verifies the credentials and returns an auth token. An unknown email
// and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	if err = requireFields(MsgMissingCredentials, email, password); err != nil {
		return nil, err
	}

	user, lookupErr := s.store.FindByEmail(ctx, email)
	targetHash := s.dummyHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, database.ErrNotFound):
		user = nil
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "find user").Wrap(lookupErr)
	}

	// Always verify, even for unknown users, to keep response time flat.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && user != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.Hex()).
			Wrap(verifyErr)
	}
	if user == nil || !valid {
		return nil, errutil.Auth(errutil.CodeInvalidCredentials, MsgInvalidCredentials)
	}

	userID := user.ID.Hex()
	span.SetAttributes(attribute.String("user.id", userID))

	token, err := s.tokens.IssueAuthToken(userID)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue token").Wrap(err)
	}
	return &LoginResult{UserID: userID, Token: token}, nil
}

// ForgotPassword stores a fresh reset token on the user and mails a reset
// link. A new request replaces any pending token. If the mail cannot be
// delivered the pending token is rolled back.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ForgotPassword")
	defer func() { endSpan(span, err) }()

	if err = requireFields(MsgEmailRequired, email); err != nil {
		return err
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errutil.NotFound(MsgUserNotFound)
		}
		return oops.Code("AUTH_FORGOT_FAILED").With("operation", "find user").Wrap(err)
	}

	token, err := s.tokens.IssueResetToken(user.Email)
	if err != nil {
		return oops.Code("AUTH_FORGOT_FAILED").With("operation", "issue reset token").Wrap(err)
	}

	expiry := s.now().Add(s.resetTTL)
	if err = s.store.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return oops.Code("AUTH_FORGOT_FAILED").With("operation", "store reset token").Wrap(err)
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	if mailErr := s.mailer.SendPasswordReset(mailCtx, user.Email, s.resetLink(token)); mailErr != nil {
		if rbErr := s.store.ClearResetToken(ctx, user.ID, token); rbErr != nil && !errors.Is(rbErr, database.ErrNotFound) {
			s.logger.Error("failed to roll back pending reset",
				zap.String("user_id", user.ID.Hex()), zap.Error(rbErr))
		}
		return errutil.ExternalService("mail", mailErr)
	}

	s.logger.Info("password reset email sent", zap.String("user_id", user.ID.Hex()))
	return nil
}

// ResetPassword sets a new password when token is a valid, unexpired reset
// token that is still the one persisted on the user.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ResetPassword")
	defer func() { endSpan(span, err) }()

	if err = requireFields(MsgResetFieldsRequired, token, newPassword); err != nil {
		return err
	}

	// Signature and embedded expiry.
	email, parseErr := s.tokens.ParseResetToken(token)
	if parseErr != nil {
		s.logger.Debug("reset token rejected", zap.Error(parseErr))
		return invalidResetToken()
	}

	// Persisted token must be the presented one.
	user, err := s.store.FindByResetToken(ctx, email, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return invalidResetToken()
		}
		return oops.Code("AUTH_RESET_FAILED").With("operation", "find user").Wrap(err)
	}

	// Persisted expiry is checked independently of the signature.
	if user.ResetExpired(s.now()) {
		return invalidResetToken()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return hashError(err)
	}

	if err = s.store.CompleteReset(ctx, user.ID, token, hash); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return invalidResetToken()
		}
		return oops.Code("AUTH_RESET_FAILED").With("operation", "complete reset").Wrap(err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID.Hex()))
	return nil
}

// VerifyAuthToken returns the user id carried by a valid auth token.
func (s *Service) VerifyAuthToken(token string) (string, error) {
	userID, err := s.tokens.ParseAuthToken(token)
	if err != nil {
		return "", errutil.Auth(errutil.CodeInvalidAuthToken, MsgInvalidAuthToken)
	}
	return userID, nil
}

func (s *Service) resetLink(token string) string {
	return s.resetBaseURL + "/reset-password/" + url.PathEscape(token)
}

func invalidResetToken() error {
	return errutil.Auth(errutil.CodeInvalidResetToken, MsgInvalidResetToken)
}

// hashError keeps client-facing hasher errors (password too long) intact.
func hashError(err error) error {
	if errutil.IsPublic(err) {
		return err
	}
	return oops.Code("AUTH_HASH_FAILED").With("operation", "hash password").Wrap(err)
}

func requireFields(msg string, values ...string) error {
	for _, v := range values {
		if err := validation.Validate(v, validation.Required); err != nil {
			return errutil.Validation(msg)
		}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
