package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/repository"
)

const minPasswordLength = 8

// TokenIssuer mints session tokens. *auth.TokenManager implements it.
type TokenIssuer interface {
	Issue(user *model.User) (string, *model.AuthContext, error)
}

// TokenRevoker records revoked session tokens. *cache.Cache implements it.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// AccountService handles registration, login and sessions.
type AccountService struct {
	users   UserStore
	tokens  TokenIssuer
	revoker TokenRevoker
	metrics metrics.Recorder
	now     Clock
}

// NewAccountService creates a new AccountService.
// tokens and revoker may be nil for callers that only create users.
func NewAccountService(users UserStore, tokens TokenIssuer, revoker TokenRevoker, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		metrics: recorder,
		now:     time.Now,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is an issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Register creates a USER account.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	return s.CreateUser(ctx, input, model.RoleUser)
}

// CreateUser creates an account with the given role.
func (s *AccountService) CreateUser(ctx context.Context, input RegisterInput, role model.Role) (*model.User, error) {
	if !role.IsValid() {
		return nil, validationError("Invalid role")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("Name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, validationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           newID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC().Truncate(model.TimestampPrecision),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues a session token.
// Unknown emails still pay for a password verification.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validationError("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnVerification(password)
			s.metrics.IncLogin(metrics.LoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin(metrics.LoginFailure)
		return nil, ErrInvalidCredentials
	}

	token, session, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout revokes the token behind identity until it would have expired.
func (s *AccountService) Logout(ctx context.Context, identity *model.AuthContext) error {
	if identity == nil {
		return ErrUnauthenticated
	}
	if err := s.revoker.RevokeToken(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the account behind identity.
func (s *AccountService) Me(ctx context.Context, identity *model.AuthContext) (*model.User, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every account ordered by name.
func (s *AccountService) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", validationError("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("Email is invalid")
	}
	return email, nil
}
