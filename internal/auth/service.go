package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dailyattend/internal/apperr"
	"dailyattend/internal/metrics"
	"dailyattend/internal/model"
	"dailyattend/internal/store"
)

// UserStore is the slice of storage the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role model.Role) (int64, error)
	FindUserByName(ctx context.Context, username string) (model.User, error)
}

// Service registers users, checks credentials and verifies tokens.
type Service struct {
	users  UserStore
	hasher *Hasher
	signer *Signer
}

// NewService wires the authenticator.
func NewService(users UserStore, hasher *Hasher, signer *Signer) *Service {
	return &Service{users: users, hasher: hasher, signer: signer}
}

// Register creates a user with the default role and returns its id.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	return s.CreateUser(ctx, username, password, model.RoleUser)
}

// CreateUser creates a user with an explicit role. Only the admin CLI calls it with RoleAdmin.
func (s *Service) CreateUser(ctx context.Context, username, password string, role model.Role) (int64, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return 0, fmt.Errorf("%w: username and password required", apperr.ErrInvalidInput)
	}
	if !role.Valid() {
		return 0, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, role)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return 0, fmt.Errorf("%w: password too long", apperr.ErrInvalidInput)
		}
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.users.CreateUser(ctx, username, hash, role)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.Registrations.WithLabelValues("duplicate").Inc()
			return 0, apperr.ErrDuplicateUser
		}
		return 0, fmt.Errorf("%w: create user: %v", apperr.ErrStorage, err)
	}
	metrics.Registrations.WithLabelValues("created").Inc()
	return id, nil
}

// Login checks the credentials and returns a signed token. An unknown user and a
// wrong password both return apperr.ErrInvalidCredentials after equal hashing work.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindUserByName(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: find user: %v", apperr.ErrStorage, err)
		}
		s.hasher.CompareDummy(password)
		metrics.Logins.WithLabelValues("rejected").Inc()
		return "", apperr.ErrInvalidCredentials
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return "", apperr.ErrInvalidCredentials
	}
	token, err := s.signer.Issue(u.ID, u.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	metrics.Logins.WithLabelValues("accepted").Inc()
	return token, nil
}

// Authenticate verifies a bearer token. An empty token is apperr.ErrMissingToken.
func (s *Service) Authenticate(token string) (Claims, error) {
	if token == "" {
		return Claims{}, apperr.ErrMissingToken
	}
	return s.signer.Parse(token)
}
