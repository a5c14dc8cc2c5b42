// Package auth manages operator accounts and login sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
)

// sessionTTL is how long a login token stays valid.
const sessionTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("usuário ou senha incorretos")
	ErrUserInactive       = errors.New("usuário inativo")
	ErrSessionExpired     = errors.New("sessão expirada")
)

type Service struct {
	users repo.UserRepository
	now   func() time.Time
}

func NewService(users repo.UserRepository) *Service {
	return &Service{users: users, now: time.Now}
}

// WithClock overrides the service clock (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser registers a new operator account.
func (s *Service) CreateUser(ctx context.Context, username, password, fullName string, email *string, role model.Role) (int64, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Email:        email,
		Role:         role,
		Active:       true,
	})
}

// Login authenticates the operator and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (model.User, string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return model.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, "", err
	}

	if !u.Active {
		return model.User{}, "", ErrUserInactive
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return model.User{}, "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	now := s.now()

	if _, err := s.users.CreateSession(ctx, model.Session{
		UserID:  u.ID,
		Token:   token,
		LoginAt: now,
	}); err != nil {
		return model.User{}, "", fmt.Errorf("create session: %w", err)
	}
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return model.User{}, "", err
	}

	return u, token, nil
}

// Validate resolves a session token to its operator, rejecting closed or
// expired sessions.
func (s *Service) Validate(ctx context.Context, token string) (model.User, error) {
	sess, err := s.users.GetSessionByToken(ctx, token)
	if errors.Is(err, repo.ErrNotFound) {
		return model.User{}, ErrSessionExpired
	}
	if err != nil {
		return model.User{}, err
	}

	if !sess.Active || s.now().Sub(sess.LoginAt) > sessionTTL {
		return model.User{}, ErrSessionExpired
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return model.User{}, err
	}
	if !u.Active {
		return model.User{}, ErrUserInactive
	}
	return u, nil
}

// Logout closes the session.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.users.CloseSession(ctx, token, s.now())
}
