// Package auth implements registration, login and the bearer-token session
// middleware.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-task-go/internal/user/repo"
)

const (
	msgUserExists         = "User already exists with this email"
	msgInvalidCredentials = "Invalid credentials"
)

// RegisterCommand is the register request body.
type RegisterCommand struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var registerMessages = apperr.Messages{
	"name.required":     "Name is required",
	"name":              "Name must be between 2 and 50 characters",
	"email.required":    "Email is required",
	"email":             "Please provide a valid email",
	"password.required": "Password is required",
	"password":          "Password must be at least 6 characters",
}

// LoginCommand is the login request body.
type LoginCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = apperr.Messages{
	"email.required":    "Email is required",
	"email":             "Please provide a valid email",
	"password.required": "Password is required",
}

// Session is returned by Register and Login.
type Session struct {
	Token string            `json:"token"`
	User  entity.PublicView `json:"user"`
}

// Service orchestrates registration and password authentication.
type Service struct {
	users  userrepo.UserRepository
	hasher PasswordHasher
	tokens *TokenManager
	logger *zap.SugaredLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users userrepo.UserRepository, hasher PasswordHasher, tokens *TokenManager, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// Register creates an account and signs the new user in.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Session, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Email = strings.TrimSpace(cmd.Email)
	if err := apperr.ValidateStruct(cmd, registerMessages); err != nil {
		return nil, err
	}
	email := entity.NormalizeEmail(cmd.Email)

	// Cheap pre-check for the common case; the unique index decides races.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict(msgUserExists)
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, oops.In("auth").With("op", "hash").Wrap(err)
	}
	u := &entity.User{Name: cmd.Name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, apperr.Conflict(msgUserExists).WithCause(err)
		}
		return nil, err
	}
	s.logger.Infow("user registered", "user_id", u.ID)
	return s.session(u)
}

// Login verifies the password for email. Unknown emails and wrong passwords
// fail identically and both cost one hash comparison.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*Session, error) {
	cmd.Email = strings.TrimSpace(cmd.Email)
	if err := apperr.ValidateStruct(cmd, loginMessages); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, entity.NormalizeEmail(cmd.Email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			s.verifyDummy(cmd.Password)
			return nil, apperr.Authentication(msgInvalidCredentials)
		}
		return nil, err
	}
	if u.PasswordHash == "" || !s.hasher.Verify(u.PasswordHash, cmd.Password) {
		s.logger.Debugw("login failed", "user_id", u.ID)
		return nil, apperr.Authentication(msgInvalidCredentials)
	}
	return s.session(u)
}

// Logout is an acknowledgement only; tokens expire on their own.
func (s *Service) Logout(context.Context, *entity.User) error {
	return nil
}

func (s *Service) session(u *entity.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, oops.In("auth").With("op", "issue token", "user_id", u.ID).Wrap(err)
	}
	return &Session{Token: token, User: u.Public()}, nil
}

func (s *Service) verifyDummy(pw string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equalizer")
		if err != nil {
			s.logger.Warnw("dummy hash failed", "err", err)
		}
		s.dummyHash = h
	})
	s.hasher.Verify(s.dummyHash, pw)
}
