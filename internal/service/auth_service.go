package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"salescrm/internal/apierror"
	"salescrm/internal/dto"
	"salescrm/internal/model"
	"salescrm/internal/repository"
	"salescrm/internal/session"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const maxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Token    string
	Session  *session.Session
	Redirect string
}

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) error
	Login(ctx context.Context, req dto.LoginRequest) (*LoginResult, error)
	// Logout ends s; a nil session is a no-op.
	Logout(ctx context.Context, s *session.Session) error
	ResetUsers(ctx context.Context) (int64, error)
}

type authService struct {
	repo          repository.UserRepository
	sessions      *session.Manager
	bcryptCost    int
	loginRedirect string
}

func NewAuthService(repo repository.UserRepository, sessions *session.Manager, bcryptCost int, loginRedirect string) AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{repo: repo, sessions: sessions, bcryptCost: bcryptCost, loginRedirect: loginRedirect}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) error {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return apierror.Validation("Username, email and password are required")
	}
	if !emailPattern.MatchString(email) {
		return apierror.Validation("Invalid email address")
	}

	// bcrypt only looks at the first 72 bytes and rejects longer input.
	if len(req.Password) > maxPasswordBytes {
		return apierror.Validation("Password must be at most 72 bytes")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return apierror.Storage("Failed to check existing users", err)
	}
	if exists {
		return apierror.Conflict("Username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return apierror.Validation("Password must be at most 72 bytes")
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierror.Conflict("Username or email already exists")
		}
		return apierror.Storage("Failed to create user", err)
	}

	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*LoginResult, error) {
	identifier := req.Identifier()
	if identifier == "" || req.Password == "" {
		return nil, apierror.Validation("Login identifier and password are required")
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.Authentication("Invalid credentials")
	}
	if err != nil {
		return nil, apierror.Storage("Failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Info().Str("username", user.Username).Msg("login rejected: bad password")
		return nil, apierror.Authentication("Invalid credentials")
	}

	token, sess, err := s.sessions.Issue(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", user.Username).Str("session_id", sess.ID).Msg("user logged in")
	return &LoginResult{Token: token, Session: sess, Redirect: s.loginRedirect}, nil
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
		return err
	}
	log.Info().Str("username", sess.Username).Str("session_id", sess.ID).Msg("user logged out")
	return nil
}

func (s *authService) ResetUsers(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, apierror.Storage("Failed to reset users", err)
	}
	return n, nil
}
