package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
)

// AuthService signs users in and issues session tokens.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService / PasswordService
//
// There is no self sign-up: both password and GitHub logins must resolve to
// an account that already exists (see ProfileService.Register).
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the signed-in user and their token so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// errBadCredentials is deliberately the same for "no such user", "wrong
// password" and "inactive": the response must not reveal which usernames
// exist.
func errBadCredentials() error {
	return apperror.Unauthorized("invalid username or password")
}

// LoginPassword checks a username/password pair.
func (s *AuthService) LoginPassword(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("username", "username and password are required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("service/auth: loading user %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("password login rejected", slog.String("username", username))
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password of %q: %w", username, err)
	}
	if !user.IsActive {
		return nil, errBadCredentials()
	}

	return s.issue(user, "password")
}

// LoginGitHub signs in the local account linked to a GitHub login.
// Unknown GitHub accounts are refused.
func (s *AuthService) LoginGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil || ghUser.Login == "" {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubLogin(ctx, ghUser.Login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("GitHub login without linked account", slog.String("githubLogin", ghUser.Login))
			return nil, apperror.Unauthorized(
				fmt.Sprintf("GitHub account %q is not linked to a Reps profile", ghUser.Login))
		}
		return nil, fmt.Errorf("service/auth: loading user for GitHub login %q: %w", ghUser.Login, err)
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("account is inactive")
	}

	return s.issue(user, "github")
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// ValidateToken returns the user ID inside a session token.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
