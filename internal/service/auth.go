package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/auth"
	"github.com/sakif/sendlinks/internal/model"
	"github.com/sakif/sendlinks/internal/repository"
)

// Field limits in characters, matching the column sizes in both stores.
const (
	MaxNameLength  = 100
	MaxEmailLength = 100
)

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ SessionManager (cookie token + registry)
//
// It never touches cookies or requests; the handler turns an AuthResult
// into a Set-Cookie header and a redirect.
type AuthService struct {
	users     repository.UserRepository
	socials   repository.SocialRepository
	passwords *auth.PasswordService
	sessions  *auth.SessionManager
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	socials repository.SocialRepository,
	passwords *auth.PasswordService,
	sessions *auth.SessionManager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		socials:   socials,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
	}
}

// AuthResult bundles the user with the token for their new session, so
// the handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and logs it in.
//
// Accounts are identified by email: registering an address that already
// exists returns apperror.ErrUserExists and creates nothing, whatever name
// was submitted. Two registrations racing for the same address are caught
// by the unique index and reported the same way.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	switch {
	case name == "":
		return nil, apperror.ValidationFailed("name", "Name is required.")
	case utf8.RuneCountInString(name) > MaxNameLength:
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("Name must be %d characters or less.", MaxNameLength))
	case email == "":
		return nil, apperror.ValidationFailed("email", "Email is required.")
	case !strings.Contains(email, "@"):
		return nil, apperror.ValidationFailed("email", "Email address is not valid.")
	case utf8.RuneCountInString(email) > MaxEmailLength:
		return nil, apperror.ValidationFailed("email",
			fmt.Sprintf("Email must be %d characters or less.", MaxEmailLength))
	case strings.TrimSpace(password) == "":
		return nil, apperror.ValidationFailed("password", "Password is required.")
	case len(password) > auth.MaxPasswordLength:
		return nil, apperror.ValidationFailed("password", "Password is too long.")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperror.UserExists(email)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return s.startSession(user)
}

// Login checks the email and password and starts a session.
//
// An unknown email and a wrong password produce the same
// apperror.ErrInvalidCredentials so the response does not reveal which
// addresses have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// A stored hash we cannot parse. The user still just sees a
			// failed login; the operator needs to know.
			s.logger.Error("unreadable password hash",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return s.startSession(user)
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) {
	s.sessions.Destroy(token)
}

// CurrentUser resolves a session token to its user. Any token that does
// not map to a live session and an existing user is apperror.ErrUnauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	_, user, err := s.resolve(ctx, token)
	return user, err
}

// ResolveSession is the auth.ResolveFunc the server loads sessions with.
// Unlike SessionManager.Resolve it drops sessions whose account is gone.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*auth.Session, error) {
	sess, _, err := s.resolve(ctx, token)
	return sess, err
}

func (s *AuthService) resolve(ctx context.Context, token string) (*auth.Session, *model.User, error) {
	sess, err := s.sessions.Resolve(token)
	if err != nil {
		return nil, nil, apperror.Unauthorized("Please log in.")
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.sessions.Destroy(token)
			return nil, nil, apperror.Unauthorized("Please log in.")
		}
		return nil, nil, fmt.Errorf("service/auth: fetching user %d: %w", sess.UserID, err)
	}
	return sess, user, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// The GitHub account is matched to a local account by its verified email.
// First sign-in creates the account with a random password nobody knows;
// the user can keep using GitHub to log in. The GitHub avatar becomes the
// profile picture unless the user already set one.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	email := NormalizeEmail(gh.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Your GitHub account has no verified email.")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, gh, email)
		if errors.Is(err, apperror.ErrUserExists) {
			// Another callback for the same email created it first.
			user, err = s.users.GetUserByEmail(ctx, email)
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if gh.AvatarURL != "" {
		if err := s.ensureProfilePicture(ctx, user.ID, gh.AvatarURL); err != nil {
			// Not worth failing the login over.
			s.logger.Warn("storing GitHub avatar failed",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.startSession(user)
}

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser, email string) (*model.User, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("service/auth: generating password: %w", err)
	}
	hash, err := s.passwords.Hash(hex.EncodeToString(secret))
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	name := truncate(gh.DisplayName(), MaxNameLength)

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user for GitHub login %s: %w", gh.Login, err)
	}
	s.logger.Info("user registered via GitHub", slog.Int64("userID", user.ID))
	return user, nil
}

// truncate cuts s to at most n characters, never inside a UTF-8 sequence.
func truncate(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

func (s *AuthService) ensureProfilePicture(ctx context.Context, userID int64, avatarURL string) error {
	links, err := s.socials.ListSocials(ctx, userID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.Category == model.ProfilePicture {
			return nil
		}
	}
	if len(avatarURL) > MaxLinkLength {
		return nil
	}
	return s.socials.UpsertSocials(ctx, userID, []model.Social{{
		UserID:   userID,
		Category: model.ProfilePicture,
		Link:     avatarURL,
	}})
}

func (s *AuthService) startSession(user *model.User) (*AuthResult, error) {
	token, _, err := s.sessions.Create(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: starting session for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
