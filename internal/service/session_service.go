package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/ntkhang/classline/internal/apierr"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/ntkhang/classline/internal/model"
	"github.com/ntkhang/classline/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// SessionService owns the authenticated identity and the access/refresh token
// pair. Token mutations (login, refresh, logout) are serialized against each
// other, and concurrent refresh attempts collapse into a single in-flight
// exchange: the server rotates refresh tokens, so a duplicate exchange would
// invalidate the second caller's token.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	AdminLogin(ctx context.Context, email, password, adminKey string) (*model.User, error)
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	Logout()
	// RefreshAccessToken exchanges the persisted refresh token for a new pair.
	// Returns false, with no mutation, on any failure or when no refresh token
	// is stored (no network call in that case).
	RefreshAccessToken(ctx context.Context) bool
	// RefreshUser re-validates the access token against the server. A 401
	// triggers exactly one silent refresh; if that fails the session is
	// cleared (forced logout).
	RefreshUser(ctx context.Context) error
	// Bootstrap restores persisted tokens at process start and validates them
	// with the same single-refresh-then-clear discipline as RefreshUser.
	Bootstrap(ctx context.Context) error
	CurrentUser() *model.User
	IsAuthenticated() bool
}

type sessionService struct {
	api   *client.Client
	store store.CredentialStore
	cache *client.TokenCache

	mu   sync.Mutex
	sf   singleflight.Group
	user *model.User
}

func NewSessionService(api *client.Client, credStore store.CredentialStore, cache *client.TokenCache) SessionService {
	return &sessionService{api: api, store: credStore, cache: cache}
}

func (s *sessionService) Login(ctx context.Context, email, password string) (*model.User, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}
	req := dto.LoginRequestDTO{Email: email, Password: password}
	var resp dto.AuthResponseDTO
	if err := s.api.Post(ctx, "/api/auth/login", req, &resp); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Login failed")
		return nil, err
	}
	return s.installSession(&resp)
}

func (s *sessionService) AdminLogin(ctx context.Context, email, password, adminKey string) (*model.User, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}
	req := dto.AdminLoginRequestDTO{Email: email, Password: password, AdminKey: adminKey}
	var resp dto.AuthResponseDTO
	if err := s.api.Post(ctx, "/api/auth/secure-admin-auth", req, &resp); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Admin login failed")
		return nil, err
	}
	return s.installSession(&resp)
}

func (s *sessionService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}
	req := dto.RegisterRequestDTO{Email: email, Password: password, Name: name, Role: "student"}
	var resp dto.AuthResponseDTO
	if err := s.api.Post(ctx, "/api/auth/register", req, &resp); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Registration failed")
		return nil, err
	}
	return s.installSession(&resp)
}

// installSession persists the new token pair and swaps the in-memory identity.
// The pair is written to the store first: if that fails, nothing changes.
func (s *sessionService) installSession(resp *dto.AuthResponseDTO) (*model.User, error) {
	var usr model.User
	if err := copier.Copy(&usr, &resp.User); err != nil {
		return nil, fmt.Errorf("mapping user payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveTokens(resp.Token, resp.RefreshToken); err != nil {
		log.Error().Err(err).Msg("Failed to persist token pair")
		return nil, err
	}
	s.cache.Set(resp.Token)
	s.user = &usr
	log.Info().Str("email", usr.Email).Str("role", usr.Role).Msg("Session established")
	return &usr, nil
}

func (s *sessionService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		// Logout is local-only and never fails; a store error still drops the
		// in-memory session.
		log.Warn().Err(err).Msg("Failed to clear persisted tokens on logout")
	}
	s.cache.Set("")
	s.user = nil
	log.Info().Msg("Logged out")
}

func (s *sessionService) RefreshAccessToken(ctx context.Context) bool {
	// Concurrent callers share one exchange and its outcome.
	ok, _, _ := s.sf.Do("refresh", func() (interface{}, error) {
		return s.doRefresh(ctx), nil
	})
	return ok.(bool)
}

func (s *sessionService) doRefresh(ctx context.Context) bool {
	s.mu.Lock()
	_, refresh, err := s.store.Tokens()
	s.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read refresh token from store")
		return false
	}
	if refresh == "" {
		return false
	}

	var resp dto.RefreshResponseDTO
	if err := s.api.Post(ctx, "/api/auth/refresh", dto.RefreshRequestDTO{RefreshToken: refresh}, &resp); err != nil {
		log.Warn().Err(err).Msg("Token refresh failed")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A logout may have raced the exchange; do not resurrect a cleared session.
	_, current, err := s.store.Tokens()
	if err != nil || current != refresh {
		log.Warn().Msg("Discarding refreshed tokens: session changed during exchange")
		return false
	}
	if err := s.store.SaveTokens(resp.Token, resp.RefreshToken); err != nil {
		log.Error().Err(err).Msg("Failed to persist refreshed token pair")
		return false
	}
	s.cache.Set(resp.Token)
	log.Debug().Msg("Access token refreshed")
	return true
}

func (s *sessionService) RefreshUser(ctx context.Context) error {
	var usr dto.UserDTO
	err := s.api.Get(ctx, "/api/auth/me", &usr)
	if err == nil {
		return s.setUser(&usr)
	}
	if !apierr.IsAuth(err) {
		return err
	}

	if !s.RefreshAccessToken(ctx) {
		s.clearSession()
		return err
	}
	// Exactly one retry with the rotated token; no retry storm.
	if err := s.api.Get(ctx, "/api/auth/me", &usr); err != nil {
		if apierr.IsAuth(err) {
			s.clearSession()
		}
		return err
	}
	return s.setUser(&usr)
}

func (s *sessionService) Bootstrap(ctx context.Context) error {
	access, refresh, err := s.store.Tokens()
	if err != nil {
		return fmt.Errorf("reading persisted tokens: %w", err)
	}
	if access == "" && refresh == "" {
		return nil
	}
	s.cache.Set(access)

	if err := s.RefreshUser(ctx); err != nil {
		if apierr.IsAuth(err) {
			// Session expiry, not a fault: the user simply starts logged out.
			log.Info().Msg("Stored session expired")
			return nil
		}
		return err
	}
	return nil
}

func (s *sessionService) setUser(d *dto.UserDTO) error {
	var usr model.User
	if err := copier.Copy(&usr, d); err != nil {
		return fmt.Errorf("mapping user payload: %w", err)
	}
	s.mu.Lock()
	s.user = &usr
	s.mu.Unlock()
	return nil
}

func (s *sessionService) clearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear persisted tokens")
	}
	s.cache.Set("")
	s.user = nil
}

func (s *sessionService) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	usr := *s.user
	return &usr
}

func (s *sessionService) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}

func requireCredentials(email, password string) error {
	var fields []apierr.FieldError
	if strings.TrimSpace(email) == "" {
		fields = append(fields, apierr.FieldError{Field: "email", Message: "required"})
	}
	if strings.TrimSpace(password) == "" {
		fields = append(fields, apierr.FieldError{Field: "password", Message: "required"})
	}
	if len(fields) > 0 {
		return &apierr.ValidationError{Message: "missing credentials", Fields: fields}
	}
	return nil
}
