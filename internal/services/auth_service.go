package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shopfront/internal/apiclient"
	"shopfront/internal/domain"
)

// AuthService wraps the remote login/who-am-I calls and owns the stored
// bearer token. Authorization itself is the remote server's job.
type AuthService struct {
	API    *apiclient.Client
	Tokens *TokenVault
}

func NewAuthService(api *apiclient.Client, tokens *TokenVault) *AuthService {
	return &AuthService{API: api, Tokens: tokens}
}

func (s *AuthService) Login(ctx context.Context, sessionID, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("credentials", "Please enter both email and password")
	}

	res, err := s.API.Login(ctx, email, password)
	if err != nil {
		if apiclient.StatusOf(err) == http.StatusUnauthorized {
			return nil, ErrBadCreds
		}
		return nil, remoteFailure(err, "Login failed. Please try again.")
	}
	tok := res.BearerToken()
	if tok == "" {
		return nil, remoteFailure(errors.New("login response carried no token"), "Login failed. Please try again.")
	}
	if err := s.Tokens.Store(ctx, sessionID, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	if res.User != nil {
		return res.User, nil
	}
	u, err := s.API.Me(ctx, tok)
	if err != nil {
		// logged in all the same; the next page load re-fetches the profile
		return &domain.User{Email: email}, nil
	}
	return &u, nil
}

// CheckAuthStatus resolves the session's user from its stored token. Any
// failure clears the token; the caller treats the visitor as anonymous and may
// log the returned error.
func (s *AuthService) CheckAuthStatus(ctx context.Context, sessionID string) (*domain.User, error) {
	tok, err := s.Tokens.Load(ctx, sessionID)
	if err != nil {
		_ = s.Tokens.Clear(ctx, sessionID)
		return nil, err
	}
	if tok == "" {
		return nil, nil
	}
	u, err := s.API.Me(ctx, tok)
	if err != nil {
		if cerr := s.Tokens.Clear(ctx, sessionID); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}
	return &u, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Tokens.Clear(ctx, sessionID)
}

// Authorized runs fn with the session's token. A 401 from fn ends the session
// and becomes ErrSessionExpired, whatever the call was.
func (s *AuthService) Authorized(ctx context.Context, sessionID string, fn func(ctx context.Context, token string) error) error {
	tok, err := s.Tokens.Load(ctx, sessionID)
	if err != nil {
		_ = s.Tokens.Clear(ctx, sessionID)
		return ErrSessionExpired
	}
	if tok == "" {
		return ErrAnonymous
	}
	err = fn(ctx, tok)
	if err == nil {
		return nil
	}
	if apiclient.StatusOf(err) == http.StatusUnauthorized {
		if lerr := s.Logout(ctx, sessionID); lerr != nil {
			return errors.Join(ErrSessionExpired, lerr)
		}
		return ErrSessionExpired
	}
	return remoteFailure(err, "An error occurred. Please try again.")
}

func (s *AuthService) ListUsers(ctx context.Context, sessionID string) ([]domain.User, error) {
	var users []domain.User
	err := s.Authorized(ctx, sessionID, func(ctx context.Context, tok string) error {
		var err error
		users, err = s.API.Users(ctx, tok)
		return err
	})
	return users, err
}
