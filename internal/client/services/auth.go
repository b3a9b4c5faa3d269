package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/cache"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
	"github.com/dmitrijs2005/backpack/internal/logging"
)

// Session covers the login lifecycle.
//
// Contract:
//   - LoginURL: store a fresh nonce and return the authorization URL.
//   - CompleteLogin: check the returned state against the nonce and keep the token.
//   - Logout: revoke the token on the server, then wipe local data.
//   - Reauthorize: wipe local data after an unrecoverable auth failure.
type Session struct {
	api         api.Client
	cache       cache.Cache
	store       *store.Store
	clientID    string
	redirectURI string
	logger      logging.Logger
}

// NewSession constructs a Session bound to the API client, the persistent
// cache and the store.
func NewSession(client api.Client, c cache.Cache, st *store.Store, clientID, redirectURI string, logger logging.Logger) *Session {
	return &Session{
		api:         client,
		cache:       c,
		store:       st,
		clientID:    clientID,
		redirectURI: redirectURI,
		logger:      logging.OrNop(logger),
	}
}

// LoginURL returns the authorization URL. The anti-CSRF state sent with it
// is stored for CompleteLogin.
func (s *Session) LoginURL(ctx context.Context) (string, error) {
	nonce, err := common.MakeNonce(common.AuthStateLength)
	if err != nil {
		return "", fmt.Errorf("generate auth state: %w", err)
	}
	if err := s.cache.Set(ctx, common.KeyAuthState, []byte(nonce)); err != nil {
		return "", fmt.Errorf("error setting authState: %w", err)
	}
	return s.api.AuthorizeURL(s.clientID, s.redirectURI, nonce), nil
}

// CompleteLogin accepts the token returned to the redirect URI if state
// matches the stored nonce. The nonce is single use.
func (s *Session) CompleteLogin(ctx context.Context, token, state string) error {
	want, err := cache.GetString(ctx, s.cache, common.KeyAuthState)
	if err != nil {
		return err
	}
	if want == "" || state != want {
		return common.ErrAuthStateInvalid
	}
	if err := s.cache.Delete(ctx, common.KeyAuthState); err != nil {
		return err
	}
	return s.SetToken(ctx, token)
}

// CompleteLoginFromURL parses the redirect URL of the implicit grant, e.g.
// https://app/#access_token=...&state=..., and completes the login.
func (s *Session) CompleteLoginFromURL(ctx context.Context, redirect string) error {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return fmt.Errorf("parse redirect url: %w", err)
	}

	params, err := url.ParseQuery(u.Fragment)
	if err != nil || (params.Get("access_token") == "" && params.Get("error") == "") {
		params = u.Query()
	}
	if msg := params.Get("error"); msg != "" {
		return fmt.Errorf("authorization failed: %s", msg)
	}

	token := params.Get("access_token")
	if token == "" {
		return fmt.Errorf("redirect url has no access_token: %w", common.ErrInvalidInput)
	}
	return s.CompleteLogin(ctx, token, params.Get("state"))
}

// SetToken stores a bearer token obtained out of band.
func (s *Session) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token: %w", common.ErrInvalidInput)
	}
	return s.cache.Set(ctx, common.KeyToken, []byte(token))
}

// Token returns the stored token or common.ErrNotLoggedIn.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := cache.GetString(ctx, s.cache, common.KeyToken)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", common.ErrNotLoggedIn
	}
	return token, nil
}

// TokenExpiry reports the expiry of a JWT access token. ok is false for
// opaque tokens and tokens without an exp claim. The signature is not
// checked; the server remains the authority.
func (s *Session) TokenExpiry(ctx context.Context) (exp time.Time, ok bool, err error) {
	token, err := s.Token(ctx)
	if err != nil {
		return time.Time{}, false, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, nil
	}
	t, err := claims.GetExpirationTime()
	if err != nil || t == nil {
		return time.Time{}, false, nil
	}
	return t.Time, true, nil
}

// Logout revokes the token, clears all local data and returns the server
// logout URL to open.
func (s *Session) Logout(ctx context.Context) (string, error) {
	token, err := s.Token(ctx)
	if err != nil && !errors.Is(err, common.ErrNotLoggedIn) {
		return "", fmt.Errorf("error getting token: %w", err)
	}

	if token != "" {
		if err := s.api.RevokeToken(ctx, s.clientID, token); err != nil {
			return "", fmt.Errorf("error revoking token: %w", err)
		}
	}

	if err := s.wipe(ctx); err != nil {
		return "", err
	}
	s.logger.Info(ctx, "logged out")
	return s.api.LogoutURL(), nil
}

// Reauthorize wipes local data after the server rejected the session. It
// always returns an error wrapping common.ErrReauthorize.
func (s *Session) Reauthorize(ctx context.Context) error {
	s.logger.Warn(ctx, "session expired, reauthorizing")
	if err := s.wipe(ctx); err != nil {
		return errors.Join(common.ErrReauthorize, err)
	}
	return common.ErrReauthorize
}

func (s *Session) wipe(ctx context.Context) error {
	s.store.Dispatch(store.Reset{})
	if err := s.store.Flush(ctx); err != nil {
		return err
	}
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("error clearing state: %w", err)
	}
	return nil
}

// RememberRoute stores the command to come back to after login.
func (s *Session) RememberRoute(ctx context.Context, route string) error {
	return s.cache.Set(ctx, common.KeyPrevRoute, []byte(route))
}

// PrevRoute returns the remembered route, or "".
func (s *Session) PrevRoute(ctx context.Context) (string, error) {
	return cache.GetString(ctx, s.cache, common.KeyPrevRoute)
}
