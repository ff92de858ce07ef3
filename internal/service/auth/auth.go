package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/logger"
	"github.com/nkiryanov/authclient/internal/models"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
	"github.com/nkiryanov/authclient/internal/service/userfeed"
	"github.com/nkiryanov/authclient/internal/service/validate"
	"github.com/nkiryanov/authclient/internal/transport"
)

// Backend paths relative to api prefix
const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathIsAvailable    = "/auth/is-available"
	pathRecovery       = "/auth/recovery"
	pathChangePassword = "/auth/change-password"
	pathProfile        = "/auth/profile"
	pathRefreshToken   = "/auth/refresh-token"
)

// Sends json requests to backend API
type API interface {
	Do(ctx context.Context, method string, path string, header http.Header, in any, out any) error
}

// Token storage used by the client
type TokenStore interface {
	Save(ctx context.Context, kind tokenstore.Kind, value string) error
	Get(ctx context.Context, kind tokenstore.Kind) (string, error)
	Remove(ctx context.Context, kind tokenstore.Kind) error
}

type Option func(*Client)

// Client for backends that issue access token only.
// Refresh token in responses is ignored and refresh calls fail with apperrors.ErrRefreshNotSupported
func WithoutRefresh() Option {
	return func(c *Client) {
		c.supportsRefresh = false
	}
}

// Client talks to backend auth API and keeps session tokens in the store.
// Tokens are written only after successful responses, failures leave the store as it was
type Client struct {
	api             API
	store           TokenStore
	feed            *userfeed.Feed
	supportsRefresh bool
	logger          logger.Logger
}

// Create auth client. API requests marked for authentication must go through transport.Bearer
func New(api API, store TokenStore, feed *userfeed.Feed, l logger.Logger, opts ...Option) (*Client, error) {
	if api == nil || store == nil || feed == nil {
		return nil, errors.New("api, store and feed must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	c := &Client{
		api:             api,
		store:           store,
		feed:            feed,
		supportsRefresh: true,
		logger:          l.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Feed of the session user, updated by Profile and cleared by Logout
func (c *Client) Feed() *userfeed.Feed {
	return c.feed
}

func (c *Client) SupportsRefresh() bool {
	return c.supportsRefresh
}

// Login and persist received tokens
// Response is returned as received
func (c *Client) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	pair, err := c.requestPair(ctx, pathLogin, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("login failed: %w", err)
	}

	if err := c.savePair(ctx, pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("login failed: %w", err)
	}

	c.logger.Info("Logged in", "email", email)
	return pair, nil
}

// Register new user. Response body is returned verbatim, session is not changed
func (c *Client) Register(ctx context.Context, name string, email string, password string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.api.Do(ctx, http.MethodPost, pathRegister, nil, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}

	c.logger.Info("Registered", "email", email)
	return resp, nil
}

// Register and login with the same credentials.
// Login is not attempted if register failed. Registered user stays if login fails afterwards
func (c *Client) RegisterAndLogin(ctx context.Context, name string, email string, password string) (models.TokenPair, error) {
	if _, err := c.Register(ctx, name, email, password); err != nil {
		return models.TokenPair{}, err
	}

	return c.Login(ctx, email, password)
}

// Check whether email is free to register
func (c *Client) IsAvailable(ctx context.Context, email string) (bool, error) {
	var resp struct {
		IsAvailable bool `json:"isAvailable"`
	}
	err := c.api.Do(ctx, http.MethodPost, pathIsAvailable, nil, map[string]string{"email": email}, &resp)
	if err != nil {
		return false, fmt.Errorf("availability check failed: %w", err)
	}

	return resp.IsAvailable, nil
}

// Ask backend to send password recovery to email
func (c *Client) Recovery(ctx context.Context, email string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.api.Do(ctx, http.MethodPost, pathRecovery, nil, map[string]string{"email": email}, &resp)
	if err != nil {
		return nil, fmt.Errorf("recovery failed: %w", err)
	}

	return resp, nil
}

// Set new password using reset token from recovery. Reset token is not a session token and never stored
func (c *Client) ChangePassword(ctx context.Context, newPassword string, resetToken string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.api.Do(ctx, http.MethodPost, pathChangePassword, nil, map[string]string{
		"token":       resetToken,
		"newPassword": newPassword,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("change password failed: %w", err)
	}

	return resp, nil
}

// Fetch session user and publish it to the feed
func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.api.Do(transport.WithToken(ctx), http.MethodGet, pathProfile, nil, nil, &u)
	if err != nil {
		return models.User{}, fmt.Errorf("profile request failed: %w", err)
	}

	c.feed.Publish(u)
	return u, nil
}

// Exchange refresh token for a new pair and persist it.
// Stored tokens are left untouched on failure
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	if !c.supportsRefresh {
		return models.TokenPair{}, apperrors.ErrRefreshNotSupported
	}

	pair, err := c.requestPair(ctx, pathRefreshToken, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh failed: %w", err)
	}

	if err := c.savePair(ctx, pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh failed: %w", err)
	}

	c.logger.Info("Session refreshed")
	return pair, nil
}

// Refresh using stored refresh token
func (c *Client) RefreshSession(ctx context.Context) (models.TokenPair, error) {
	if !c.supportsRefresh {
		return models.TokenPair{}, apperrors.ErrRefreshNotSupported
	}

	refreshToken, err := c.store.Get(ctx, tokenstore.KindRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	return c.RefreshToken(ctx, refreshToken)
}

// Forget session: remove both tokens and session user. Backend is not called
func (c *Client) Logout(ctx context.Context) error {
	var errs []error
	for _, kind := range []tokenstore.Kind{tokenstore.KindAccess, tokenstore.KindRefresh} {
		if err := c.store.Remove(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	c.feed.Clear()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.logger.Info("Logged out")
	return nil
}

func (c *Client) requestPair(ctx context.Context, path string, in any) (models.TokenPair, error) {
	var pair models.TokenPair
	if err := c.api.Do(ctx, http.MethodPost, path, nil, in, &pair); err != nil {
		return models.TokenPair{}, err
	}

	// Nothing is stored from a response without access token
	if err := validate.Struct(pair); err != nil {
		c.logger.Warn("Backend returned invalid token pair", "path", path, "error", err)
		return models.TokenPair{}, fmt.Errorf("%w: %w", apperrors.ErrNetworkFailure, err)
	}

	return pair, nil
}

// Write both tokens or neither. Access token is restored if refresh token write fails
func (c *Client) savePair(ctx context.Context, pair models.TokenPair) error {
	prevAccess, err := c.store.Get(ctx, tokenstore.KindAccess)
	if err != nil && !errors.Is(err, apperrors.ErrNoToken) {
		return err
	}

	if err := c.store.Save(ctx, tokenstore.KindAccess, pair.AccessToken); err != nil {
		return err
	}

	if !c.supportsRefresh {
		return nil
	}

	// Refresh token of the previous session must not outlive it
	if pair.RefreshToken == "" {
		c.logger.Warn("Backend returned no refresh token")
		err = c.store.Remove(ctx, tokenstore.KindRefresh)
	} else {
		err = c.store.Save(ctx, tokenstore.KindRefresh, pair.RefreshToken)
	}
	if err == nil {
		return nil
	}

	if restoreErr := c.restoreAccess(ctx, prevAccess); restoreErr != nil {
		c.logger.Error("Failed to restore access token", "error", restoreErr)
		return errors.Join(err, restoreErr)
	}
	return err
}

func (c *Client) restoreAccess(ctx context.Context, prev string) error {
	if prev == "" {
		return c.store.Remove(ctx, tokenstore.KindAccess)
	}
	return c.store.Save(ctx, tokenstore.KindAccess, prev)
}
