package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/models"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
	"github.com/nkiryanov/authclient/internal/transport"
)

const pathUsers = "/users"

type api interface {
	Do(ctx context.Context, method string, path string, header http.Header, in any, out any) error
}

type tokenGetter interface {
	Get(ctx context.Context, kind tokenstore.Kind) (string, error)
}

// Client builds authorization header itself instead of relying on transport.Bearer.
// Result is the same: header is sent only when access token is stored
type Client struct {
	api   api
	store tokenGetter
}

func New(api api, store tokenGetter) *Client {
	return &Client{api: api, store: store}
}

func (c *Client) List(ctx context.Context) ([]models.User, error) {
	header := http.Header{}

	token, err := c.store.Get(ctx, tokenstore.KindAccess)
	switch {
	case err == nil:
		transport.SetBearer(header, token)
	case errors.Is(err, apperrors.ErrNoToken):
	default:
		return nil, err
	}

	var users []models.User
	if err := c.api.Do(ctx, http.MethodGet, pathUsers, header, nil, &users); err != nil {
		return nil, fmt.Errorf("users request failed: %w", err)
	}
	return users, nil
}
