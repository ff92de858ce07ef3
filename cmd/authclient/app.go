package main

import (
	"context"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nkiryanov/authclient/internal/apiclient"
	"github.com/nkiryanov/authclient/internal/db"
	"github.com/nkiryanov/authclient/internal/logger"
	"github.com/nkiryanov/authclient/internal/repository"
	"github.com/nkiryanov/authclient/internal/repository/file"
	"github.com/nkiryanov/authclient/internal/repository/memory"
	"github.com/nkiryanov/authclient/internal/repository/postgres"
	"github.com/nkiryanov/authclient/internal/repository/redis"
	"github.com/nkiryanov/authclient/internal/repository/sealed"
	"github.com/nkiryanov/authclient/internal/service/auth"
	"github.com/nkiryanov/authclient/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/authclient/internal/service/session"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
	"github.com/nkiryanov/authclient/internal/service/userfeed"
	"github.com/nkiryanov/authclient/internal/service/users"
	"github.com/nkiryanov/authclient/internal/transport"
)

type ClientApp struct {
	Auth    *auth.Client
	Users   *users.Client
	Session *session.Validator
	Logger  logger.Logger

	closers []func()
}

func NewClientApp(ctx context.Context, c *Config) (*ClientApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ClientApp{Logger: logger}

	// Initialize token storage
	kv, err := app.openStorage(ctx, c)
	if err != nil {
		app.Close()
		return nil, err
	}
	if c.SecretKey != "" {
		kv, err = sealed.New(kv, c.SecretKey)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("error while initializing sealed storage. Err: %w", err)
		}
	}

	// Initialize services
	store, err := tokenstore.New(tokenstore.Config{}, kv, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating token store. Err: %w", err)
	}

	httpClient := &http.Client{
		Transport: transport.Chain(nil,
			transport.RequestID(),
			transport.Logger(logger),
			transport.Bearer(store),
		),
	}
	api, err := apiclient.New(apiclient.Config{APIURL: c.APIURL, Timeout: c.RequestTimeout}, httpClient, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating api client. Err: %w", err)
	}

	var opts []auth.Option
	if !c.SupportsRefresh {
		opts = append(opts, auth.WithoutRefresh())
	}
	app.Auth, err = auth.New(api, store, userfeed.New(), logger, opts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating auth client. Err: %w", err)
	}
	app.Users = users.New(api, store)
	app.Session = session.New(store, tokenmanager.NewDecoder(), logger)

	return app, nil
}

func (a *ClientApp) openStorage(ctx context.Context, c *Config) (repository.KV, error) {
	switch c.StoreBackend {
	case StoreMemory:
		return memory.New(), nil

	case StoreFile:
		s, err := file.New(c.StoreFile)
		if err != nil {
			return nil, fmt.Errorf("error while opening token file. Err: %w", err)
		}
		return s, nil

	case StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		return redis.New(client, ""), nil

	case StorePostgres:
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		s := postgres.NewStorage(pool)
		purged, err := s.PurgeExpired(ctx)
		if err != nil {
			return nil, fmt.Errorf("error while purging expired tokens. Err: %w", err)
		}
		a.Logger.Debug("Expired tokens purged", "count", purged)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown token store %q", c.StoreBackend)
	}
}

// Close storage connections
func (a *ClientApp) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
