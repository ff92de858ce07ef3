package guard

import (
	"context"

	"github.com/nkiryanov/authclient/internal/service/tokenstore"
)

const (
	defaultLoginRoute = "/login"
	defaultHomeRoute  = "/app"
)

// Decision on route activation
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Navigator redirects user to the route
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// NavigatorFunc allows to use a function as Navigator
type NavigatorFunc func(ctx context.Context, route string)

func (f NavigatorFunc) Navigate(ctx context.Context, route string) { f(ctx, route) }

// Guard decides whether route may be activated
type Guard interface {
	CanActivate(ctx context.Context, route string) Decision
}

// GuardFunc allows to use a function as Guard
type GuardFunc func(ctx context.Context, route string) Decision

func (f GuardFunc) CanActivate(ctx context.Context, route string) Decision { return f(ctx, route) }

type sessionValidator interface {
	IsValid(ctx context.Context, kind tokenstore.Kind) bool
}

// Guard routes. Not set routes get defaults
type Config struct {
	// Where to send user without session
	LoginRoute string

	// Where to send user who already has session
	HomeRoute string
}

func (c Config) withDefaults() Config {
	if c.LoginRoute == "" {
		c.LoginRoute = defaultLoginRoute
	}
	if c.HomeRoute == "" {
		c.HomeRoute = defaultHomeRoute
	}
	return c
}

// RequireSession lets through only users with valid access token, others are sent to login route
func RequireSession(cfg Config, v sessionValidator, nav Navigator) Guard {
	cfg = cfg.withDefaults()

	return GuardFunc(func(ctx context.Context, _ string) Decision {
		if v.IsValid(ctx, tokenstore.KindAccess) {
			return Allow
		}

		nav.Navigate(ctx, cfg.LoginRoute)
		return Deny
	})
}

// RedirectIfSession sends users with valid access token to home route.
// Activation is always allowed: navigation decides where user ends up
func RedirectIfSession(cfg Config, v sessionValidator, nav Navigator) Guard {
	cfg = cfg.withDefaults()

	return GuardFunc(func(ctx context.Context, _ string) Decision {
		if v.IsValid(ctx, tokenstore.KindAccess) {
			nav.Navigate(ctx, cfg.HomeRoute)
		}
		return Allow
	})
}
