package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nkiryanov/authclient/internal/guard"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
)

var errUsage = errors.New("usage")

type command struct {
	args  []string
	usage string
	run   func(ctx context.Context, app *ClientApp, args []string) (any, error)
}

var commands = map[string]command{
	"login": {
		args:  []string{"email", "password"},
		usage: "Login and store session tokens",
		run: func(ctx context.Context, app *ClientApp, args []string) (any, error) {
			return app.Auth.Login(ctx, args[0], args[1])
		},
	},
	"register": {
		args:  []string{"name", "email", "password"},
		usage: "Register new user",
		run: func(ctx context.Context, app *ClientApp, args []string) (any, error) {
			return app.Auth.Register(ctx, args[0], args[1], args[2])
		},
	},
	"signup": {
		args:  []string{"name", "email", "password"},
		usage: "Register new user and login",
		run: func(ctx context.Context, app *ClientApp, args []string) (any, error) {
			return app.Auth.RegisterAndLogin(ctx, args[0], args[1], args[2])
		},
	},
	"available": {
		args:  []string{"email"},
		usage: "Check email is free to register",
		run: func(ctx context.Context, app *ClientApp, args []string) (any, error) {
			available, err := app.Auth.IsAvailable(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return map[string]bool{"isAvailable": available}, nil
		},
	},
	"recovery": {
		args:  []string{"email"},
		usage: "Request password recovery",
		run: func(ctx context.Context, app *ClientApp, args []string) (any, error) {
			return app.Auth.Recovery(ctx, args[0])
		},
	},
	"change-password": {
		args:  []string{"new-password", "reset-token"},
		usage: "Set new password with reset token from recovery",
		run: func(ctx context.Context, app *ClientApp, args []string) (any, error) {
			return app.Auth.ChangePassword(ctx, args[0], args[1])
		},
	},
	"profile": {
		usage: "Show session user",
		run: func(ctx context.Context, app *ClientApp, _ []string) (any, error) {
			return app.Auth.Profile(ctx)
		},
	},
	"users": {
		usage: "List users",
		run: func(ctx context.Context, app *ClientApp, _ []string) (any, error) {
			return app.Users.List(ctx)
		},
	},
	"refresh": {
		usage: "Exchange stored refresh token for new session tokens",
		run: func(ctx context.Context, app *ClientApp, _ []string) (any, error) {
			return app.Auth.RefreshSession(ctx)
		},
	},
	"logout": {
		usage: "Forget session tokens",
		run: func(ctx context.Context, app *ClientApp, _ []string) (any, error) {
			if err := app.Auth.Logout(ctx); err != nil {
				return nil, err
			}
			return map[string]bool{"loggedOut": true}, nil
		},
	},
	"status": {
		usage: "Show whether stored tokens are valid",
		run:   status,
	},
	"guard": {
		args:  []string{"require-session|redirect-if-session", "route"},
		usage: "Run navigation guard for the route",
		run:   runGuard,
	},
}

type tokenStatus struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func status(ctx context.Context, app *ClientApp, _ []string) (any, error) {
	result := map[string]tokenStatus{}
	for _, kind := range []tokenstore.Kind{tokenstore.KindAccess, tokenstore.KindRefresh} {
		if kind == tokenstore.KindRefresh && !app.Auth.SupportsRefresh() {
			continue
		}

		err := app.Session.Check(ctx, kind)
		s := tokenStatus{Valid: err == nil}
		if err != nil {
			s.Reason = err.Error()
		}
		result[kind.String()] = s
	}
	return result, nil
}

type guardResult struct {
	Route       string   `json:"route"`
	Decision    string   `json:"decision"`
	Navigations []string `json:"navigations"`
}

func runGuard(ctx context.Context, app *ClientApp, args []string) (any, error) {
	result := guardResult{Route: args[1], Navigations: []string{}}
	nav := guard.NavigatorFunc(func(_ context.Context, route string) {
		result.Navigations = append(result.Navigations, route)
	})

	var g guard.Guard
	switch args[0] {
	case "require-session":
		g = guard.RequireSession(guard.Config{}, app.Session, nav)
	case "redirect-if-session":
		g = guard.RedirectIfSession(guard.Config{}, app.Session, nav)
	default:
		return nil, fmt.Errorf("%w: unknown guard %q", errUsage, args[0])
	}

	result.Decision = g.CanActivate(ctx, args[1]).String()
	return result, nil
}

// Find command and check its arguments
func lookupCommand(args []string) (command, []string, error) {
	if len(args) == 0 {
		return command{}, nil, fmt.Errorf("%w: command required\n%s", errUsage, usage())
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return command{}, nil, fmt.Errorf("%w: unknown command %q\n%s", errUsage, args[0], usage())
	}
	if len(args[1:]) != len(cmd.args) {
		return command{}, nil, fmt.Errorf("%w: %s %s", errUsage, args[0], strings.Join(cmd.args, " "))
	}

	return cmd, args[1:], nil
}

func usage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	b := &strings.Builder{}
	b.WriteString("authclient [flags] <command> [args]\n")
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(b, "  %-16s %-40s %s\n", name, strings.Join(cmd.args, " "), cmd.usage)
	}
	return b.String()
}
