package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/felixgeelhaar/botctl/internal/config"
	"github.com/felixgeelhaar/botctl/internal/session"
	"github.com/felixgeelhaar/botctl/internal/ux"
)

// openBackend builds the configured session backend. Sessions are scoped
// by API URL so that several endpoints can be used side by side.
func openBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(context.Context) error, error) {
	scope := session.Scope(cfg.API.URL)
	sc := cfg.Session

	switch sc.Backend {
	case config.BackendMemory:
		return session.NewMemoryBackend(), nil, nil

	case config.BackendFile:
		return session.NewFileBackend(sc.Dir, scope), nil, nil

	case config.BackendEncrypted:
		sealed, err := session.NewSealedBackend(session.NewFileBackend(sc.Dir, scope), sc.Passphrase, scope)
		if err != nil {
			return nil, nil, err
		}
		return sealed, nil, nil

	case config.BackendRedis:
		rc := sc.Redis
		backend, err := session.NewRedisBackend(ctx, session.RedisConfig{
			Addr:        rc.Addr,
			Username:    rc.Username,
			Password:    rc.Password,
			DB:          rc.DB,
			DialTimeout: rc.DialTimeout,
			Timeout:     rc.Timeout,
			Prefix:      rc.Prefix,
		}, scope)
		if err != nil {
			return nil, nil, err
		}
		return backend, func(context.Context) error { return backend.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", sc.Backend)
	}
}

// signInNotice is the CLI's sign-in navigation: it tells the user to sign
// in again and remembers the command that was interrupted.
type signInNotice struct {
	out     io.Writer
	store   *session.Store
	command string
}

func (n *signInNotice) RedirectToSignIn(ctx context.Context) {
	ux.Notice(n.out, "Your session has ended. Sign in again with 'botctl auth login'.")
	if n.command == "" {
		return
	}
	if err := n.store.SetPendingRedirect(ctx, "botctl "+n.command); err != nil {
		ux.Notice(n.out, "could not remember the interrupted command: %v", err)
	}
}
