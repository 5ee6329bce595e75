package api

import "context"

// Navigator sends the user to sign in after the backend rejects the
// session. The destination is the caller's choice; the CLI points at
// 'botctl auth login'.
type Navigator interface {
	RedirectToSignIn(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

// RedirectToSignIn calls f.
func (f NavigatorFunc) RedirectToSignIn(ctx context.Context) {
	f(ctx)
}

type noopNavigator struct{}

func (noopNavigator) RedirectToSignIn(context.Context) {}
