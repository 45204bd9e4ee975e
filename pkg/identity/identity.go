// Package identity tells views whether a user is signed in and lets them sign in and out.
package identity

import (
	"context"
	"os/user"
	"sync"
)

// Provider is the sign-in state of the current user. The conversation engine never depends
// on it; it only drives the header's login/logout control.
type Provider interface {
	IsAuthenticated() bool
	UserName() string
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Local is a provider for a single local user. Login always succeeds.
type Local struct {
	mu            sync.RWMutex
	name          string
	authenticated bool
}

var _ Provider = &Local{}

// NewLocal returns a signed out provider for name, or for the OS user when name is empty.
func NewLocal(name string) *Local {
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}
	return &Local{name: name}
}

func (l *Local) IsAuthenticated() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.authenticated
}

func (l *Local) UserName() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.authenticated {
		return ""
	}
	return l.name
}

func (l *Local) Login(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.authenticated = true
	return nil
}

func (l *Local) Logout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.authenticated = false
	return nil
}

// Toggle logs in a signed out user and out a signed in one.
func Toggle(ctx context.Context, p Provider) error {
	if p.IsAuthenticated() {
		return p.Logout(ctx)
	}
	return p.Login(ctx)
}

// ActionKey is the resource key of the header control for the current state.
func ActionKey(p Provider) string {
	if p.IsAuthenticated() {
		return "logout"
	}
	return "login"
}
