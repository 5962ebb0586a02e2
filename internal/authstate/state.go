package authstate

import (
	"context"
	"errors"
	"sync"

	"calibri-dashboard/internal/model"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Backend is the subset of the transport client the auth state drives.
type Backend interface {
	Register(ctx context.Context, email, password, name string) (model.User, error)
	Login(ctx context.Context, email, password string) (model.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (model.User, error)
	HasToken() bool
}

// State holds the signed-in user for the process. Login, Register, Logout,
// Restore and Invalidate are its write paths; losing the backend token also
// signs it out.
type State struct {
	backend Backend

	mu   sync.RWMutex
	user *model.User
}

func New(backend Backend) *State {
	return &State{backend: backend}
}

// Restore loads the current user when a token was persisted by an earlier
// run. A rejected token leaves the state signed out.
func (s *State) Restore(ctx context.Context) error {
	if !s.backend.HasToken() {
		s.set(nil)
		return nil
	}
	user, err := s.backend.Me(ctx)
	if err != nil {
		s.set(nil)
		return err
	}
	s.set(&user)
	return nil
}

func (s *State) Login(ctx context.Context, email, password string) (model.User, error) {
	user, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return model.User{}, err
	}
	s.set(&user)
	return user, nil
}

func (s *State) Register(ctx context.Context, email, password, name string) (model.User, error) {
	user, err := s.backend.Register(ctx, email, password, name)
	if err != nil {
		return model.User{}, err
	}
	s.set(&user)
	return user, nil
}

// Logout signs out locally regardless of the server outcome.
func (s *State) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	s.set(nil)
	return err
}

func (s *State) User() (model.User, error) {
	user := s.current()
	if user == nil {
		return model.User{}, ErrNotAuthenticated
	}
	return *user, nil
}

func (s *State) Authenticated() bool {
	return s.current() != nil
}

func (s *State) Admin() bool {
	user := s.current()
	return user != nil && user.IsAdmin
}

// current returns the cached user while the backend still holds a token.
// The transport drops the token on any 401, including ones from background
// sample submissions, so a missing token signs the state out.
func (s *State) current() *model.User {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user == nil {
		return nil
	}
	if !s.backend.HasToken() {
		s.mu.Lock()
		if s.user == user {
			s.user = nil
		}
		s.mu.Unlock()
		return nil
	}
	return user
}

// Invalidate drops the cached user, e.g. after the backend rejected the token.
func (s *State) Invalidate() {
	s.set(nil)
}

func (s *State) set(user *model.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}
