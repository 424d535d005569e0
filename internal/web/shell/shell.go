package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/pkg/logger"
)

// API is what bootstrap needs from the backend.
type API interface {
	FetchSongs(ctx context.Context) ([]song.Song, error)
	// RestoreUser returns the signed-in user, or nil when anonymous.
	RestoreUser(ctx context.Context) (*user.Public, error)
}

// SessionAPI adds the sign-in flows.
type SessionAPI interface {
	API
	Login(ctx context.Context, credential, password string) (*user.Public, error)
	Signup(ctx context.Context, username, email, password string) (*user.Public, error)
	Logout(ctx context.Context) error
}

// ErrNoSessionAPI is returned by session flows when the API cannot sign in.
var ErrNoSessionAPI = errors.New("shell: api does not support sessions")

// View is what the shell renders for a path.
type View struct {
	Route      string
	Components []Component
	Params     map[string]string
	// Redirect is set when the path is unknown; the client navigates there.
	Redirect string
}

// Shell is the client application root.
type Shell struct {
	store   *Store
	api     API
	timeout time.Duration
	log     *logger.Logger
}

// Option customises a Shell.
type Option func(*Shell)

// WithStore shares an existing store.
func WithStore(store *Store) Option { return func(s *Shell) { s.store = store } }

// WithTimeout bounds each bootstrap call.
func WithTimeout(d time.Duration) Option { return func(s *Shell) { s.timeout = d } }

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option { return func(s *Shell) { s.log = log } }

// New creates a shell talking to api.
func New(api API, opts ...Option) *Shell {
	s := &Shell{api: api}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	if s.log == nil {
		s.log = logger.NewDefault("shell")
	}
	return s
}

// Store exposes the state container.
func (s *Shell) Store() *Store { return s.store }

// Loaded reports whether bootstrap has finished.
func (s *Shell) Loaded() bool { return s.store.State().Loaded }

// Bootstrap fetches the catalog and restores the session concurrently and
// waits for both before marking the shell loaded. A failure of either still
// marks it loaded; the failures are joined, recorded in State.BootstrapErr
// and returned.
func (s *Shell) Bootstrap(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var songsErr, sessionErr error
	var g errgroup.Group
	g.Go(func() error {
		songs, err := s.api.FetchSongs(ctx)
		if err != nil {
			songsErr = fmt.Errorf("fetch songs: %w", err)
			return songsErr
		}
		s.store.Dispatch(LoadSongs(songs))
		return nil
	})
	g.Go(func() error {
		u, err := s.api.RestoreUser(ctx)
		if err != nil {
			sessionErr = fmt.Errorf("restore session: %w", err)
			return sessionErr
		}
		s.store.Dispatch(SetUser(u))
		return nil
	})
	_ = g.Wait()

	err := errors.Join(songsErr, sessionErr)
	if err != nil {
		s.log.WithError(err).Warn("bootstrap finished with errors")
	}
	s.store.Dispatch(SetLoaded(err))
	return err
}

// Render resolves path to a view. It renders nothing until bootstrap is
// done.
func (s *Shell) Render(path string) (View, bool) {
	if !s.Loaded() {
		return View{}, false
	}
	m := Match(path)
	if m.IsRedirect() {
		return View{Route: m.Route.Name, Redirect: m.Route.Redirect}, true
	}
	return View{
		Route:      m.Route.Name,
		Components: append([]Component(nil), m.Route.Components...),
		Params:     m.Params,
	}, true
}

// Login signs in and closes the login modal.
func (s *Shell) Login(ctx context.Context, credential, password string) error {
	api, ok := s.api.(SessionAPI)
	if !ok {
		return ErrNoSessionAPI
	}
	u, err := api.Login(ctx, credential, password)
	if err != nil {
		return err
	}
	s.store.Dispatch(SetUser(u))
	s.store.Dispatch(CloseModal(ModalLogin))
	return nil
}

// Signup creates an account, signs in and closes the signup modal.
func (s *Shell) Signup(ctx context.Context, username, email, password string) error {
	api, ok := s.api.(SessionAPI)
	if !ok {
		return ErrNoSessionAPI
	}
	u, err := api.Signup(ctx, username, email, password)
	if err != nil {
		return err
	}
	s.store.Dispatch(SetUser(u))
	s.store.Dispatch(CloseModal(ModalSignup))
	return nil
}

// Logout signs out.
func (s *Shell) Logout(ctx context.Context) error {
	api, ok := s.api.(SessionAPI)
	if !ok {
		return ErrNoSessionAPI
	}
	if err := api.Logout(ctx); err != nil {
		return err
	}
	s.store.Dispatch(RemoveUser())
	return nil
}
