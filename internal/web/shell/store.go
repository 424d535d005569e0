// Package shell models the browser client: a single store updated through
// dispatched actions, the bootstrap sequence, route matching and modals.
package shell

import (
	"sync"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
)

// SessionState holds the signed-in user, nil when anonymous.
type SessionState struct {
	User *user.Public
}

// SongsState holds the loaded catalog.
type SongsState struct {
	Songs  []song.Song
	ByID   map[string]song.Song
	Loaded bool
}

// UIState holds modal visibility per kind.
type UIState struct {
	Modals map[ModalKind]bool
}

// State is the whole client state. Loaded flips once, after bootstrap.
type State struct {
	Session      SessionState
	Songs        SongsState
	UI           UIState
	Loaded       bool
	BootstrapErr error
}

// Action is a state transition. Reduce must not mutate prev.
type Action interface {
	Reduce(prev State) State
}

type setUser struct{ user *user.Public }

func (a setUser) Reduce(prev State) State {
	next := prev
	if a.user != nil {
		u := *a.user
		next.Session.User = &u
	} else {
		next.Session.User = nil
	}
	return next
}

// SetUser records the signed-in user. A nil user signs out.
func SetUser(u *user.Public) Action { return setUser{user: u} }

// RemoveUser signs the client out.
func RemoveUser() Action { return setUser{} }

type loadSongs struct{ songs []song.Song }

func (a loadSongs) Reduce(prev State) State {
	next := prev
	next.Songs = SongsState{
		Songs:  append([]song.Song(nil), a.songs...),
		ByID:   make(map[string]song.Song, len(a.songs)),
		Loaded: true,
	}
	for _, s := range a.songs {
		next.Songs.ByID[s.ID] = s
	}
	return next
}

// LoadSongs replaces the catalog.
func LoadSongs(songs []song.Song) Action { return loadSongs{songs: songs} }

type setLoaded struct{ err error }

func (a setLoaded) Reduce(prev State) State {
	next := prev
	if next.Loaded {
		return next
	}
	next.Loaded = true
	next.BootstrapErr = a.err
	return next
}

// SetLoaded marks bootstrap finished. Later dispatches are no-ops.
func SetLoaded(err error) Action { return setLoaded{err: err} }

// Store serialises dispatches so only one action reduces at a time.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewStore creates a store with empty state.
func NewStore() *Store {
	return &Store{
		state:     State{UI: UIState{Modals: map[ModalKind]bool{}}},
		listeners: make(map[int]func(State)),
	}
}

// Dispatch applies action and notifies subscribers with the new state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	s.state = action.Reduce(s.state)
	next := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for every dispatch and returns its cancel func.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SelectUser returns the signed-in user, or nil.
func SelectUser(st State) *user.Public { return st.Session.User }

// SelectSongs returns the catalog.
func SelectSongs(st State) []song.Song { return st.Songs.Songs }

// SelectSong looks a song up by ID.
func SelectSong(st State, id string) (song.Song, bool) {
	s, ok := st.Songs.ByID[id]
	return s, ok
}

// SelectModalOpen reports whether the modal of kind is visible.
func SelectModalOpen(st State, kind ModalKind) bool { return st.UI.Modals[kind] }
