package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu    sync.RWMutex
	users map[string]user.User
	songs map[string]song.Song
	now   func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users: make(map[string]user.User),
		songs: make(map[string]song.Song),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return user.User{}, fmt.Errorf("username %s: %w", u.Username, storage.ErrConflict)
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("email %s: %w", u.Email, storage.ErrConflict)
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.HashedPassword = append([]byte(nil), u.HashedPassword...)

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByCredential(_ context.Context, credential string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, credential) || strings.EqualFold(u.Email, credential) {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user %s: %w", credential, storage.ErrNotFound)
}

// SongStore implementation ----------------------------------------------------

func (s *Store) CreateSong(_ context.Context, sg song.Song) (song.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sg.ID == "" {
		sg.ID = uuid.NewString()
	} else if _, exists := s.songs[sg.ID]; exists {
		return song.Song{}, fmt.Errorf("song %s: %w", sg.ID, storage.ErrConflict)
	}

	now := s.now()
	sg.CreatedAt = now
	sg.UpdatedAt = now
	sg.Artist = ""

	s.songs[sg.ID] = sg
	return s.withArtistLocked(sg), nil
}

func (s *Store) UpdateSong(_ context.Context, sg song.Song) (song.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.songs[sg.ID]
	if !ok {
		return song.Song{}, fmt.Errorf("song %s: %w", sg.ID, storage.ErrNotFound)
	}

	sg.UserID = original.UserID
	sg.AudioURL = original.AudioURL
	sg.CreatedAt = original.CreatedAt
	sg.UpdatedAt = s.now()
	sg.Artist = ""

	s.songs[sg.ID] = sg
	return s.withArtistLocked(sg), nil
}

func (s *Store) GetSong(_ context.Context, id string) (song.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg, ok := s.songs[id]
	if !ok {
		return song.Song{}, fmt.Errorf("song %s: %w", id, storage.ErrNotFound)
	}
	return s.withArtistLocked(sg), nil
}

func (s *Store) ListSongs(_ context.Context) ([]song.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(func(song.Song) bool { return true }), nil
}

func (s *Store) ListSongsByUser(_ context.Context, userID string) ([]song.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(func(sg song.Song) bool { return sg.UserID == userID }), nil
}

func (s *Store) DeleteSong(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.songs[id]; !ok {
		return fmt.Errorf("song %s: %w", id, storage.ErrNotFound)
	}
	delete(s.songs, id)
	return nil
}

func (s *Store) listLocked(keep func(song.Song) bool) []song.Song {
	result := make([]song.Song, 0, len(s.songs))
	for _, sg := range s.songs {
		if keep(sg) {
			result = append(result, s.withArtistLocked(sg))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *Store) withArtistLocked(sg song.Song) song.Song {
	if u, ok := s.users[sg.UserID]; ok {
		sg.Artist = u.Username
	}
	return sg
}
