package storage

import (
	"context"
	"errors"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	// GetUserByCredential looks a user up by username or email.
	GetUserByCredential(ctx context.Context, credential string) (user.User, error)
}

// SongStore persists songs. List results are newest first and carry the
// uploader's username in Artist.
type SongStore interface {
	CreateSong(ctx context.Context, s song.Song) (song.Song, error)
	UpdateSong(ctx context.Context, s song.Song) (song.Song, error)
	GetSong(ctx context.Context, id string) (song.Song, error)
	ListSongs(ctx context.Context) ([]song.Song, error)
	ListSongsByUser(ctx context.Context, userID string) ([]song.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

// Store groups every persistence interface.
type Store interface {
	UserStore
	SongStore
}
