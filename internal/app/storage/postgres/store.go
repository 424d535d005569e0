package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/storage"
)

// uniqueViolation is the postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db.DB, nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, username, email, hashed_password, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :email, :hashed_password, :created_at, :updated_at)
	`, u)
	if err != nil {
		return user.User{}, translate(err, "user "+u.Username)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return user.User{}, translate(err, "user "+id)
	}
	return u, nil
}

func (s *Store) GetUserByCredential(ctx context.Context, credential string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		LIMIT 1
	`, credential)
	if err != nil {
		return user.User{}, translate(err, "user "+credential)
	}
	return u, nil
}

// --- SongStore --------------------------------------------------------------

const songSelect = `
	SELECT s.id, s.user_id, s.title, s.description, s.genre, s.audio_url, s.image_url,
	       u.username AS artist, s.created_at, s.updated_at
	FROM songs s
	JOIN users u ON u.id = s.user_id`

func (s *Store) CreateSong(ctx context.Context, sg song.Song) (song.Song, error) {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sg.CreatedAt = now
	sg.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO songs (id, user_id, title, description, genre, audio_url, image_url, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :genre, :audio_url, :image_url, :created_at, :updated_at)
	`, sg)
	if err != nil {
		return song.Song{}, translate(err, "song "+sg.ID)
	}
	return s.GetSong(ctx, sg.ID)
}

func (s *Store) UpdateSong(ctx context.Context, sg song.Song) (song.Song, error) {
	sg.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE songs
		SET title = :title, description = :description, genre = :genre, image_url = :image_url, updated_at = :updated_at
		WHERE id = :id
	`, sg)
	if err != nil {
		return song.Song{}, translate(err, "song "+sg.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return song.Song{}, fmt.Errorf("song %s: %w", sg.ID, storage.ErrNotFound)
	}
	return s.GetSong(ctx, sg.ID)
}

func (s *Store) GetSong(ctx context.Context, id string) (song.Song, error) {
	var sg song.Song
	if err := s.db.GetContext(ctx, &sg, songSelect+` WHERE s.id = $1`, id); err != nil {
		return song.Song{}, translate(err, "song "+id)
	}
	return sg, nil
}

func (s *Store) ListSongs(ctx context.Context) ([]song.Song, error) {
	result := []song.Song{}
	if err := s.db.SelectContext(ctx, &result, songSelect+` ORDER BY s.created_at DESC, s.id`); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListSongsByUser(ctx context.Context, userID string) ([]song.Song, error) {
	result := []song.Song{}
	err := s.db.SelectContext(ctx, &result, songSelect+` WHERE s.user_id = $1 ORDER BY s.created_at DESC, s.id`, userID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteSong(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("song %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// translate maps driver errors onto storage sentinels.
func translate(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s (%s): %w", what, pqErr.Constraint, storage.ErrConflict)
	}
	return err
}
