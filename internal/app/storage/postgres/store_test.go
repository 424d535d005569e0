package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/storage"
)

var songCols = []string{"id", "user_id", "title", "description", "genre", "audio_url", "image_url", "artist", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateUserUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := store.CreateUser(context.Background(), user.User{Username: "demo", Email: "demo@user.io"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetUserByCredential(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(username) = lower($1) OR lower(email) = lower($1)")).
		WithArgs("demo").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "hashed_password", "created_at", "updated_at"}).
			AddRow("u1", "demo", "demo@user.io", []byte("hash"), now, now))

	u, err := store.GetUserByCredential(context.Background(), "demo")
	if err != nil {
		t.Fatalf("get by credential: %v", err)
	}
	if u.ID != "u1" || string(u.HashedPassword) != "hash" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestCreateSongReadsBackWithArtist(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO songs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(songCols).
			AddRow("s1", "u1", "Title", "", "rock", "/media/a.mp3", "", "demo", now, now))

	created, err := store.CreateSong(context.Background(), song.Song{ID: "s1", UserID: "u1", Title: "Title", Genre: "rock", AudioURL: "/media/a.mp3"})
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	if created.Artist != "demo" {
		t.Fatalf("artist = %q, want demo", created.Artist)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateSongMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE songs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateSong(context.Background(), song.Song{ID: "nope"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSongsEmptyIsNotNil(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.created_at DESC")).
		WillReturnRows(sqlmock.NewRows(songCols))

	songs, err := store.ListSongs(context.Background())
	if err != nil {
		t.Fatalf("list songs: %v", err)
	}
	if songs == nil || len(songs) != 0 {
		t.Fatalf("songs = %#v, want empty slice", songs)
	}
}

func TestDeleteSong(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM songs WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM songs WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteSong(context.Background(), "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteSong(context.Background(), "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, 2, 1, time.Minute)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)

	u, err := store.CreateUser(ctx, user.User{Username: "it-" + time.Now().Format("150405.000"), Email: time.Now().Format("150405.000") + "@it.io", HashedPassword: []byte("x")})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sg, err := store.CreateSong(ctx, song.Song{UserID: u.ID, Title: "integration", AudioURL: "/media/it.mp3"})
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	if sg.Artist != u.Username {
		t.Fatalf("artist = %q, want %q", sg.Artist, u.Username)
	}
	if err := store.DeleteSong(ctx, sg.ID); err != nil {
		t.Fatalf("delete song: %v", err)
	}
}
