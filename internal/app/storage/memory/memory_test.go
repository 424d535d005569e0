package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/storage"
)

func TestUserUniqueness(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, user.User{Username: "demo", Email: "demo@user.io"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := store.CreateUser(ctx, user.User{Username: "DEMO", Email: "other@user.io"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate username err = %v, want ErrConflict", err)
	}
	_, err = store.CreateUser(ctx, user.User{Username: "other", Email: "Demo@User.io"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}
}

func TestGetUserByCredential(t *testing.T) {
	store := New()
	ctx := context.Background()
	created, _ := store.CreateUser(ctx, user.User{Username: "demo", Email: "demo@user.io"})

	for _, cred := range []string{"demo", "demo@user.io"} {
		got, err := store.GetUserByCredential(ctx, cred)
		if err != nil {
			t.Fatalf("lookup %s: %v", cred, err)
		}
		if got.ID != created.ID {
			t.Fatalf("lookup %s returned %s, want %s", cred, got.ID, created.ID)
		}
	}

	if _, err := store.GetUserByCredential(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing credential err = %v, want ErrNotFound", err)
	}
}

func TestSongLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	owner, _ := store.CreateUser(ctx, user.User{Username: "demo", Email: "demo@user.io"})

	created, err := store.CreateSong(ctx, song.Song{UserID: owner.ID, Title: "One", AudioURL: "/media/one.mp3"})
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	if created.Artist != "demo" {
		t.Fatalf("artist = %q, want demo", created.Artist)
	}

	created.Title = "One (remix)"
	created.AudioURL = "/media/ignored.mp3"
	updated, err := store.UpdateSong(ctx, created)
	if err != nil {
		t.Fatalf("update song: %v", err)
	}
	if updated.Title != "One (remix)" || updated.AudioURL != "/media/one.mp3" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := store.DeleteSong(ctx, created.ID); err != nil {
		t.Fatalf("delete song: %v", err)
	}
	if _, err := store.GetSong(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get deleted song err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteSong(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestListSongsNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	a, _ := store.CreateUser(ctx, user.User{Username: "a", Email: "a@x.io"})
	b, _ := store.CreateUser(ctx, user.User{Username: "b", Email: "b@x.io"})
	first, _ := store.CreateSong(ctx, song.Song{UserID: a.ID, Title: "first"})
	second, _ := store.CreateSong(ctx, song.Song{UserID: b.ID, Title: "second"})

	all, _ := store.ListSongs(ctx)
	if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", all)
	}

	mine, _ := store.ListSongsByUser(ctx, a.ID)
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("unexpected user songs: %+v", mine)
	}
}
