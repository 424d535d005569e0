// Package cache holds the song catalog cache used by the list endpoint.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/soundstack/soundstack/internal/app/domain/song"
)

// CatalogKey is the redis key the catalog is stored under.
const CatalogKey = "soundstack:catalog:songs"

// Catalog caches the full newest-first song list.
type Catalog interface {
	// Songs returns the cached list; ok is false on a miss.
	Songs(ctx context.Context) (songs []song.Song, ok bool, err error)
	SetSongs(ctx context.Context, songs []song.Song) error
	Invalidate(ctx context.Context) error
}

// Redis is a Catalog backed by a redis string holding JSON.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	return NewRedis(client, ttl), nil
}

func (c *Redis) Songs(ctx context.Context) ([]song.Song, bool, error) {
	raw, err := c.client.Get(ctx, CatalogKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read catalog")
	}
	var songs []song.Song
	if err := json.Unmarshal(raw, &songs); err != nil {
		return nil, false, errors.Wrap(err, "decode catalog")
	}
	return songs, true, nil
}

func (c *Redis) SetSongs(ctx context.Context, songs []song.Song) error {
	if songs == nil {
		songs = []song.Song{}
	}
	raw, err := json.Marshal(songs)
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}
	return errors.Wrap(c.client.Set(ctx, CatalogKey, raw, c.ttl).Err(), "write catalog")
}

func (c *Redis) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Del(ctx, CatalogKey).Err(), "invalidate catalog")
}

// Health pings redis.
func (c *Redis) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Redis) Close() error {
	return c.client.Close()
}

// Memory is an in-process Catalog used when no redis address is configured.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	songs   []song.Song
	expires time.Time
	valid   bool
	now     func() time.Time
}

// NewMemory creates an empty cache. A zero ttl never expires.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (c *Memory) Songs(context.Context) ([]song.Song, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || (c.ttl > 0 && c.now().After(c.expires)) {
		return nil, false, nil
	}
	out := make([]song.Song, len(c.songs))
	copy(out, c.songs)
	return out, true, nil
}

func (c *Memory) SetSongs(_ context.Context, songs []song.Song) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.songs = append([]song.Song(nil), songs...)
	c.expires = c.now().Add(c.ttl)
	c.valid = true
	return nil
}

func (c *Memory) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.songs = nil
	c.valid = false
	return nil
}
