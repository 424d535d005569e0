package songs

import (
	"context"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/storage"
	"github.com/soundstack/soundstack/internal/cache"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
	"github.com/soundstack/soundstack/internal/validate"
	"github.com/soundstack/soundstack/pkg/logger"
)

// CreateInput holds the metadata fields of an upload form.
type CreateInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Genre       string `json:"genre" validate:"max=50"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

// MediaStore persists audio files and hands back the URL they are served at.
type MediaStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(mediaURL string) error
}

// Service manages the song catalog.
type Service struct {
	store   storage.SongStore
	catalog cache.Catalog
	media   MediaStore
	log     *logger.Logger

	// fillMu orders cache fills against invalidations. generation moves on
	// every write so a fill that read the store before the write is dropped.
	fillMu     sync.Mutex
	generation uint64
}

// New constructs a song service. A nil catalog disables caching.
func New(store storage.SongStore, catalog cache.Catalog, media MediaStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("songs")
	}
	if catalog == nil {
		catalog = cache.NewMemory(time.Minute)
	}
	return &Service{store: store, catalog: catalog, media: media, log: log}
}

// List returns every song, newest first, from cache when possible.
func (s *Service) List(ctx context.Context) ([]song.Song, error) {
	if cached, ok, err := s.catalog.Songs(ctx); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	return s.load(ctx)
}

// Warm reloads the catalog cache from the store.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *Service) load(ctx context.Context) ([]song.Song, error) {
	s.fillMu.Lock()
	gen := s.generation
	s.fillMu.Unlock()

	songs, err := s.store.ListSongs(ctx)
	if err != nil {
		return nil, err
	}
	if songs == nil {
		songs = []song.Song{}
	}

	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.generation != gen {
		return songs, nil
	}
	if err := s.catalog.SetSongs(ctx, songs); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("catalog cache write failed")
	}
	return songs, nil
}

// Get returns one song.
func (s *Service) Get(ctx context.Context, id string) (song.Song, error) {
	return s.store.GetSong(ctx, id)
}

// Create validates the metadata, stores the audio file and records the song.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput, file *multipart.FileHeader) (song.Song, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return song.Song{}, err
	}

	audioURL, err := s.media.Save(file)
	if err != nil {
		return song.Song{}, err
	}

	created, err := s.store.CreateSong(ctx, song.Song{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Genre:       in.Genre,
		AudioURL:    audioURL,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		if rmErr := s.media.Remove(audioURL); rmErr != nil {
			s.log.WithContext(ctx).WithError(rmErr).Warn("remove orphaned media")
		}
		return song.Song{}, err
	}
	s.invalidate(ctx)
	s.log.WithContext(ctx).WithField("song_id", created.ID).Info("song uploaded")
	return created, nil
}

// Update edits the metadata of a song owned by userID.
func (s *Service) Update(ctx context.Context, userID, id string, upd song.Update) (song.Song, error) {
	if err := validate.Struct(upd); err != nil {
		return song.Song{}, err
	}
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return song.Song{}, err
	}
	upd.Apply(&existing)
	updated, err := s.store.UpdateSong(ctx, existing)
	if err != nil {
		return song.Song{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a song owned by userID and its audio file.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSong(ctx, id); err != nil {
		return err
	}
	if err := s.media.Remove(existing.AudioURL); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("remove media file")
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (song.Song, error) {
	existing, err := s.store.GetSong(ctx, id)
	if err != nil {
		return song.Song{}, err
	}
	if existing.UserID != userID {
		return song.Song{}, svcerrors.Forbidden("Only the uploader can change this song")
	}
	return existing, nil
}

func (s *Service) invalidate(ctx context.Context) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.generation++
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("catalog cache invalidate failed")
	}
}
