package upload

import (
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MediaPrefix is the URL path uploaded files are served under.
const MediaPrefix = "/media/"

// FileStore keeps uploaded files in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir is the directory files are written to.
func (s *FileStore) Dir() string { return s.dir }

// Save copies fh under a fresh name and returns its media URL.
func (s *FileStore) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "open upload")
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create media file")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", errors.Wrap(err, "write media file")
	}
	if err := dst.Close(); err != nil {
		return "", errors.Wrap(err, "close media file")
	}
	return MediaPrefix + name, nil
}

// Remove deletes the file behind a media URL. Unknown URLs are ignored.
func (s *FileStore) Remove(mediaURL string) error {
	if !strings.HasPrefix(mediaURL, MediaPrefix) {
		return nil
	}
	name := path.Base(mediaURL)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove media file")
	}
	return nil
}
