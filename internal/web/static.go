// Package web serves the built frontend bundle.
package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/soundstack/soundstack/internal/web/shell"
)

// SPA serves files from a bundle directory. Paths the client router knows
// get index.html; unknown paths redirect to "/".
type SPA struct {
	dir   string
	index string
	files http.Handler
}

// NewSPA serves dir, which must contain index.html.
func NewSPA(dir string) (*SPA, error) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return nil, errors.Wrapf(err, "frontend bundle %s", dir)
	}
	return &SPA{dir: dir, index: index, files: http.FileServer(http.Dir(dir))}, nil
}

func (s *SPA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)
	if clean != "/" && !strings.HasSuffix(clean, "/index.html") {
		info, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(clean)))
		if err == nil && info.Mode().IsRegular() {
			s.files.ServeHTTP(w, r)
			return
		}
	}

	if !shell.Known(clean) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, s.index)
}
