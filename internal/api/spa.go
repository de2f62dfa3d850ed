package api

import (
	"net/http"
	"os"
	"strings"
)

// spaFileSystem serves a single-page renderer bundle, falling back to
// index.html for client-side routes.
type spaFileSystem struct {
	root http.FileSystem
}

// Open opens the named file. Unknown paths outside /api resolve to index.html.
func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) && !strings.HasPrefix(name, "/api/") {
		return s.root.Open("index.html")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
