package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrBadPath = errors.New("bad media path")

// Store — дисковое хранилище медиафайлов. Файлы лежат под префиксом
// отправки (incidents/<submission_id>/<file>), публичный URL строится от
// baseURL.
type Store struct {
	dir     string
	baseURL string
}

func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Save пишет файл по относительному пути и возвращает публичный URL
func (s *Store) Save(path string, data []byte) (string, error) {
	clean, err := sanitize(path)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create media subdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}

	return s.baseURL + "/media/" + clean, nil
}

// Dir возвращает корень хранилища для отдачи статики
func (s *Store) Dir() string {
	return s.dir
}

func sanitize(path string) (string, error) {
	if path == "" || strings.HasPrefix(path, "/") {
		return "", ErrBadPath
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrBadPath
	}
	return clean, nil
}
