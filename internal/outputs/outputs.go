// Package outputs stores generated result images on disk.
package outputs

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"fitroom/internal/common/fsutil"
)

// Quality is the JPEG quality results are written with.
const Quality = 95

// ErrInvalidName is returned for names that are not stored results.
var ErrInvalidName = errors.New("invalid output name")

var namePattern = regexp.MustCompile(`^result_[0-9a-f-]{36}\.jpg$`)

// Store writes results as result_<uuid>.jpg under one directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := fsutil.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("outputs dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir is the absolute output directory.
func (s *Store) Dir() string { return s.dir }

// Save encodes img and returns its file name.
func (s *Store) Save(img image.Image) (string, error) {
	name := "result_" + uuid.NewString() + ".jpg"
	tmp, err := os.CreateTemp(s.dir, ".result-*")
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: Quality}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return name, nil
}

// Path resolves a stored result name to its file path.
func (s *Store) Path(name string) (string, error) {
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Open opens a stored result for reading.
func (s *Store) Open(name string) (*os.File, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Remove deletes a stored result. Missing files are not an error.
func (s *Store) Remove(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
