package blobstore

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store persists asset bytes on local disk, one file per asset id. Filenames
// are derived from the id alone so existence checks are plain stat calls.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create asset store directory: %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Path returns the deterministic location for an asset's bytes. The file may
// or may not exist.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id)
}

// Write persists the bytes for an asset atomically: the data is written to a
// temp file in the same directory and renamed into place, so readers either
// see the whole file or no file.
func (s *Store) Write(id string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+id+"-*")
	if err != nil {
		return "", errors.WithStack(err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.WithStack(err)
	}

	path := s.Path(id)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.WithStack(err)
	}

	return path, nil
}

// Read returns the bytes for an asset. The error satisfies
// errors.Is(err, fs.ErrNotExist) when the asset isn't materialized locally.
func (s *Store) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// Exists reports whether the asset's bytes are materialized locally.
func (s *Store) Exists(id string) bool {
	info, err := os.Stat(s.Path(id))
	return err == nil && !info.IsDir()
}

// Remove deletes the asset's bytes. Removing an asset that was never
// materialized is not an error.
func (s *Store) Remove(id string) error {
	err := os.Remove(s.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.WithStack(err)
	}
	return nil
}
