package robot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const programExt = ".json"

// FileStore keeps programs as JSON files under Dir. Identifiers are
// slash-separated paths relative to Dir without the extension,
// e.g. "common/pick_cup".
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || path.IsAbs(id) || strings.Contains(id, "\\") {
		return "", fmt.Errorf("invalid program identifier %q", id)
	}
	for _, part := range strings.Split(id, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid program identifier %q", id)
		}
	}
	return filepath.Join(s.Dir, filepath.FromSlash(id)+programExt), nil
}

// Load reads the program stored under id.
func (s *FileStore) Load(id string) (*Program, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, &ProgramNotFoundError{Program: id, Err: err}
	}
	prog, err := LoadProgram(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ProgramNotFoundError{Program: id, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return prog, nil
}

// Save writes p under id.
func (s *FileStore) Save(p *Program, id string) error {
	file, err := s.path(id)
	if err != nil {
		return err
	}
	return SaveProgram(file, p)
}

// List returns the identifiers of all programs under the sub-directory dir
// ("" for the whole store), sorted.
func (s *FileStore) List(dir string) ([]string, error) {
	root := filepath.Join(s.Dir, filepath.FromSlash(dir))
	var ids []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != programExt {
			return nil
		}
		rel, err := filepath.Rel(s.Dir, p)
		if err != nil {
			return err
		}
		ids = append(ids, strings.TrimSuffix(filepath.ToSlash(rel), programExt))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether a program is stored under id.
func (s *FileStore) Exists(id string) bool {
	p, err := s.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}
