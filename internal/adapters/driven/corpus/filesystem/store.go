// Package filesystem implements the corpus store on a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CorpusStore = (*Store)(nil)

// Filter decides which files are ingestible. The normaliser registry
// satisfies it.
type Filter interface {
	Supports(filename string) bool
}

// Store is a directory-backed corpus.
type Store struct {
	root   string
	filter Filter
}

// New creates a store rooted at dir. A nil filter accepts every
// non-hidden file.
func New(dir string, filter Filter) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: corpus directory is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus directory: %w", err)
	}
	return &Store{root: abs, filter: filter}, nil
}

// Root returns the corpus directory.
func (s *Store) Root() string {
	return s.root
}

// List walks the corpus and returns ingestible files sorted by name.
// Hidden files and directories are skipped. A missing root is empty.
func (s *Store) List(ctx context.Context) ([]driven.CorpusFile, error) {
	var files []driven.CorpusFile

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == s.root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if s.filter != nil && !s.filter.Supports(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, driven.CorpusFile{Name: name, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Read returns the content of a named file.
func (s *Store) Read(_ context.Context, name string) ([]byte, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return content, nil
}

// Save writes content under name atomically, creating parent directories.
func (s *Store) Save(_ context.Context, name string, content []byte) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	if s.filter != nil && !s.filter.Supports(name) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, name)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Delete removes a named file.
func (s *Store) Delete(_ context.Context, name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// resolve maps a corpus-relative name to an absolute path, rejecting
// names that would escape the root or address hidden files.
func (s *Store) resolve(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// CleanName normalises a corpus-relative name to slash form.
// Absolute paths, parent traversal and hidden components are rejected
// with domain.ErrInvalidInput.
func CleanName(name string) (string, error) {
	slashed := strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if slashed == "" {
		return "", fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: absolute path %q", domain.ErrInvalidInput, name)
	}

	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: path %q escapes the corpus", domain.ErrInvalidInput, name)
		}
	}

	clean := path.Clean(slashed)
	if clean == "." {
		return "", fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}
	for _, part := range strings.Split(clean, "/") {
		if isHidden(part) {
			return "", fmt.Errorf("%w: hidden path %q", domain.ErrInvalidInput, name)
		}
	}
	return clean, nil
}

// isHidden reports whether a path element is a dotfile. "." and ".." are not.
func isHidden(elem string) bool {
	return strings.HasPrefix(elem, ".") && elem != "." && elem != ".."
}
