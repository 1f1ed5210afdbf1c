// Package source lists and reads the syllabus files a batch run works on.
// Fetching them from the web is somebody else's job; a source only hands
// over files that are already somewhere.
package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/storage"
)

// Source yields syllabus files by name, in a stable order.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads the PDFs of one local directory, not recursing.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read directory %s", s.dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isPDF(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirSource) Read(_ context.Context, name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, eris.Errorf("invalid file name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", name)
	}
	return data, nil
}

// BucketSource reads the PDFs stored under a key prefix of object storage.
type BucketSource struct {
	store  storage.Storage
	prefix string
}

func NewBucketSource(store storage.Storage, prefix string) *BucketSource {
	return &BucketSource{store: store, prefix: prefix}
}

func (s *BucketSource) List(ctx context.Context) ([]string, error) {
	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if isPDF(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *BucketSource) Read(ctx context.Context, name string) ([]byte, error) {
	return s.store.Download(ctx, name)
}

// Window returns names[start:end] clamped to the slice. A non-positive end
// means "through the last name".
func Window(names []string, start, end int) []string {
	if end <= 0 || end > len(names) {
		end = len(names)
	}
	start = max(start, 0)
	if start >= end {
		return []string{}
	}
	return names[start:end]
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
