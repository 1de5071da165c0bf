package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/easel/internal/graph"
)

// Store saves and loads a single canvas document.
type Store interface {
	Save(ctx context.Context, f *graph.Forest) error
	Load(ctx context.Context, cat MetadataLookup) (*graph.Forest, error)
	Close() error
}

// FileStore keeps the document as a JSON file on a billy filesystem.
type FileStore struct {
	fs   billy.Filesystem
	name string
	now  func() time.Time
}

// NewFileStore stores the document at name within fs.
func NewFileStore(fs billy.Filesystem, name string) *FileStore {
	return &FileStore{fs: fs, name: name, now: time.Now}
}

// OpenFileStore stores the document at a path on the host filesystem.
func OpenFileStore(p string) *FileStore {
	return NewFileStore(osfs.New(filepath.Dir(p)), filepath.Base(p))
}

// Path returns the document's name within the filesystem.
func (s *FileStore) Path() string {
	return s.fs.Join(s.fs.Root(), s.name)
}

// Save writes the document through a temporary file and renames it into
// place. A summary-only save still replaces the file and reports
// ErrSummaryOnly.
func (s *FileStore) Save(_ context.Context, f *graph.Forest) error {
	data, mErr := Marshal(f, s.now())
	if data == nil {
		return mErr
	}
	if dir := path.Dir(s.name); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	tmp := s.name + ".tmp"
	if err := util.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.name); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return mErr
}

// Load reads the document. A missing file yields ErrNoDocument.
func (s *FileStore) Load(_ context.Context, cat MetadataLookup) (*graph.Forest, error) {
	data, err := util.ReadFile(s.fs, s.name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	return Unmarshal(data, cat)
}

func (s *FileStore) Close() error { return nil }
