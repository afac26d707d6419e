// ABOUTME: Binds a simple-tree container to one JSON file with load/migrate/save lifecycle
// ABOUTME: Creates the file on first run, migrates on load, and never overwrites unreadable files

package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/2389/coven-settings/internal/migrate"
	"github.com/2389/coven-settings/internal/simple"
)

// ErrCorruptedDocument is returned when a file parses but cannot be interpreted:
// missing version metadata, missing content, a failed migration, or content of
// the wrong shape.
var ErrCorruptedDocument = errors.New("corrupted document")

// DefaultFormatVersion is the format version written when none is configured.
const DefaultFormatVersion = 1

// State describes the outcome of the last load.
type State int

const (
	StateUninitialized State = iota
	StateLoaded              // file existed and was read
	StateCreated             // file was missing and has been created
	StateDegraded            // file could not be read; container left empty
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateCreated:
		return "created"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type options struct {
	version  int
	migrator *migrate.Migrator
	logger   *slog.Logger
	mode     os.FileMode
}

// Option configures a Store.
type Option func(*options)

// WithFormatVersion sets the format version written by Save.
func WithFormatVersion(v int) Option {
	return func(o *options) { o.version = v }
}

// WithMigrator sets the migrator applied to documents on load.
func WithMigrator(m *migrate.Migrator) Option {
	return func(o *options) { o.migrator = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFileMode sets the permissions of the data file. The default is 0600.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) { o.mode = mode }
}

// Store keeps a container in memory and persists it to a single file on Save.
// It is meant to be owned by one goroutine.
type Store[C simple.Simple] struct {
	path     string
	factory  func() C
	current  C
	state    State
	version  int
	migrator *migrate.Migrator
	mode     os.FileMode
	lock     *flock.Flock
	logger   *slog.Logger
}

// New binds a container built by factory to path and loads it.
//
// A missing file is created holding the empty container. A file that cannot
// be read or is not valid JSON is logged and left alone, and the container
// stays empty. A file that is valid JSON but not a usable versioned document
// makes New fail with ErrCorruptedDocument.
func New[C simple.Simple](path string, factory func() C, opts ...Option) (*Store[C], error) {
	o := options{
		version: DefaultFormatVersion,
		logger:  slog.Default(),
		mode:    0o600,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[C]{
		path:     path,
		factory:  factory,
		current:  factory(),
		version:  o.version,
		migrator: o.migrator,
		mode:     o.mode,
		lock:     flock.New(path + ".lock"),
		logger:   o.logger.With("component", "filestore", "path", path),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Container returns the in-memory container. Mutations are persisted by Save.
func (s *Store[C]) Container() C {
	return s.current
}

// State reports the outcome of the last load.
func (s *Store[C]) State() State {
	return s.state
}

// Path returns the backing file path.
func (s *Store[C]) Path() string {
	return s.path
}

// Reload discards in-memory changes and runs the load lifecycle again.
// The container is replaced only when the file is missing or loads cleanly;
// on any failure the previous container stays in place, and a corrupted
// document also leaves the previous state untouched.
func (s *Store[C]) Reload() error {
	return s.load()
}

func (s *Store[C]) load() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("creating data directory", "error", err)
		s.state = StateDegraded
		return nil
	}

	unlock := s.acquire()
	data, err := os.ReadFile(s.path)
	unlock()

	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("data file missing, creating")
		s.current = s.factory()
		if err := s.Save(); err != nil {
			s.state = StateDegraded
			return nil
		}
		s.state = StateCreated
		return nil
	}
	if err != nil {
		s.logger.Error("reading data file", "error", err)
		s.state = StateDegraded
		return nil
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		s.logger.Error("parsing data file", "error", err)
		s.state = StateDegraded
		return nil
	}

	next := s.factory()
	if err := s.hydrate(next, tree); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptedDocument, s.path, err)
	}

	s.current = next
	s.state = StateLoaded
	s.logger.Debug("data file loaded")
	return nil
}

func (s *Store[C]) hydrate(into C, tree any) error {
	doc, err := simple.AsMap(tree)
	if err != nil {
		return err
	}

	from, err := migrate.Version(doc)
	if err != nil {
		return err
	}
	if s.migrator != nil {
		if doc, err = s.migrator.Migrate(doc); err != nil {
			return err
		}
	}

	to, err := migrate.Version(doc)
	if err != nil {
		return err
	}
	if to != from {
		s.logger.Info("migrated data file", "from", from, "to", to)
	}
	if to > s.version {
		s.logger.Warn("data file is newer than this build", "file_version", to, "version", s.version)
	}

	content, err := migrate.Content(doc)
	if err != nil {
		return err
	}
	return into.UpdateFromSimple(content)
}

// Save writes the container to disk, replacing the file atomically.
// Errors are logged and returned; in-memory state is unaffected either way.
func (s *Store[C]) Save() error {
	if err := s.write(); err != nil {
		s.logger.Error("saving data file", "error", err)
		return err
	}
	s.logger.Debug("data file saved")
	return nil
}

func (s *Store[C]) write() error {
	data, err := json.MarshalIndent(migrate.Envelope(s.version, s.current.ToSimple()), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	unlock := s.acquire()
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(s.mode); err != nil {
		tmp.Close()
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing data file: %w", err)
	}
	return nil
}

// acquire takes the cross-process file lock. Failing to lock is logged and
// the operation proceeds unlocked.
func (s *Store[C]) acquire() func() {
	if err := s.lock.Lock(); err != nil {
		s.logger.Warn("locking data file", "error", err)
		return func() {}
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlocking data file", "error", err)
		}
	}
}
