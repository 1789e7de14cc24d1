package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	perrors "github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/observability"
)

// ErrNotFound is returned when no snapshot exists under a name.
var ErrNotFound = errors.New("snapshot not found")

// Store is the interface for snapshot backends.
type Store interface {
	// Get returns the snapshot saved under name, or ErrNotFound.
	Get(ctx context.Context, name string) (*Snapshot, error)

	// Put saves a snapshot under its name, replacing any previous one.
	Put(ctx context.Context, s *Snapshot) error

	// Delete removes a snapshot. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the saved names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Dir is the FileStore directory.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisPrefix namespaces keys; defaults to "petrisync:".
	RedisPrefix string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Timeout bounds connection setup for networked backends.
	Timeout time.Duration
}

// Open builds the configured backend and wraps it with hooks.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case "", BackendFile:
		s, err = NewFileStore(cfg.Dir)
	case BackendMemory:
		s = NewMemoryStore()
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg)
	case BackendMongo:
		s, err = NewMongoStore(ctx, cfg)
	default:
		return nil, perrors.New(perrors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}
	return Instrument(s, backend), nil
}

// Instrument wraps s so that lookups and writes are reported to
// observability.Store() and names are validated before they reach the
// backend.
func Instrument(s Store, backend string) Store {
	return &instrumented{inner: s, backend: backend}
}

type instrumented struct {
	inner   Store
	backend string
}

func (i *instrumented) Get(ctx context.Context, name string) (*Snapshot, error) {
	if err := perrors.ValidateSnapshotName(name); err != nil {
		return nil, err
	}
	s, err := i.inner.Get(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		observability.Store().OnSnapshotMiss(ctx, i.backend)
	case err == nil:
		observability.Store().OnSnapshotHit(ctx, i.backend)
	}
	return s, err
}

func (i *instrumented) Put(ctx context.Context, s *Snapshot) error {
	if err := perrors.ValidateSnapshotName(s.Name); err != nil {
		return err
	}
	if err := i.inner.Put(ctx, s); err != nil {
		return err
	}
	observability.Store().OnSnapshotSave(ctx, i.backend, len(s.Nodes)+len(s.Links))
	return nil
}

func (i *instrumented) Delete(ctx context.Context, name string) error {
	if err := perrors.ValidateSnapshotName(name); err != nil {
		return err
	}
	return i.inner.Delete(ctx, name)
}

func (i *instrumented) List(ctx context.Context) ([]string, error) { return i.inner.List(ctx) }
func (i *instrumented) Close() error                               { return i.inner.Close() }
