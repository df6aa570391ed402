// ABOUTME: Document store boundary consumed by the client façade
// ABOUTME: Defines Store, Snapshot, options and the backend registry
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrBatchTooLarge   = errors.New("batch exceeds maximum writes")
	ErrUnknownDriver   = errors.New("unknown store driver")
)

// MaxBatchWrites is the largest number of writes a single batch may carry.
const MaxBatchWrites = 500

// Fields is the content of a document.
//
// Values are strings, float64 numbers, bools, nil, Timestamp, []interface{}
// and nested map[string]interface{} once read back from a store. On write,
// time.Time is stored as Timestamp and ServerTimestamp is replaced by the
// store's clock.
type Fields map[string]interface{}

// Snapshot is a document read from a collection.
type Snapshot struct {
	ID     string
	Fields Fields
}

// Store is a collection-oriented document database.
type Store interface {
	// Add writes a new document and returns its store-assigned id.
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Snapshot, error)
	Count(ctx context.Context, q Query) (int, error)
	// Commit applies every write in the batch or none of them.
	Commit(ctx context.Context, b *Batch) error
	Close() error
}

// Settings carries the tunables shared by every backend.
type Settings struct {
	Now   func() time.Time
	NewID func() string
}

type Option func(*Settings)

// WithClock sets the clock used to resolve ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Settings) {
		if now != nil {
			s.Now = now
		}
	}
}

// WithIDGenerator sets the generator used by Add.
func WithIDGenerator(gen func() string) Option {
	return func(s *Settings) {
		if gen != nil {
			s.NewID = gen
		}
	}
}

// NewSettings applies opts over the defaults: wall clock, ULID ids.
func NewSettings(opts ...Option) Settings {
	s := Settings{
		Now:   time.Now,
		NewID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName checks a collection name or document id.
func ValidateName(kind, name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %s %q", ErrInvalidArgument, kind, name)
	}
	return nil
}

// OpenFunc opens a backend from a data source name.
type OpenFunc func(dsn string, opts ...Option) (Store, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes a backend available to Open. It panics on duplicates.
func Register(name string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("docstore: Register called twice for driver " + name)
	}
	drivers[name] = open
}

// Drivers returns the registered backend names.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a store with a registered driver.
func Open(driver, dsn string, opts ...Option) (Store, error) {
	driversMu.RLock()
	open, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
	return open(dsn, opts...)
}
