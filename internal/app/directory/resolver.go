// internal/app/directory/resolver.go
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"github.com/dalemusser/filescout/internal/app/system/timeouts"
	"go.uber.org/zap"
)

var (
	// ErrFolderNotFound means no folder matched the name and scope.
	// An existing folder with no children is not an error.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrUpstream wraps any failure of the remote directory service,
	// including timeouts.
	ErrUpstream = errors.New("directory service unavailable")
)

// FolderMimeType identifies folders in the file store.
const FolderMimeType = "application/vnd.google-apps.folder"

// DefaultPageSize is how many children a listing returns.
const DefaultPageSize = 10

// Entry is one immediate child of a folder.
type Entry struct {
	ID       string
	Name     string
	MimeType string
}

// IsFolder reports whether the entry is itself a folder.
func (e Entry) IsFolder() bool { return e.MimeType == FolderMimeType }

// Kind is "folder" or "file".
func (e Entry) Kind() string {
	if e.IsFolder() {
		return "folder"
	}
	return "file"
}

// DownloadURL is a direct download link for the entry.
func (e Entry) DownloadURL() string {
	return "https://drive.google.com/uc?id=" + e.ID
}

// Listing is the result of a successful lookup. Entries may be empty.
type Listing struct {
	FolderID string
	Name     string
	Entries  []Entry
}

// Empty reports whether the folder has no children.
func (l Listing) Empty() bool { return len(l.Entries) == 0 }

// Service is the remote file store.
type Service interface {
	// FindFolder returns the id of the first folder named exactly name
	// whose name also contains scope (when scope is non-empty).
	// Returns ErrFolderNotFound when nothing matches.
	FindFolder(ctx context.Context, name, scope string) (string, error)

	// ListChildren returns up to limit immediate children of folderID.
	ListChildren(ctx context.Context, folderID string, limit int) ([]Entry, error)
}

// Resolver turns a typed folder name into a listing, bounding every remote
// call with a timeout.
type Resolver struct {
	svc      Service
	log      *zap.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	pageSize int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout overrides timeouts.Directory().
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithMetrics records lookup outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(svc Service, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		svc:      svc,
		log:      logger,
		timeout:  timeouts.Directory(),
		pageSize: DefaultPageSize,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve looks up name, restricted to folders whose name contains scope
// when scope is non-empty, and lists its children.
//
// Returns ErrFolderNotFound or an error wrapping ErrUpstream.
func (r *Resolver) Resolve(ctx context.Context, name, scope string) (Listing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Listing{}, ErrFolderNotFound
	}

	start := time.Now()
	ctx, cancel := timeouts.WithTimeout(ctx, r.timeout, r.log, "directory.resolve")
	defer cancel()

	id, err := r.svc.FindFolder(ctx, name, scope)
	if errors.Is(err, ErrFolderNotFound) {
		r.metrics.RecordDirectoryLookup(metrics.LookupNotFound, time.Since(start))
		return Listing{}, ErrFolderNotFound
	}
	if err != nil {
		return Listing{}, r.upstream(start, "find folder", name, scope, err)
	}

	entries, err := r.svc.ListChildren(ctx, id, r.pageSize)
	if err != nil {
		return Listing{}, r.upstream(start, "list children", name, scope, err)
	}

	outcome := metrics.LookupFound
	if len(entries) == 0 {
		outcome = metrics.LookupEmpty
	}
	r.metrics.RecordDirectoryLookup(outcome, time.Since(start))

	return Listing{FolderID: id, Name: name, Entries: entries}, nil
}

func (r *Resolver) upstream(start time.Time, op, name, scope string, err error) error {
	r.metrics.RecordDirectoryLookup(metrics.LookupError, time.Since(start))
	r.log.Error("directory lookup failed",
		zap.String("op", op),
		zap.String("folder", name),
		zap.String("scope", scope),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}
