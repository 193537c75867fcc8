// Package archive stores immutable pricing-rule change snapshots outside
// the database, so the pricing history can be reconstructed independently
// of the audit table.
//
// Implementations:
// - LocalArchiver: filesystem storage for development
// - R2Archiver: Cloudflare R2 (S3-compatible) storage for production
//
// Snapshots are JSON documents keyed rules/<category>/<timestamp>-<id>.json
// and are never overwritten.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Archiver stores rule-change snapshots. Writes are best-effort from the
// service's point of view: a failed archive write is logged, not surfaced
// to the administrator.
type Archiver interface {
	// Put stores a snapshot document at the given key. Returns an error if
	// the key already exists.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the snapshot at the given key. Returns ErrNotFound if
	// the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the snapshot keys under the given prefix, oldest first.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = fmt.Errorf("archive: snapshot not found")

// SnapshotKey builds the canonical key for a rule-change snapshot.
func SnapshotKey(category string, changeID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("rules/%s/%s-%s.json", category, at.UTC().Format("20060102T150405Z"), changeID)
}

// ArchiveError wraps an archive operation failure with its key.
type ArchiveError struct {
	Op  string
	Key string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
