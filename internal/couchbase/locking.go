package couchbase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// LockKey is the document guarding the bucket while an export runs
const LockKey = "labmerge/export_lock"

// LockTTL bounds how long a crashed export can hold the bucket
const LockTTL = time.Hour

// LockDocument is stored under LockKey while the lock is held
type LockDocument struct {
	Locked    bool      `json:"locked"`
	LockedAt  time.Time `json:"lockedAt"`
	LockedBy  string    `json:"lockedBy"`
	RunID     string    `json:"runId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrLocked is returned when another export holds the lock
var ErrLocked = errors.New("bucket is locked by another export")

// DatabaseLocker provides an exclusive export lock on the bucket
type DatabaseLocker struct {
	bucket *gocb.Bucket
	locked bool
}

// NewDatabaseLocker creates a new database locker
func NewDatabaseLocker(bucket *gocb.Bucket) *DatabaseLocker {
	return &DatabaseLocker{
		bucket: bucket,
	}
}

func newLockDocument(runID string, now time.Time) LockDocument {
	host, _ := os.Hostname()
	return LockDocument{
		Locked:    true,
		LockedAt:  now.UTC(),
		LockedBy:  "labmerge@" + host,
		RunID:     runID,
		ExpiresAt: now.UTC().Add(LockTTL),
	}
}

// Lock takes the export lock. The lock document expires after LockTTL.
func (l *DatabaseLocker) Lock(ctx context.Context, runID string) error {
	if l.locked {
		return fmt.Errorf("export lock is already held by this run")
	}

	col := l.bucket.DefaultCollection()
	_, err := col.Insert(LockKey, newLockDocument(runID, time.Now()), &gocb.InsertOptions{
		Expiry:  LockTTL,
		Context: ctx,
	})
	if errors.Is(err, gocb.ErrDocumentExists) {
		return ErrLocked
	}
	if err != nil {
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	l.locked = true
	log.Info().Str("run_id", runID).Msg("Export lock acquired")
	return nil
}

// Unlock releases the export lock
func (l *DatabaseLocker) Unlock(ctx context.Context) error {
	if !l.locked {
		return fmt.Errorf("export lock is not held")
	}

	col := l.bucket.DefaultCollection()
	_, err := col.Remove(LockKey, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}

	l.locked = false
	log.Info().Msg("Export lock released")
	return nil
}

// IsLocked returns true if this locker holds the lock
func (l *DatabaseLocker) IsLocked() bool {
	return l.locked
}
