package couchbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/labmerge/internal/exam"
	"stealthcompany.com/labmerge/internal/metrics"
)

// Client exports merged exam records into a Couchbase bucket
type Client struct {
	connManager *ConnectionManager
	docManager  *DocumentManager
	locker      *DatabaseLocker
	runID       string
}

// NewClient connects to Couchbase. runID tags the lock and every document.
func NewClient(url, username, password, bucketName, runID string) (*Client, error) {
	connManager, err := NewConnectionManager(url, username, password, bucketName)
	if err != nil {
		return nil, err
	}

	locker := NewDatabaseLocker(connManager.GetBucket())
	docManager := NewDocumentManager(connManager.GetBucket(), locker)

	log.Info().
		Str("bucket", bucketName).
		Msg("Couchbase export sink initialized")

	return &Client{
		connManager: connManager,
		docManager:  docManager,
		locker:      locker,
		runID:       runID,
	}, nil
}

// Close closes the Couchbase connection
func (c *Client) Close() error {
	return c.connManager.Close()
}

// Export upserts every record under the export lock. It stops at the first
// failed write, since a partial export is a failed run.
func (c *Client) Export(ctx context.Context, records []exam.Record) (exported int, err error) {
	if err := c.locker.Lock(ctx, c.runID); err != nil {
		return 0, err
	}
	defer func() {
		if unlockErr := c.locker.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			log.Error().Err(unlockErr).Msg("Failed to release export lock")
			err = errors.Join(err, unlockErr)
		}
	}()

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			metrics.RecordExport(exported, len(records)-exported)
			return exported, err
		}

		if err := c.docManager.UpsertExam(ctx, record, c.runID, i); err != nil {
			metrics.RecordExport(exported, len(records)-exported)
			return exported, fmt.Errorf("failed to export record %d of %d: %w", i+1, len(records), err)
		}
		exported++

		if exported%100 == 0 {
			log.Info().
				Int("processed", exported).
				Int("total", len(records)).
				Msg("Export progress")
		}
	}

	metrics.RecordExport(exported, 0)
	log.Info().
		Int("exported", exported).
		Str("bucket", c.connManager.GetBucketName()).
		Msg("Completed export")
	return exported, nil
}
