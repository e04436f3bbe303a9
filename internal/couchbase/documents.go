package couchbase

import (
	"context"
	"fmt"

	"github.com/couchbase/gocb/v2"
	"stealthcompany.com/labmerge/internal/exam"
)

// ExamDocumentPrefix prefixes the key of every exported exam document
const ExamDocumentPrefix = "exam/"

// ExamDocument is the stored form of an exam record
type ExamDocument struct {
	DocID        string      `json:"docId"`
	ResourceType string      `json:"resourceType"`
	RunID        string      `json:"runId"`
	Position     int         `json:"position"`
	Record       exam.Record `json:"record"`
}

// DocumentID builds the document key for the record at position in a run's
// export. id_exame is not unique across laboratories and may be empty, so it
// stays in the document body only.
func DocumentID(runID string, position int) string {
	return fmt.Sprintf("%s%s/%d", ExamDocumentPrefix, runID, position)
}

func newExamDocument(record exam.Record, runID string, position int) ExamDocument {
	return ExamDocument{
		DocID:        DocumentID(runID, position),
		ResourceType: "LabExam",
		RunID:        runID,
		Position:     position,
		Record:       record,
	}
}

// DocumentManager writes exam documents while the export lock is held
type DocumentManager struct {
	bucket *gocb.Bucket
	locker *DatabaseLocker
}

// NewDocumentManager creates a new document manager
func NewDocumentManager(bucket *gocb.Bucket, locker *DatabaseLocker) *DocumentManager {
	return &DocumentManager{
		bucket: bucket,
		locker: locker,
	}
}

// UpsertExam stores the document for the record at position in the run
func (dm *DocumentManager) UpsertExam(ctx context.Context, record exam.Record, runID string, position int) error {
	if !dm.locker.IsLocked() {
		return fmt.Errorf("export lock not held, refusing to write %s", DocumentID(runID, position))
	}

	doc := newExamDocument(record, runID, position)
	_, err := dm.bucket.DefaultCollection().Upsert(doc.DocID, doc, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.DocID, err)
	}
	return nil
}
