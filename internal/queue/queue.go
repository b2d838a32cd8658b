// Package queue holds the in-memory, insertion-ordered list of student
// submissions awaiting or holding grading results. All reads hand out copies
// so observers never see a record mid-mutation.
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chief-impact7/OCRvKing/internal/pipeline"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
)

// Status is the lifecycle state of a submission record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// ErrRecordNotFound indicates the record id is not present in the queue.
var ErrRecordNotFound = errors.New("submission record not found")

// Record is one student submission. Exactly one of Result and ErrorMessage is
// present in a terminal state, consistent with Status.
type Record struct {
	ID           string
	SourceName   string
	Pages        []pipeline.Artifact
	Status       Status
	Result       *ai.GradeResult
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Status       *Status
	Result       *ai.GradeResult
	ErrorMessage *string
}

// Queue is an ordered mutable collection of submission records.
type Queue struct {
	mu      sync.RWMutex
	records []*Record
	now     func() time.Time
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{now: time.Now}
}

// Append adds records in order, assigning ids and pending status. The
// populated copies are returned.
func (q *Queue) Append(records ...Record) []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	appended := make([]Record, 0, len(records))
	for _, record := range records {
		record.ID = uuid.NewString()
		record.Status = StatusPending
		record.Result = nil
		record.ErrorMessage = ""
		record.CreatedAt = q.now()
		record.UpdatedAt = record.CreatedAt

		stored := record
		q.records = append(q.records, &stored)
		appended = append(appended, cloneRecord(&stored))
	}

	return appended
}

// Get returns a copy of the record with the given id.
func (q *Queue) Get(id string) (Record, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, record := range q.records {
		if record.ID == id {
			return cloneRecord(record), nil
		}
	}

	return Record{}, ErrRecordNotFound
}

// Update merges the patch into the record with the given id. Status
// transitions keep the result/error invariant: a completed record carries no
// error message and an errored record carries no result.
func (q *Queue) Update(id string, patch Patch) (Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, record := range q.records {
		if record.ID != id {
			continue
		}

		if patch.Result != nil {
			result := *patch.Result
			record.Result = &result
		}
		if patch.ErrorMessage != nil {
			record.ErrorMessage = *patch.ErrorMessage
		}
		if patch.Status != nil {
			record.Status = *patch.Status
			switch *patch.Status {
			case StatusCompleted:
				record.ErrorMessage = ""
			case StatusError:
				record.Result = nil
			case StatusPending, StatusProcessing:
				record.Result = nil
				record.ErrorMessage = ""
			}
		}
		record.UpdatedAt = q.now()

		return cloneRecord(record), nil
	}

	return Record{}, ErrRecordNotFound
}

// Remove deletes the record with the given id, preserving the order of the rest.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, record := range q.records {
		if record.ID == id {
			q.records = append(q.records[:i], q.records[i+1:]...)
			return nil
		}
	}

	return ErrRecordNotFound
}

// Reset drops every record.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.records = nil
}

// Snapshot returns copies of all records in insertion order.
func (q *Queue) Snapshot() []Record {
	q.mu.RLock()
	defer q.mu.RUnlock()

	snapshot := make([]Record, 0, len(q.records))
	for _, record := range q.records {
		snapshot = append(snapshot, cloneRecord(record))
	}

	return snapshot
}

// PendingIDs returns the ids of pending records in queue order. A grading run
// operates on this snapshot; records appended later are not visited by it.
func (q *Queue) PendingIDs() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ids := make([]string, 0, len(q.records))
	for _, record := range q.records {
		if record.Status == StatusPending {
			ids = append(ids, record.ID)
		}
	}

	return ids
}

// Completed returns copies of completed records that carry a result.
func (q *Queue) Completed() []Record {
	q.mu.RLock()
	defer q.mu.RUnlock()

	completed := make([]Record, 0, len(q.records))
	for _, record := range q.records {
		if record.Status == StatusCompleted && record.Result != nil {
			completed = append(completed, cloneRecord(record))
		}
	}

	return completed
}

// Len reports the number of records.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.records)
}

// Progress is the ratio of settled records (completed or error) to total.
// An empty queue reports zero.
func (q *Queue) Progress() float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.records) == 0 {
		return 0
	}

	settled := 0
	for _, record := range q.records {
		if record.Status == StatusCompleted || record.Status == StatusError {
			settled++
		}
	}

	return float64(settled) / float64(len(q.records))
}

func cloneRecord(record *Record) Record {
	clone := *record
	if record.Result != nil {
		result := *record.Result
		result.Scores = append([]ai.QuestionScore(nil), record.Result.Scores...)
		clone.Result = &result
	}
	return clone
}
