// internal/jobs/store.go
package jobs

import (
	"context"
	"errors"
	"strconv"
	"time"

	"appointment-scheduler/internal/common/database"
)

// ErrNotFound signals a job id with no record.
var ErrNotFound = errors.New("job not found")

// isoFormat matches the fixed-width ISO timestamps the status API exposes;
// lexicographic order equals chronological order.
const isoFormat = "2006-01-02T15:04:05.000Z"

// Store is the Redis-backed status store. It is the single source of truth
// for client-visible job progress; writes only ever add or overwrite fields
// along the forward stage path.
type Store struct {
	rdb *database.RedisClient
}

func NewStore(rdb *database.RedisClient) *Store {
	return &Store{rdb: rdb}
}

func key(jobID string) string {
	return "job:" + jobID
}

func nowISO() string {
	return time.Now().UTC().Format(isoFormat)
}

// CreateImageJob writes the initial pending record for an image job.
func (s *Store) CreateImageJob(ctx context.Context, jobID, s3Key string) error {
	now := nowISO()
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldStatus:    string(StatusPending),
		FieldInputType: string(InputImage),
		FieldS3Key:     s3Key,
		FieldCreatedAt: now,
		FieldUpdatedAt: now,
	})
}

// CreateTextJob writes the initial pending record for a text job.
func (s *Store) CreateTextJob(ctx context.Context, jobID, rawText string) error {
	now := nowISO()
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldStatus:    string(StatusPending),
		FieldInputType: string(InputText),
		FieldRawText:   rawText,
		FieldCreatedAt: now,
		FieldUpdatedAt: now,
	})
}

// Get returns the full record verbatim, or ErrNotFound.
func (s *Store) Get(ctx context.Context, jobID string) (map[string]string, error) {
	record, err := s.rdb.HGetAll(ctx, key(jobID))
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, ErrNotFound
	}
	return record, nil
}

// StatusOf reads the status field out of a record.
func StatusOf(record map[string]string) Status {
	return Status(record[FieldStatus])
}

// MarkProcessing records that a worker has picked the job up. Written before
// any external call so a crash mid-processing leaves an observable record.
func (s *Store) MarkProcessing(ctx context.Context, jobID string) error {
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldStatus:    string(StatusProcessing),
		FieldUpdatedAt: nowISO(),
	})
}

// SetOCRResult persists stage 1 output.
func (s *Store) SetOCRResult(ctx context.Context, jobID, text string, confidence float64) error {
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldOCRText:       text,
		FieldOCRConfidence: formatConfidence(confidence),
		FieldUpdatedAt:     nowISO(),
	})
}

// SetEntities persists stage 2 output. Absent values land as the sentinel.
func (s *Store) SetEntities(ctx context.Context, jobID string, department, datePhrase, timePhrase *string, confidence float64) error {
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldEntityDepartment: orSentinel(department),
		FieldEntityDatePhrase: orSentinel(datePhrase),
		FieldEntityTimePhrase: orSentinel(timePhrase),
		FieldEntityConfidence: formatConfidence(confidence),
		FieldUpdatedAt:        nowISO(),
	})
}

// SetNormalized persists stage 3 output.
func (s *Store) SetNormalized(ctx context.Context, jobID string, date, tm *string, confidence float64) error {
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldNormalizedDate:       orSentinel(date),
		FieldNormalizedTime:       orSentinel(tm),
		FieldNormalizedConfidence: formatConfidence(confidence),
		FieldUpdatedAt:            nowISO(),
	})
}

// MarkCompleted records the terminal success state with the final appointment.
func (s *Store) MarkCompleted(ctx context.Context, jobID, appointmentID, department, date, tm string) error {
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldStatus:           string(StatusCompleted),
		FieldAppointmentID:    appointmentID,
		FieldResultDepartment: department,
		FieldResultDate:       date,
		FieldResultTime:       tm,
		FieldUpdatedAt:        nowISO(),
	})
}

// MarkFailed records the terminal failure state with a message. Guardrail
// rejections land here too; the message is the only client-visible
// distinction from infrastructure faults.
func (s *Store) MarkFailed(ctx context.Context, jobID, message string) error {
	return s.rdb.HSet(ctx, key(jobID), map[string]interface{}{
		FieldStatus:       string(StatusFailed),
		FieldErrorMessage: message,
		FieldUpdatedAt:    nowISO(),
	})
}

func orSentinel(v *string) string {
	if v == nil || *v == "" {
		return NotFoundSentinel
	}
	return *v
}

func formatConfidence(c float64) string {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return strconv.FormatFloat(c, 'f', -1, 64)
}
