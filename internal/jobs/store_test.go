// internal/jobs/store_test.go
package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-scheduler/internal/common/database"
)

// ==========================
// Test Helper Functions
// ==========================

func setupStore(t *testing.T) *Store {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { rdb.Close() })

	return NewStore(&database.RedisClient{Client: rdb})
}

func strPtr(s string) *string { return &s }

// ==========================
// Lifecycle Tests
// ==========================

func TestStore_CreateTextJob(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.CreateTextJob(ctx, "job-1", "Dentist tomorrow at 10am")
	require.NoError(t, err)

	record, err := store.Get(ctx, "job-1")
	require.NoError(t, err)

	assert.Equal(t, "pending", record[FieldStatus])
	assert.Equal(t, "text", record[FieldInputType])
	assert.Equal(t, "Dentist tomorrow at 10am", record[FieldRawText])
	assert.NotEmpty(t, record[FieldCreatedAt])
	assert.Equal(t, record[FieldCreatedAt], record[FieldUpdatedAt])
}

func TestStore_CreateImageJob(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.CreateImageJob(ctx, "job-2", "uploads/abc.png")
	require.NoError(t, err)

	record, err := store.Get(ctx, "job-2")
	require.NoError(t, err)

	assert.Equal(t, "pending", record[FieldStatus])
	assert.Equal(t, "image", record[FieldInputType])
	assert.Equal(t, "uploads/abc.png", record[FieldS3Key])
}

func TestStore_Get_Unknown(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Get_RedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(&database.RedisClient{Client: rdb})

	mock.ExpectHGetAll("job:job-err").SetErr(errors.New("connection reset"))

	// A transport fault must surface as-is, never be confused with a
	// missing record.
	_, err := store.Get(context.Background(), "job-err")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FullSuccessPath(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTextJob(ctx, "job-3", "cardiology next monday"))
	require.NoError(t, store.MarkProcessing(ctx, "job-3"))
	require.NoError(t, store.SetOCRResult(ctx, "job-3", "cardiology next monday", 1.0))
	require.NoError(t, store.SetEntities(ctx, "job-3", strPtr("cardiology"), strPtr("next monday"), nil, 0.92))
	require.NoError(t, store.SetNormalized(ctx, "job-3", strPtr("2025-07-21"), nil, 0.88))
	require.NoError(t, store.MarkCompleted(ctx, "job-3", "appt-9", "Cardiology", "2025-07-21", "09:00:00"))

	record, err := store.Get(ctx, "job-3")
	require.NoError(t, err)

	assert.Equal(t, "completed", record[FieldStatus])
	assert.Equal(t, "cardiology next monday", record[FieldOCRText])
	assert.Equal(t, "1", record[FieldOCRConfidence])
	assert.Equal(t, "cardiology", record[FieldEntityDepartment])
	assert.Equal(t, "next monday", record[FieldEntityDatePhrase])
	assert.Equal(t, NotFoundSentinel, record[FieldEntityTimePhrase])
	assert.Equal(t, "0.92", record[FieldEntityConfidence])
	assert.Equal(t, "2025-07-21", record[FieldNormalizedDate])
	assert.Equal(t, NotFoundSentinel, record[FieldNormalizedTime])
	assert.Equal(t, "appt-9", record[FieldAppointmentID])
	assert.Equal(t, "Cardiology", record[FieldResultDepartment])
	assert.Equal(t, "2025-07-21", record[FieldResultDate])
	assert.Equal(t, "09:00:00", record[FieldResultTime])

	// Raw input stays visible after completion.
	assert.Equal(t, "cardiology next monday", record[FieldRawText])
}

func TestStore_MarkFailed(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTextJob(ctx, "job-4", "see someone sometime"))
	require.NoError(t, store.MarkProcessing(ctx, "job-4"))
	require.NoError(t, store.MarkFailed(ctx, "job-4", "Ambiguous or missing date or department."))

	record, err := store.Get(ctx, "job-4")
	require.NoError(t, err)

	assert.Equal(t, "failed", record[FieldStatus])
	assert.Equal(t, "Ambiguous or missing date or department.", record[FieldErrorMessage])
}

func TestStore_StageWriteReplayIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTextJob(ctx, "job-5", "dentist friday"))
	require.NoError(t, store.SetEntities(ctx, "job-5", strPtr("dentist"), strPtr("friday"), nil, 0.9))

	before, err := store.Get(ctx, "job-5")
	require.NoError(t, err)

	// A redelivered message rewrites the same stage fields; the record must
	// converge to the same values.
	require.NoError(t, store.SetEntities(ctx, "job-5", strPtr("dentist"), strPtr("friday"), nil, 0.9))

	after, err := store.Get(ctx, "job-5")
	require.NoError(t, err)

	assert.Equal(t, before[FieldEntityDepartment], after[FieldEntityDepartment])
	assert.Equal(t, before[FieldEntityDatePhrase], after[FieldEntityDatePhrase])
	assert.Equal(t, before[FieldEntityConfidence], after[FieldEntityConfidence])
}

// ==========================
// Field Encoding Tests
// ==========================

func TestStore_UpdatedAtOrdering(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTextJob(ctx, "job-6", "anything"))
	first, err := store.Get(ctx, "job-6")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.MarkProcessing(ctx, "job-6"))

	second, err := store.Get(ctx, "job-6")
	require.NoError(t, err)

	// Fixed-width format means string order equals time order.
	assert.True(t, second[FieldUpdatedAt] >= first[FieldUpdatedAt])
	assert.Len(t, second[FieldUpdatedAt], len("2006-01-02T15:04:05.000Z"))

	_, err = time.Parse(isoFormat, second[FieldUpdatedAt])
	assert.NoError(t, err)
}

func TestFormatConfidence_Clamps(t *testing.T) {
	assert.Equal(t, "0", formatConfidence(-0.5))
	assert.Equal(t, "0", formatConfidence(0))
	assert.Equal(t, "0.7", formatConfidence(0.7))
	assert.Equal(t, "1", formatConfidence(1))
	assert.Equal(t, "1", formatConfidence(3.2))
}

func TestOrSentinel(t *testing.T) {
	assert.Equal(t, NotFoundSentinel, orSentinel(nil))
	assert.Equal(t, NotFoundSentinel, orSentinel(strPtr("")))
	assert.Equal(t, "dentist", orSentinel(strPtr("dentist")))
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
