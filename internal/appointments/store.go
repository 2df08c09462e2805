// internal/appointments/store.go
package appointments

import (
	"context"
	"fmt"

	"appointment-scheduler/internal/common/database"
)

// Appointment is one finalized scheduling request. Created exactly once per
// completed job; never updated or deleted by this subsystem.
type Appointment struct {
	JobID      string
	Department string
	Date       string // YYYY-MM-DD
	Time       string // HH:mm:ss
	Timezone   string
}

// Store persists appointments to PostgreSQL.
type Store struct {
	pg *database.PostgresClient
}

func NewStore(pg *database.PostgresClient) *Store {
	return &Store{pg: pg}
}

// EnsureSchema creates the appointments table if absent. The unique job_id
// is the idempotency key that makes Insert safe under queue redelivery.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pg.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			job_id TEXT NOT NULL UNIQUE,
			department TEXT NOT NULL,
			appointment_date DATE NOT NULL,
			appointment_time TIME NOT NULL,
			timezone TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure appointments schema: %w", err)
	}
	return nil
}

// Insert writes one appointment row and returns its generated identifier.
// A redelivered job that already inserted hits the job_id conflict and gets
// the existing row's id back, so no duplicate appointment can exist.
func (s *Store) Insert(ctx context.Context, a Appointment) (string, error) {
	var id string
	err := s.pg.QueryRow(ctx, `
		INSERT INTO appointments (job_id, department, appointment_date, appointment_time, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id) DO UPDATE SET job_id = EXCLUDED.job_id
		RETURNING id`,
		a.JobID, a.Department, a.Date, a.Time, a.Timezone,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert appointment: %w", err)
	}
	return id, nil
}
