package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/database"
)

// AvailabilityRepository persists weekly availability rows, one per tutor and UTC weekday.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByTutor returns the stored rows of a tutor ordered by weekday.
func (r *AvailabilityRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Availability, error) {
	const query = `SELECT id, tutor_id, day, time_slots, created_at, updated_at FROM availabilities WHERE tutor_id = $1 ORDER BY day ASC`
	var rows []models.Availability
	if err := r.db.SelectContext(ctx, &rows, query, tutorID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return rows, nil
}

// ReplaceDays writes the given UTC weekday rows of a tutor in one transaction. Rows without slots are
// deleted; every other row is upserted on (tutor_id, day).
func (r *AvailabilityRepository) ReplaceDays(ctx context.Context, tutorID string, rows []models.Availability) error {
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range rows {
			row := &rows[i]
			row.TutorID = tutorID

			slots, err := row.Slots()
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				if _, err := tx.ExecContext(ctx, `DELETE FROM availabilities WHERE tutor_id = $1 AND day = $2`, tutorID, row.Day); err != nil {
					return fmt.Errorf("delete availability: %w", err)
				}
				continue
			}

			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			if row.CreatedAt.IsZero() {
				row.CreatedAt = now
			}
			row.UpdatedAt = now

			const upsert = `INSERT INTO availabilities (id, tutor_id, day, time_slots, created_at, updated_at)
VALUES (:id, :tutor_id, :day, :time_slots, :created_at, :updated_at)
ON CONFLICT (tutor_id, day) DO UPDATE
SET time_slots = EXCLUDED.time_slots,
    updated_at = EXCLUDED.updated_at`
			if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
				return fmt.Errorf("upsert availability: %w", err)
			}
		}
		return nil
	})
}
