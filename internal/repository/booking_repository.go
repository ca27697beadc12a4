package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/database"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

const bookingColumns = `id, student_id, tutor_id, qualification_id, start_time, end_time, created_at`

// BookingRepository persists bookings. Start and end are always written in UTC.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListByTutorBetween returns the tutor's bookings intersecting [from, to).
func (r *BookingRepository) ListByTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tutor_id = $1 AND start_time < $3 AND end_time > $2 ORDER BY start_time ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, tutorID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list tutor bookings: %w", err)
	}
	return bookings, nil
}

// ListByTutorsBetween returns bookings of several tutors intersecting [from, to), grouped by tutor.
func (r *BookingRepository) ListByTutorsBetween(ctx context.Context, tutorIDs []string, from, to time.Time) (map[string][]models.Booking, error) {
	grouped := make(map[string][]models.Booking, len(tutorIDs))
	if len(tutorIDs) == 0 {
		return grouped, nil
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tutor_id = ANY($1) AND start_time < $3 AND end_time > $2 ORDER BY start_time ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, pq.Array(tutorIDs), from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list bookings for tutors: %w", err)
	}
	for _, b := range bookings {
		grouped[b.TutorID] = append(grouped[b.TutorID], b)
	}
	return grouped, nil
}

// CreateExclusive inserts the booking unless it overlaps another booking of the same tutor. The tutor
// row is locked for the duration of the transaction so concurrent requests for one tutor serialise;
// the bookings_no_overlap exclusion constraint rejects anything that slips through.
func (r *BookingRepository) CreateExclusive(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.StartTime = booking.StartTime.UTC()
	booking.EndTime = booking.EndTime.UTC()
	booking.CreatedAt = time.Now().UTC()

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM persons WHERE id = $1 AND kind = 'TUTOR' FOR UPDATE`, booking.TutorID); err != nil {
			return err
		}

		var overlapping bool
		const overlapQuery = `SELECT EXISTS (SELECT 1 FROM bookings WHERE tutor_id = $1 AND start_time < $3 AND end_time > $2)`
		if err := tx.GetContext(ctx, &overlapping, overlapQuery, booking.TutorID, booking.StartTime, booking.EndTime); err != nil {
			return fmt.Errorf("check overlapping bookings: %w", err)
		}
		if overlapping {
			return appErrors.Clone(appErrors.ErrBookingOverlapping, appErrors.ErrBookingOverlapping.Message)
		}

		const insert = `INSERT INTO bookings (id, student_id, tutor_id, qualification_id, start_time, end_time, created_at)
VALUES (:id, :student_id, :tutor_id, :qualification_id, :start_time, :end_time, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, booking); err != nil {
			if database.IsExclusionViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrBookingOverlapping, appErrors.ErrBookingOverlapping.Message)
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
}

// ListDetails returns bookings joined with names, newest first, plus the total count.
func (r *BookingRepository) ListDetails(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	base := `FROM bookings b
JOIN persons s ON s.id = b.student_id
JOIN persons t ON t.id = b.tutor_id
JOIN qualifications q ON q.id = b.qualification_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("b.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("b.tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.end_time > $%d", len(args)+1))
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_time < $%d", len(args)+1))
		args = append(args, filter.To.UTC())
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT b.id, b.student_id, b.tutor_id, b.qualification_id, b.start_time, b.end_time, b.created_at,
s.name AS student_name, s.time_zone_id AS student_time_zone,
t.name AS tutor_name, t.time_zone_id AS tutor_time_zone,
q.name AS qualification_name
%s ORDER BY b.start_time DESC LIMIT %d OFFSET %d`, base, size, offset)
	var details []models.BookingDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return details, total, nil
}
