package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/database"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

const personColumns = `id, name, email, time_zone_id, kind, created_at, updated_at`

// PersonRepository persists tutors and students. It is the only place that looks at the kind column;
// callers receive a *models.Tutor or *models.Student.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs a PersonRepository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// FindMember loads a person and resolves it to its concrete variant.
func (r *PersonRepository) FindMember(ctx context.Context, id string) (models.Member, error) {
	var person models.Person
	if err := r.db.GetContext(ctx, &person, `SELECT `+personColumns+` FROM persons WHERE id = $1`, id); err != nil {
		return nil, err
	}
	switch person.Kind {
	case models.PersonKindTutor:
		return r.loadTutor(ctx, person)
	case models.PersonKindStudent:
		return r.loadStudent(ctx, person)
	default:
		return nil, fmt.Errorf("person %s has unknown kind %q", id, person.Kind)
	}
}

// FindTutor loads a tutor with qualifications and availability rows.
func (r *PersonRepository) FindTutor(ctx context.Context, id string) (*models.Tutor, error) {
	person, err := r.findByKind(ctx, id, models.PersonKindTutor)
	if err != nil {
		return nil, err
	}
	return r.loadTutor(ctx, *person)
}

// FindStudent loads a student with the qualifications they are interested in.
func (r *PersonRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	person, err := r.findByKind(ctx, id, models.PersonKindStudent)
	if err != nil {
		return nil, err
	}
	return r.loadStudent(ctx, *person)
}

// EmailExists reports whether an email is already registered, ignoring case.
func (r *PersonRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))`
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// CreateWithAccount inserts a person and its login account atomically.
func (r *PersonRepository) CreateWithAccount(ctx context.Context, person *models.Person, account *models.Account) error {
	now := time.Now().UTC()
	person.CreatedAt, person.UpdatedAt = now, now
	account.CreatedAt, account.UpdatedAt = now, now
	account.PersonID = &person.ID

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertPerson = `INSERT INTO persons (id, name, email, time_zone_id, kind, created_at, updated_at)
VALUES (:id, :name, :email, :time_zone_id, :kind, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertPerson, person); err != nil {
			return translateEmailError(err, person.Email, "insert person")
		}
		const insertAccount = `INSERT INTO accounts (id, person_id, email, password_hash, role, created_at, updated_at)
VALUES (:id, :person_id, :email, :password_hash, :role, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertAccount, account); err != nil {
			return translateEmailError(err, account.Email, "insert account")
		}
		return nil
	})
}

// ReplaceTutorQualifications swaps the whole qualification set of a tutor.
func (r *PersonRepository) ReplaceTutorQualifications(ctx context.Context, tutorID string, qualificationIDs []string) error {
	return r.replaceQualifications(ctx, "tutor_qualifications", "tutor_id", models.PersonKindTutor, tutorID, qualificationIDs)
}

// ReplaceStudentQualifications swaps the whole qualification set of a student.
func (r *PersonRepository) ReplaceStudentQualifications(ctx context.Context, studentID string, qualificationIDs []string) error {
	return r.replaceQualifications(ctx, "student_qualifications", "student_id", models.PersonKindStudent, studentID, qualificationIDs)
}

// ListTutorsByQualification returns the tutors offering a qualification, each with availability rows.
func (r *PersonRepository) ListTutorsByQualification(ctx context.Context, qualificationID string) ([]models.Tutor, error) {
	const query = `SELECT p.id, p.name, p.email, p.time_zone_id, p.kind, p.created_at, p.updated_at
FROM persons p
JOIN tutor_qualifications tq ON tq.tutor_id = p.id
WHERE tq.qualification_id = $1 AND p.kind = 'TUTOR'
ORDER BY p.name ASC`
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, query, qualificationID); err != nil {
		return nil, fmt.Errorf("list tutors by qualification: %w", err)
	}
	if len(people) == 0 {
		return []models.Tutor{}, nil
	}

	ids := make([]string, len(people))
	for i, p := range people {
		ids[i] = p.ID
	}
	var rows []models.Availability
	const availabilityQuery = `SELECT id, tutor_id, day, time_slots, created_at, updated_at FROM availabilities WHERE tutor_id = ANY($1) ORDER BY day ASC`
	if err := r.db.SelectContext(ctx, &rows, availabilityQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list tutor availabilities: %w", err)
	}
	byTutor := make(map[string][]models.Availability, len(people))
	for _, row := range rows {
		byTutor[row.TutorID] = append(byTutor[row.TutorID], row)
	}

	tutors := make([]models.Tutor, len(people))
	for i, p := range people {
		tutors[i] = models.Tutor{Person: p, Availabilities: byTutor[p.ID]}
	}
	return tutors, nil
}

func (r *PersonRepository) findByKind(ctx context.Context, id string, kind models.PersonKind) (*models.Person, error) {
	var person models.Person
	query := `SELECT ` + personColumns + ` FROM persons WHERE id = $1 AND kind = $2`
	if err := r.db.GetContext(ctx, &person, query, id, kind); err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *PersonRepository) loadTutor(ctx context.Context, person models.Person) (*models.Tutor, error) {
	quals, err := r.linkedQualifications(ctx, "tutor_qualifications", "tutor_id", person.ID)
	if err != nil {
		return nil, err
	}
	var rows []models.Availability
	const query = `SELECT id, tutor_id, day, time_slots, created_at, updated_at FROM availabilities WHERE tutor_id = $1 ORDER BY day ASC`
	if err := r.db.SelectContext(ctx, &rows, query, person.ID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return &models.Tutor{Person: person, AvailableQualifications: quals, Availabilities: rows}, nil
}

func (r *PersonRepository) loadStudent(ctx context.Context, person models.Person) (*models.Student, error) {
	quals, err := r.linkedQualifications(ctx, "student_qualifications", "student_id", person.ID)
	if err != nil {
		return nil, err
	}
	return &models.Student{Person: person, InterestedQualifications: quals}, nil
}

func (r *PersonRepository) linkedQualifications(ctx context.Context, table, column, personID string) ([]models.Qualification, error) {
	query := fmt.Sprintf(`SELECT q.id, q.subject_id, q.name, q.created_at, q.updated_at
FROM qualifications q
JOIN %s l ON l.qualification_id = q.id
WHERE l.%s = $1
ORDER BY q.name ASC`, table, column)
	quals := []models.Qualification{}
	if err := r.db.SelectContext(ctx, &quals, query, personID); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return quals, nil
}

func (r *PersonRepository) replaceQualifications(ctx context.Context, table, column string, kind models.PersonKind, personID string, ids []string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM persons WHERE id = $1 AND kind = $2 FOR UPDATE`, personID, kind); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, column), personID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		if len(ids) == 0 {
			return nil
		}
		insert := fmt.Sprintf(`INSERT INTO %s (%s, qualification_id) SELECT $1, UNNEST($2::uuid[]) ON CONFLICT DO NOTHING`, table, column)
		if _, err := tx.ExecContext(ctx, insert, personID, pq.Array(ids)); err != nil {
			if database.IsForeignKeyViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrQualificationInvalid, appErrors.ErrQualificationInvalid.Message)
			}
			return fmt.Errorf("insert %s: %w", table, err)
		}
		return nil
	})
}

func translateEmailError(err error, email, op string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrPersonDuplicateEmail, fmt.Sprintf("email '%s' is already registered", email))
	}
	return fmt.Errorf("%s: %w", op, err)
}
