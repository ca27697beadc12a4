package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/database"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// LearningSystemRepository persists learning systems together with their subject and qualification tree.
type LearningSystemRepository struct {
	db *sqlx.DB
}

// NewLearningSystemRepository constructs the repository.
func NewLearningSystemRepository(db *sqlx.DB) *LearningSystemRepository {
	return &LearningSystemRepository{db: db}
}

// List returns every learning system without its tree.
func (r *LearningSystemRepository) List(ctx context.Context) ([]models.LearningSystem, error) {
	const query = `SELECT id, name, created_at, updated_at FROM learning_systems ORDER BY name ASC`
	var systems []models.LearningSystem
	if err := r.db.SelectContext(ctx, &systems, query); err != nil {
		return nil, fmt.Errorf("list learning systems: %w", err)
	}
	return systems, nil
}

// FindByID fetches a learning system row.
func (r *LearningSystemRepository) FindByID(ctx context.Context, id string) (*models.LearningSystem, error) {
	const query = `SELECT id, name, created_at, updated_at FROM learning_systems WHERE id = $1`
	var system models.LearningSystem
	if err := r.db.GetContext(ctx, &system, query, id); err != nil {
		return nil, err
	}
	return &system, nil
}

// FindTree fetches a learning system with its subjects and qualifications.
func (r *LearningSystemRepository) FindTree(ctx context.Context, id string) (*models.LearningSystem, error) {
	system, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	const subjectsQuery = `SELECT id, learning_system_id, name, created_at, updated_at FROM subjects WHERE learning_system_id = $1 ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, subjectsQuery, id); err != nil {
		return nil, fmt.Errorf("list subjects of learning system: %w", err)
	}

	const qualificationsQuery = `SELECT q.id, q.subject_id, q.name, q.created_at, q.updated_at
FROM qualifications q
JOIN subjects s ON s.id = q.subject_id
WHERE s.learning_system_id = $1
ORDER BY q.name ASC`
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, qualificationsQuery, id); err != nil {
		return nil, fmt.Errorf("list qualifications of learning system: %w", err)
	}

	bySubject := make(map[string][]models.Qualification, len(subjects))
	for _, q := range qualifications {
		bySubject[q.SubjectID] = append(bySubject[q.SubjectID], q)
	}
	for i := range subjects {
		subjects[i].Qualifications = bySubject[subjects[i].ID]
	}
	system.Subjects = subjects
	return system, nil
}

// CreateTree inserts the learning system and its whole tree in one transaction. The context is checked
// between subjects and qualifications so a disconnected client aborts the write early.
func (r *LearningSystemRepository) CreateTree(ctx context.Context, system *models.LearningSystem) error {
	now := time.Now().UTC()
	system.ID = uuid.NewString()
	system.CreatedAt = now
	system.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertSystem = `INSERT INTO learning_systems (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertSystem, system); err != nil {
			return translateCatalogError(err, "insert learning system", appErrors.ErrLearningSystemDuplicateName, system.Name)
		}
		for i := range system.Subjects {
			if err := ctx.Err(); err != nil {
				return err
			}
			subject := &system.Subjects[i]
			subject.LearningSystemID = system.ID
			if err := insertSubject(ctx, tx, subject, now); err != nil {
				return err
			}
			for j := range subject.Qualifications {
				if err := ctx.Err(); err != nil {
					return err
				}
				qualification := &subject.Qualifications[j]
				qualification.SubjectID = subject.ID
				if err := insertQualification(ctx, tx, qualification, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// UpdateTree renames the learning system and reconciles its tree: entries with a known id are renamed,
// entries without an id are created, and stored entries missing from the input are deleted.
func (r *LearningSystemRepository) UpdateTree(ctx context.Context, system *models.LearningSystem) error {
	now := time.Now().UTC()
	system.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE learning_systems SET name = $2, updated_at = $3 WHERE id = $1`, system.ID, system.Name, now)
		if err != nil {
			return translateCatalogError(err, "update learning system", appErrors.ErrLearningSystemDuplicateName, system.Name)
		}
		if err := expectAffected(res); err != nil {
			return err
		}

		var existing []string
		if err := tx.SelectContext(ctx, &existing, `SELECT id FROM subjects WHERE learning_system_id = $1`, system.ID); err != nil {
			return fmt.Errorf("list existing subjects: %w", err)
		}
		keep := make(map[string]struct{}, len(system.Subjects))

		for i := range system.Subjects {
			if err := ctx.Err(); err != nil {
				return err
			}
			subject := &system.Subjects[i]
			subject.LearningSystemID = system.ID
			if subject.ID == "" || !contains(existing, subject.ID) {
				if err := insertSubject(ctx, tx, subject, now); err != nil {
					return err
				}
			} else {
				if _, err := tx.ExecContext(ctx, `UPDATE subjects SET name = $2, updated_at = $3 WHERE id = $1`, subject.ID, subject.Name, now); err != nil {
					return translateCatalogError(err, "update subject", appErrors.ErrSubjectDuplicateName, subject.Name)
				}
			}
			keep[subject.ID] = struct{}{}
			if err := reconcileQualifications(ctx, tx, subject, now); err != nil {
				return err
			}
		}

		var stale []string
		for _, id := range existing {
			if _, ok := keep[id]; !ok {
				stale = append(stale, id)
			}
		}
		if len(stale) > 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = ANY($1)`, pq.Array(stale)); err != nil {
				return fmt.Errorf("delete removed subjects: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the learning system; subjects and qualifications cascade.
func (r *LearningSystemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM learning_systems WHERE id = $1`, id)
	if err != nil {
		return translateDeleteError(err, "learning system")
	}
	return expectAffected(res)
}

func reconcileQualifications(ctx context.Context, tx *sqlx.Tx, subject *models.Subject, now time.Time) error {
	var existing []string
	if err := tx.SelectContext(ctx, &existing, `SELECT id FROM qualifications WHERE subject_id = $1`, subject.ID); err != nil {
		return fmt.Errorf("list existing qualifications: %w", err)
	}
	keep := make(map[string]struct{}, len(subject.Qualifications))
	for i := range subject.Qualifications {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := &subject.Qualifications[i]
		q.SubjectID = subject.ID
		if q.ID == "" || !contains(existing, q.ID) {
			if err := insertQualification(ctx, tx, q, now); err != nil {
				return err
			}
		} else if _, err := tx.ExecContext(ctx, `UPDATE qualifications SET name = $2, updated_at = $3 WHERE id = $1`, q.ID, q.Name, now); err != nil {
			return translateCatalogError(err, "update qualification", appErrors.ErrQualificationDuplicateName, q.Name)
		}
		keep[q.ID] = struct{}{}
	}

	var stale []string
	for _, id := range existing {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM qualifications WHERE id = ANY($1)`, pq.Array(stale)); err != nil {
		return fmt.Errorf("delete removed qualifications: %w", err)
	}
	return nil
}

func insertSubject(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject, now time.Time) error {
	subject.ID = uuid.NewString()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, learning_system_id, name, created_at, updated_at) VALUES (:id, :learning_system_id, :name, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, subject); err != nil {
		return translateCatalogError(err, "insert subject", appErrors.ErrSubjectDuplicateName, subject.Name)
	}
	return nil
}

func insertQualification(ctx context.Context, exec sqlx.ExtContext, q *models.Qualification, now time.Time) error {
	q.ID = uuid.NewString()
	q.CreatedAt = now
	q.UpdatedAt = now
	const query = `INSERT INTO qualifications (id, subject_id, name, created_at, updated_at) VALUES (:id, :subject_id, :name, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, q); err != nil {
		return translateCatalogError(err, "insert qualification", appErrors.ErrQualificationDuplicateName, q.Name)
	}
	return nil
}

// translateCatalogError turns unique violations into the matching duplicate-name error.
func translateCatalogError(err error, op string, duplicate *appErrors.Error, name string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, duplicate, fmt.Sprintf("%s '%s' already exists", duplicateSubject(duplicate), name))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func duplicateSubject(duplicate *appErrors.Error) string {
	switch duplicate {
	case appErrors.ErrLearningSystemDuplicateName:
		return "learning system"
	case appErrors.ErrSubjectDuplicateName:
		return "subject"
	default:
		return "qualification"
	}
}

// translateDeleteError reports a conflict when bookings still reference the row being removed.
func translateDeleteError(err error, entity string) error {
	if database.IsForeignKeyViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict, entity+" is referenced by existing bookings")
	}
	return fmt.Errorf("delete %s: %w", entity, err)
}

// expectAffected reports sql.ErrNoRows when a write matched nothing.
func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
