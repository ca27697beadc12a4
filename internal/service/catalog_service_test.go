package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type mockLearningSystemRepo struct {
	systems map[string]*models.LearningSystem
	names   map[string]bool
	deleted []string
	seq     int
}

func newMockLearningSystemRepo() *mockLearningSystemRepo {
	return &mockLearningSystemRepo{systems: make(map[string]*models.LearningSystem), names: make(map[string]bool)}
}

func (m *mockLearningSystemRepo) List(ctx context.Context) ([]models.LearningSystem, error) {
	var out []models.LearningSystem
	for _, s := range m.systems {
		out = append(out, models.LearningSystem{ID: s.ID, Name: s.Name})
	}
	return out, nil
}

func (m *mockLearningSystemRepo) FindByID(ctx context.Context, id string) (*models.LearningSystem, error) {
	if s, ok := m.systems[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLearningSystemRepo) FindTree(ctx context.Context, id string) (*models.LearningSystem, error) {
	return m.FindByID(ctx, id)
}

func (m *mockLearningSystemRepo) CreateTree(ctx context.Context, system *models.LearningSystem) error {
	if m.names[system.Name] {
		return appErrors.Clone(appErrors.ErrLearningSystemDuplicateName, "")
	}
	m.seq++
	system.ID = fmt.Sprintf("ls-%d", m.seq)
	m.names[system.Name] = true
	m.systems[system.ID] = system
	return nil
}

func (m *mockLearningSystemRepo) UpdateTree(ctx context.Context, system *models.LearningSystem) error {
	if _, ok := m.systems[system.ID]; !ok {
		return sql.ErrNoRows
	}
	m.systems[system.ID] = system
	return nil
}

func (m *mockLearningSystemRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.systems[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.systems, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSubjectRepo struct {
	subjects map[string]*models.Subject
	err      error
}

func (m *mockSubjectRepo) ListBySystem(ctx context.Context, systemID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, s := range m.subjects {
		if s.LearningSystemID == systemID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.err != nil {
		return m.err
	}
	subject.ID = fmt.Sprintf("sub-%d", len(m.subjects)+1)
	m.subjects[subject.ID] = subject
	return nil
}

func (m *mockSubjectRepo) Rename(ctx context.Context, id, name string) error {
	s, ok := m.subjects[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Name = name
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.subjects, id)
	return nil
}

type mockQualificationRepo struct {
	items     map[string]*models.Qualification
	deleteErr error
}

func (m *mockQualificationRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.Qualification, error) {
	var out []models.Qualification
	for _, q := range m.items {
		if q.SubjectID == subjectID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *mockQualificationRepo) FindByID(ctx context.Context, id string) (*models.Qualification, error) {
	if q, ok := m.items[id]; ok {
		return q, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockQualificationRepo) Create(ctx context.Context, q *models.Qualification) error {
	q.ID = fmt.Sprintf("q-%d", len(m.items)+1)
	m.items[q.ID] = q
	return nil
}

func (m *mockQualificationRepo) Rename(ctx context.Context, id, name string) error {
	q, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	q.Name = name
	return nil
}

func (m *mockQualificationRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func TestLearningSystemServiceCreate(t *testing.T) {
	repo := newMockLearningSystemRepo()
	svc := NewLearningSystemService(repo, nil, nil)

	system, err := svc.Create(context.Background(), models.CreateLearningSystemRequest{
		Name: "  IGCSE ",
		Subjects: []models.SubjectInput{{
			Name:           "Mathematics",
			Qualifications: []models.QualificationInput{{Name: "Core"}, {Name: "Extended"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "IGCSE", system.Name)
	require.Len(t, system.Subjects, 1)
	assert.Len(t, system.Subjects[0].Qualifications, 2)

	_, err = svc.Create(context.Background(), models.CreateLearningSystemRequest{Name: "IGCSE"})
	assert.True(t, errors.Is(err, appErrors.ErrLearningSystemDuplicateName))

	_, err = svc.Create(context.Background(), models.CreateLearningSystemRequest{Name: "X"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLearningSystemServiceRejectsDuplicateNamesInRequest(t *testing.T) {
	svc := NewLearningSystemService(newMockLearningSystemRepo(), nil, nil)

	_, err := svc.Create(context.Background(), models.CreateLearningSystemRequest{
		Name:     "A-Level",
		Subjects: []models.SubjectInput{{Name: "Physics"}, {Name: "physics"}},
	})
	assert.True(t, errors.Is(err, appErrors.ErrSubjectDuplicateName))

	_, err = svc.Create(context.Background(), models.CreateLearningSystemRequest{
		Name: "A-Level",
		Subjects: []models.SubjectInput{{
			Name:           "Physics",
			Qualifications: []models.QualificationInput{{Name: "AS"}, {Name: "as"}},
		}},
	})
	assert.True(t, errors.Is(err, appErrors.ErrQualificationDuplicateName))
}

func TestLearningSystemServiceUpdateAndDelete(t *testing.T) {
	repo := newMockLearningSystemRepo()
	svc := NewLearningSystemService(repo, nil, nil)

	created, err := svc.Create(context.Background(), models.CreateLearningSystemRequest{Name: "IB"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, models.UpdateLearningSystemRequest{
		Name:     "International Baccalaureate",
		Subjects: []models.SubjectInput{{Name: "Chemistry"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "International Baccalaureate", updated.Name)
	assert.Len(t, updated.Subjects, 1)

	_, err = svc.Update(context.Background(), "missing", models.UpdateLearningSystemRequest{Name: "Nope"})
	assert.True(t, errors.Is(err, appErrors.ErrLearningSystemNotFound))

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.True(t, errors.Is(svc.Delete(context.Background(), created.ID), appErrors.ErrLearningSystemNotFound))

	_, err = svc.Get(context.Background(), created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrLearningSystemNotFound))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSubjectService(t *testing.T) {
	systems := newMockLearningSystemRepo()
	systems.systems["ls-1"] = &models.LearningSystem{ID: "ls-1", Name: "IGCSE"}
	repo := &mockSubjectRepo{subjects: make(map[string]*models.Subject)}
	svc := NewSubjectService(repo, systems, nil, nil)

	subject, err := svc.Add(context.Background(), "ls-1", models.NameRequest{Name: " Biology "})
	require.NoError(t, err)
	assert.Equal(t, "Biology", subject.Name)
	assert.Equal(t, "ls-1", subject.LearningSystemID)

	_, err = svc.Add(context.Background(), "ls-9", models.NameRequest{Name: "Biology"})
	assert.True(t, errors.Is(err, appErrors.ErrLearningSystemNotFound))

	repo.err = appErrors.Clone(appErrors.ErrSubjectDuplicateName, "")
	_, err = svc.Add(context.Background(), "ls-1", models.NameRequest{Name: "Biology"})
	assert.True(t, errors.Is(err, appErrors.ErrSubjectDuplicateName))
	repo.err = nil

	renamed, err := svc.Update(context.Background(), subject.ID, models.NameRequest{Name: "Human Biology"})
	require.NoError(t, err)
	assert.Equal(t, "Human Biology", renamed.Name)

	list, err := svc.List(context.Background(), "ls-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Remove(context.Background(), subject.ID))
	assert.True(t, errors.Is(svc.Remove(context.Background(), subject.ID), appErrors.ErrSubjectNotFound))
}

func TestQualificationService(t *testing.T) {
	subjects := &mockSubjectRepo{subjects: map[string]*models.Subject{"sub-1": {ID: "sub-1", Name: "Maths"}}}
	repo := &mockQualificationRepo{items: make(map[string]*models.Qualification)}
	svc := NewQualificationService(repo, subjects, nil, nil)

	q, err := svc.Add(context.Background(), "sub-1", models.NameRequest{Name: "Extended"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", q.SubjectID)

	_, err = svc.Add(context.Background(), "sub-2", models.NameRequest{Name: "Extended"})
	assert.True(t, errors.Is(err, appErrors.ErrSubjectNotFound))

	updated, err := svc.Update(context.Background(), q.ID, models.NameRequest{Name: "Core"})
	require.NoError(t, err)
	assert.Equal(t, "Core", updated.Name)

	_, err = svc.Get(context.Background(), "q-404")
	assert.True(t, errors.Is(err, appErrors.ErrQualificationNotFound))

	repo.deleteErr = appErrors.Clone(appErrors.ErrConflict, "qualification is referenced by bookings")
	assert.True(t, errors.Is(svc.Remove(context.Background(), q.ID), appErrors.ErrConflict))
	repo.deleteErr = nil
	require.NoError(t, svc.Remove(context.Background(), q.ID))

	list, err := svc.List(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
