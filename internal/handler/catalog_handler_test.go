package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type catalogServiceMock struct {
	systems   []models.LearningSystem
	system    *models.LearningSystem
	createReq models.CreateLearningSystemRequest
	err       error
	deleted   string

	subject      *models.Subject
	qual         *models.Qualification
	parentID     string
	lastName     string
	removedChild string
}

func (m *catalogServiceMock) List(ctx context.Context) ([]models.LearningSystem, error) {
	return m.systems, m.err
}

func (m *catalogServiceMock) Get(ctx context.Context, id string) (*models.LearningSystem, error) {
	return m.system, m.err
}

func (m *catalogServiceMock) Create(ctx context.Context, req models.CreateLearningSystemRequest) (*models.LearningSystem, error) {
	m.createReq = req
	return m.system, m.err
}

func (m *catalogServiceMock) Update(ctx context.Context, id string, req models.UpdateLearningSystemRequest) (*models.LearningSystem, error) {
	return m.system, m.err
}

func (m *catalogServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return m.err
}

type subjectServiceMock struct{ *catalogServiceMock }

func (m subjectServiceMock) List(ctx context.Context, systemID string) ([]models.Subject, error) {
	m.parentID = systemID
	return []models.Subject{*m.subject}, m.err
}

func (m subjectServiceMock) Add(ctx context.Context, systemID string, req models.NameRequest) (*models.Subject, error) {
	m.parentID = systemID
	m.lastName = req.Name
	return m.subject, m.err
}

func (m subjectServiceMock) Update(ctx context.Context, id string, req models.NameRequest) (*models.Subject, error) {
	m.lastName = req.Name
	return m.subject, m.err
}

func (m subjectServiceMock) Remove(ctx context.Context, id string) error {
	m.removedChild = id
	return m.err
}

type qualificationServiceMock struct{ *catalogServiceMock }

func (m qualificationServiceMock) List(ctx context.Context, subjectID string) ([]models.Qualification, error) {
	m.parentID = subjectID
	return []models.Qualification{*m.qual}, m.err
}

func (m qualificationServiceMock) Add(ctx context.Context, subjectID string, req models.NameRequest) (*models.Qualification, error) {
	m.parentID = subjectID
	m.lastName = req.Name
	return m.qual, m.err
}

func (m qualificationServiceMock) Update(ctx context.Context, id string, req models.NameRequest) (*models.Qualification, error) {
	m.lastName = req.Name
	return m.qual, m.err
}

func (m qualificationServiceMock) Remove(ctx context.Context, id string) error {
	m.removedChild = id
	return m.err
}

func catalogRouter(mock *catalogServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewCatalogHandler(mock, subjectServiceMock{mock}, qualificationServiceMock{mock})
	r := gin.New()
	r.GET("/learning-systems", handler.ListSystems)
	r.POST("/learning-systems", handler.CreateSystem)
	r.GET("/learning-systems/:id", handler.GetSystem)
	r.PUT("/learning-systems/:id", handler.UpdateSystem)
	r.DELETE("/learning-systems/:id", handler.DeleteSystem)
	r.GET("/learning-systems/:id/subjects", handler.ListSubjects)
	r.POST("/learning-systems/:id/subjects", handler.AddSubject)
	r.PUT("/subjects/:id", handler.UpdateSubject)
	r.DELETE("/subjects/:id", handler.RemoveSubject)
	r.GET("/subjects/:id/qualifications", handler.ListQualifications)
	r.POST("/subjects/:id/qualifications", handler.AddQualification)
	r.PUT("/qualifications/:id", handler.UpdateQualification)
	r.DELETE("/qualifications/:id", handler.RemoveQualification)
	return r
}

func serveJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCatalogHandlerSystems(t *testing.T) {
	mock := &catalogServiceMock{
		systems: []models.LearningSystem{{ID: "ls-1", Name: "IGCSE"}},
		system:  &models.LearningSystem{ID: "ls-1", Name: "IGCSE"},
	}
	r := catalogRouter(mock)

	w := serveJSON(r, http.MethodGet, "/learning-systems", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "IGCSE")

	w = serveJSON(r, http.MethodPost, "/learning-systems", `{"name":"IGCSE","subjects":[{"name":"Maths","qualifications":[{"name":"Extended"}]}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, mock.createReq.Subjects, 1)
	assert.Equal(t, "Extended", mock.createReq.Subjects[0].Qualifications[0].Name)

	w = serveJSON(r, http.MethodDelete, "/learning-systems/ls-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "ls-1", mock.deleted)
}

func TestCatalogHandlerCreateDuplicate(t *testing.T) {
	r := catalogRouter(&catalogServiceMock{err: appErrors.ErrLearningSystemDuplicateName})

	w := serveJSON(r, http.MethodPost, "/learning-systems", `{"name":"IGCSE"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "LearningSystem.DuplicateName")
}

func TestCatalogHandlerInvalidJSON(t *testing.T) {
	r := catalogRouter(&catalogServiceMock{})

	for _, path := range []string{"/learning-systems", "/learning-systems/ls-1/subjects", "/subjects/s-1/qualifications"} {
		w := serveJSON(r, http.MethodPost, path, `{"name":`)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestCatalogHandlerSubjectsAndQualifications(t *testing.T) {
	mock := &catalogServiceMock{
		subject: &models.Subject{ID: "s-1", LearningSystemID: "ls-1", Name: "Maths"},
		qual:    &models.Qualification{ID: "q-1", SubjectID: "s-1", Name: "Core"},
	}
	r := catalogRouter(mock)

	w := serveJSON(r, http.MethodPost, "/learning-systems/ls-1/subjects", `{"name":"Maths"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ls-1", mock.parentID)
	assert.Equal(t, "Maths", mock.lastName)

	w = serveJSON(r, http.MethodGet, "/subjects/s-1/qualifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", mock.parentID)
	assert.Contains(t, w.Body.String(), "Core")

	w = serveJSON(r, http.MethodPut, "/qualifications/q-1", `{"name":"Extended"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Extended", mock.lastName)

	w = serveJSON(r, http.MethodDelete, "/subjects/s-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s-1", mock.removedChild)
}

func TestCatalogHandlerRemoveQualificationInUse(t *testing.T) {
	r := catalogRouter(&catalogServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "qualification is referenced by bookings")})

	w := serveJSON(r, http.MethodDelete, "/qualifications/q-1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
