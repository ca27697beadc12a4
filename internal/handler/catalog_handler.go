package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type learningSystemService interface {
	List(ctx context.Context) ([]models.LearningSystem, error)
	Get(ctx context.Context, id string) (*models.LearningSystem, error)
	Create(ctx context.Context, req models.CreateLearningSystemRequest) (*models.LearningSystem, error)
	Update(ctx context.Context, id string, req models.UpdateLearningSystemRequest) (*models.LearningSystem, error)
	Delete(ctx context.Context, id string) error
}

type subjectService interface {
	List(ctx context.Context, systemID string) ([]models.Subject, error)
	Add(ctx context.Context, systemID string, req models.NameRequest) (*models.Subject, error)
	Update(ctx context.Context, id string, req models.NameRequest) (*models.Subject, error)
	Remove(ctx context.Context, id string) error
}

type qualificationService interface {
	List(ctx context.Context, subjectID string) ([]models.Qualification, error)
	Add(ctx context.Context, subjectID string, req models.NameRequest) (*models.Qualification, error)
	Update(ctx context.Context, id string, req models.NameRequest) (*models.Qualification, error)
	Remove(ctx context.Context, id string) error
}

// CatalogHandler serves learning systems, subjects and qualifications.
type CatalogHandler struct {
	systems        learningSystemService
	subjects       subjectService
	qualifications qualificationService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(systems learningSystemService, subjects subjectService, qualifications qualificationService) *CatalogHandler {
	return &CatalogHandler{systems: systems, subjects: subjects, qualifications: qualifications}
}

// ListSystems godoc
// @Summary List learning systems
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /learning-systems [get]
func (h *CatalogHandler) ListSystems(c *gin.Context) {
	systems, err := h.systems.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, systems, nil)
}

// GetSystem godoc
// @Summary Get a learning system with its subjects and qualifications
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Learning system ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-systems/{id} [get]
func (h *CatalogHandler) GetSystem(c *gin.Context) {
	system, err := h.systems.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, system, nil)
}

// CreateSystem godoc
// @Summary Create a learning system tree
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateLearningSystemRequest true "Learning system"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /learning-systems [post]
func (h *CatalogHandler) CreateSystem(c *gin.Context) {
	var req models.CreateLearningSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid learning system payload"))
		return
	}
	system, err := h.systems.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, system)
}

// UpdateSystem godoc
// @Summary Rename a learning system and reconcile its tree
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Learning system ID"
// @Param payload body models.UpdateLearningSystemRequest true "Learning system"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-systems/{id} [put]
func (h *CatalogHandler) UpdateSystem(c *gin.Context) {
	var req models.UpdateLearningSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid learning system payload"))
		return
	}
	system, err := h.systems.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, system, nil)
}

// DeleteSystem godoc
// @Summary Delete a learning system
// @Tags Catalog
// @Security BearerAuth
// @Param id path string true "Learning system ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /learning-systems/{id} [delete]
func (h *CatalogHandler) DeleteSystem(c *gin.Context) {
	if err := h.systems.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List the subjects of a learning system
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Learning system ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-systems/{id}/subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjects.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// AddSubject godoc
// @Summary Add a subject to a learning system
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Learning system ID"
// @Param payload body models.NameRequest true "Subject"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /learning-systems/{id}/subjects [post]
func (h *CatalogHandler) AddSubject(c *gin.Context) {
	var req models.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid subject payload"))
		return
	}
	subject, err := h.subjects.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// UpdateSubject godoc
// @Summary Rename a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.NameRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *CatalogHandler) UpdateSubject(c *gin.Context) {
	var req models.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid subject payload"))
		return
	}
	subject, err := h.subjects.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// RemoveSubject godoc
// @Summary Remove a subject
// @Tags Catalog
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [delete]
func (h *CatalogHandler) RemoveSubject(c *gin.Context) {
	if err := h.subjects.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListQualifications godoc
// @Summary List the qualifications of a subject
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/qualifications [get]
func (h *CatalogHandler) ListQualifications(c *gin.Context) {
	quals, err := h.qualifications.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quals, nil)
}

// AddQualification godoc
// @Summary Add a qualification to a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.NameRequest true "Qualification"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects/{id}/qualifications [post]
func (h *CatalogHandler) AddQualification(c *gin.Context) {
	var req models.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid qualification payload"))
		return
	}
	q, err := h.qualifications.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

// UpdateQualification godoc
// @Summary Rename a qualification
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Qualification ID"
// @Param payload body models.NameRequest true "Qualification"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qualifications/{id} [put]
func (h *CatalogHandler) UpdateQualification(c *gin.Context) {
	var req models.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid qualification payload"))
		return
	}
	q, err := h.qualifications.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, q, nil)
}

// RemoveQualification godoc
// @Summary Remove a qualification
// @Tags Catalog
// @Security BearerAuth
// @Param id path string true "Qualification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /qualifications/{id} [delete]
func (h *CatalogHandler) RemoveQualification(c *gin.Context) {
	if err := h.qualifications.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
