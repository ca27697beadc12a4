package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type personService interface {
	Register(ctx context.Context, req models.RegisterPersonRequest) (*dto.PersonResponse, error)
	GetProfile(ctx context.Context, id string) (interface{}, error)
	GetTutorProfile(ctx context.Context, id string) (*dto.TutorProfile, error)
	GetStudentProfile(ctx context.Context, id string) (*dto.StudentProfile, error)
	SetTutorQualifications(ctx context.Context, tutorID string, req models.SetQualificationsRequest) (*dto.TutorProfile, error)
	SetStudentQualifications(ctx context.Context, studentID string, req models.SetQualificationsRequest) (*dto.StudentProfile, error)
	ListTutorsByQualification(ctx context.Context, qualificationID string) ([]dto.TutorSummary, error)
}

// PersonHandler serves registration and tutor and student profiles.
type PersonHandler struct {
	service personService
}

// NewPersonHandler creates a new handler.
func NewPersonHandler(svc personService) *PersonHandler {
	return &PersonHandler{service: svc}
}

// Register godoc
// @Summary Register a tutor or student
// @Tags People
// @Accept json
// @Produce json
// @Param payload body models.RegisterPersonRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people [post]
func (h *PersonHandler) Register(c *gin.Context) {
	var req models.RegisterPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid registration payload"))
		return
	}
	person, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// Get godoc
// @Summary Get a person of either kind
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /people/{id} [get]
func (h *PersonHandler) Get(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// GetTutor godoc
// @Summary Get tutor profile
// @Description Returns the tutor with qualifications and weekly availability in the tutor's zone
// @Tags Tutors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *PersonHandler) GetTutor(c *gin.Context) {
	profile, err := h.service.GetTutorProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// GetStudent godoc
// @Summary Get student profile
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *PersonHandler) GetStudent(c *gin.Context) {
	profile, err := h.service.GetStudentProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// SetTutorQualifications godoc
// @Summary Replace the qualifications a tutor offers
// @Tags Tutors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tutor ID"
// @Param payload body models.SetQualificationsRequest true "Qualification ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/qualifications [put]
func (h *PersonHandler) SetTutorQualifications(c *gin.Context) {
	var req models.SetQualificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid qualifications payload"))
		return
	}
	profile, err := h.service.SetTutorQualifications(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// SetStudentQualifications godoc
// @Summary Replace the qualifications a student follows
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body models.SetQualificationsRequest true "Qualification ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/qualifications [put]
func (h *PersonHandler) SetStudentQualifications(c *gin.Context) {
	var req models.SetQualificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid qualifications payload"))
		return
	}
	profile, err := h.service.SetStudentQualifications(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// ListTutorsByQualification godoc
// @Summary List tutors offering a qualification
// @Tags Qualifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Qualification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qualifications/{id}/tutors [get]
func (h *PersonHandler) ListTutorsByQualification(c *gin.Context) {
	tutors, err := h.service.ListTutorsByQualification(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, nil)
}
