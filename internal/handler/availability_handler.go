package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type availabilityWriter interface {
	SetTutorAvailability(ctx context.Context, tutorID string, req models.SetAvailabilityRequest) (*dto.TutorAvailabilityResponse, error)
}

type availabilityQuery interface {
	FindTutorAvailability(ctx context.Context, req models.FindTutorAvailabilityRequest) (*dto.TutorDateAvailabilityResponse, error)
	FindAvailableTutors(ctx context.Context, req models.FindAvailableTutorsRequest) (*dto.AvailableTutorsResponse, error)
}

// AvailabilityHandler manages weekly availability and bookable-time queries.
type AvailabilityHandler struct {
	writer availabilityWriter
	query  availabilityQuery
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(writer availabilityWriter, query availabilityQuery) *AvailabilityHandler {
	return &AvailabilityHandler{writer: writer, query: query}
}

// SetTutorAvailability godoc
// @Summary Replace a tutor's availability on the listed weekdays
// @Description Slots are wall-clock times in the tutor's zone; days not listed keep their slots
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tutor ID"
// @Param payload body models.SetAvailabilityRequest true "Availability"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/availability [put]
func (h *AvailabilityHandler) SetTutorAvailability(c *gin.Context) {
	var req models.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability payload"))
		return
	}
	res, err := h.writer.SetTutorAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// FindTutorAvailability godoc
// @Summary Bookable hours of a tutor on a date
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tutor ID"
// @Param year query int true "Year"
// @Param month query int true "Month"
// @Param day query int true "Day"
// @Param time_zone query string true "Viewer IANA zone"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/availability [get]
func (h *AvailabilityHandler) FindTutorAvailability(c *gin.Context) {
	var req models.FindTutorAvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability query"))
		return
	}
	req.TutorID = c.Param("id")
	res, err := h.query.FindTutorAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// FindAvailableTutors godoc
// @Summary Tutors free for a one-hour session
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param id path string true "Qualification ID"
// @Param start query string true "Local start, yyyy-MM-ddTHH:mm"
// @Param time_zone query string false "Zone of start, defaults to UTC"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qualifications/{id}/available-tutors [get]
func (h *AvailabilityHandler) FindAvailableTutors(c *gin.Context) {
	var req models.FindAvailableTutorsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid tutor search"))
		return
	}
	req.QualificationID = c.Param("id")
	res, err := h.query.FindAvailableTutors(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
