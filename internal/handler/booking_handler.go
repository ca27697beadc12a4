package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/export"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

// IdempotencyHeader carries a client supplied key that makes booking creation replay-safe.
const IdempotencyHeader = "Idempotency-Key"

type bookingService interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest, idempotencyKey string) (*dto.BookingResponse, error)
	ListTutorBookings(ctx context.Context, tutorID string, filter models.BookingFilter) ([]dto.BookingListItem, *models.Pagination, error)
	ListStudentBookings(ctx context.Context, studentID string, filter models.BookingFilter) ([]dto.BookingListItem, *models.Pagination, error)
	ExportTutorBookings(ctx context.Context, tutorID, format string, filter models.BookingFilter) (*export.Document, error)
}

// BookingHandler exposes booking endpoints.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler creates a new handler.
func NewBookingHandler(svc bookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// Create godoc
// @Summary Book a one-hour session
// @Description start_time is wall-clock time in the student's zone, formatted yyyy-MM-ddTHH:mm
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replay key"
// @Param payload body models.CreateBookingRequest true "Booking"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid booking payload"))
		return
	}

	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && claims.PersonID != req.StudentID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only book for themselves"))
		return
	}

	res, err := h.service.CreateBooking(c.Request.Context(), req, strings.TrimSpace(c.GetHeader(IdempotencyHeader)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListTutorBookings godoc
// @Summary Bookings of a tutor, in the tutor's zone
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tutor ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param from query string false "RFC 3339 lower bound"
// @Param to query string false "RFC 3339 upper bound"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/bookings [get]
func (h *BookingHandler) ListTutorBookings(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.ListTutorBookings(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListStudentBookings godoc
// @Summary Bookings of a student, in the student's zone
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param from query string false "RFC 3339 lower bound"
// @Param to query string false "RFC 3339 upper bound"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/bookings [get]
func (h *BookingHandler) ListStudentBookings(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.ListStudentBookings(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ExportTutorBookings godoc
// @Summary Export a tutor's bookings
// @Tags Bookings
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Tutor ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param from query string false "RFC 3339 lower bound"
// @Param to query string false "RFC 3339 upper bound"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/bookings/export [get]
func (h *BookingHandler) ExportTutorBookings(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	doc, err := h.service.ExportTutorBookings(c.Request.Context(), c.Param("id"), format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Payload)
}
