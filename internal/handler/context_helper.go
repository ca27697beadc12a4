package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func invalidPayload(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation, message)
}

// bookingFilterFromQuery reads page, page_size, from and to. Bounds are RFC 3339 instants.
func bookingFilterFromQuery(c *gin.Context) (models.BookingFilter, error) {
	var filter models.BookingFilter
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "page_size must be a positive integer")
		}
		filter.PageSize = size
	}
	for _, bound := range []struct {
		name   string
		target **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := strings.TrimSpace(c.Query(bound.name))
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clonef(appErrors.ErrValidation, "%s must be an RFC 3339 timestamp", bound.name)
		}
		utc := ts.UTC()
		*bound.target = &utc
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	return filter, nil
}
