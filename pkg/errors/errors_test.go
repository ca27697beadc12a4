package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMapsToStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrTutorNotFound.Status)
	assert.Equal(t, http.StatusBadRequest, ErrTutorNoQualifications.Status)
	assert.Equal(t, http.StatusConflict, ErrBookingOverlapping.Status)
	assert.Equal(t, http.StatusUnauthorized, ErrUnauthorized.Status)
	assert.Equal(t, http.StatusForbidden, ErrForbidden.Status)
	assert.Equal(t, http.StatusInternalServerError, StatusFor(Kind("unknown")))
}

func TestEveryCatalogueErrorAgreesWithItsKind(t *testing.T) {
	for _, e := range []*Error{ErrNotFound, ErrValidation, ErrConflict, ErrUnauthorized, ErrForbidden, ErrInternal, ErrTooManyCalls, ErrInvalidTimeZone, ErrBookingPastStartTime} {
		assert.Equal(t, StatusFor(e.Kind), e.Status, e.Code)
	}
	assert.Equal(t, KindRateLimited, ErrTooManyCalls.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ErrTooManyCalls.Status)
}

func TestClonedErrorMatchesTemplate(t *testing.T) {
	err := Clonef(ErrStudentNotFound, "a student with the ID '%s' was not found", "abc")
	wrapped := fmt.Errorf("create booking: %w", err)

	assert.True(t, errors.Is(wrapped, ErrStudentNotFound))
	assert.False(t, errors.Is(wrapped, ErrTutorNotFound))
	assert.Equal(t, "a student with the ID 'abc' was not found", err.Message)
	assert.Equal(t, "student not found", ErrStudentNotFound.Message)
}

func TestFromErrorNormalisesUnknownErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.EqualError(t, appErr.Unwrap(), "boom")

	assert.Nil(t, FromError(nil))
}
