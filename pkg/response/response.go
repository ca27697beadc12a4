package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// exposeInternal controls whether unexpected error details reach clients.
var exposeInternal bool

// ExposeInternalErrors toggles detailed descriptions for unexpected errors. Only development should enable it.
func ExposeInternalErrors(enabled bool) {
	exposeInternal = enabled
}

// ErrorItem is a single serialised error.
type ErrorItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Errors     []ErrorItem            `json:"errors,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	item := ErrorItem{Code: appErr.Code, Description: appErr.Message}
	if appErr.Kind == appErrors.KindUnexpected {
		item.Description = appErrors.ErrInternal.Message
		if exposeInternal && appErr.Err != nil {
			item.Description = appErr.Error()
		}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Errors: []ErrorItem{item}})
}

// Attachment streams a rendered file.
func Attachment(c *gin.Context, filename, contentType string, payload []byte) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, payload)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
