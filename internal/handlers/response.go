package handlers

import (
	"net/http"
	"strconv"

	"delivery_api/internal/validation"
	"delivery_api/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: true, Message: message})
}

// respondError writes the error envelope and attaches err to the context so
// the request logger can report server-side failures.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.StatusCode, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:      appErr.Code,
			Message:   appErr.Error(),
			Retryable: appErr.Retryable,
			Details:   appErr.Details,
		},
	})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, apperrors.NewValidationError(message))
}

// bindJSON decodes the body into req and runs its binding tags. Every failing
// field is reported in a single VALIDATION_FAILED response.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		bindFailed(c, err)
		return false
	}
	return true
}

func bindFailed(c *gin.Context, err error) {
	if appErr, ok := validation.Translate(err); ok {
		respondError(c, appErr)
		return
	}
	badRequest(c, "Invalid request format")
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func notFoundRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: "NOT_FOUND", Message: "route " + c.Request.Method + " " + c.Request.URL.Path + " not found"},
	})
}
