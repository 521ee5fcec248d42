package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/apibase/backend/internal/domain/shared"
	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/apibase/backend/internal/interfaces/http/middleware"
)

// BaseHandler carries the response helpers concrete handlers embed. All
// responses go out in the dto.Response envelope, with the request ID
// attached when the middleware provided one.
type BaseHandler struct{}

// Success writes data in a 200 envelope.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta writes data in a 200 envelope with pagination meta.
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created writes data in a 201 envelope.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent writes an empty 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error envelope with an explicit status.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := middleware.RequestIDFromContext(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode writes an error envelope, deriving the status from the
// error code tables.
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest reports a malformed request.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// NotFound reports a missing resource.
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeNotFound, message)
}

// Unauthorized reports missing or invalid authentication.
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeUnauthorized, message)
}

// Forbidden reports insufficient permissions.
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeForbidden, message)
}

// Conflict reports a resource conflict.
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeConflict, message)
}

// InternalError reports a server-side failure.
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeInternal, message)
}

// TooManyRequests reports an exceeded rate limit.
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeRateLimited, message)
}

// ValidationError writes a 400 with per-field details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := middleware.RequestIDFromContext(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// HandleError converts an error into an HTTP response. Domain errors,
// wrapped or not, map to their standardized code and status. Anything
// else becomes an opaque 500 so internal details never reach clients.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}

// HandleBindingError responds to a failed request binding. Validator
// errors carry per-field details; anything else is reported as
// malformed JSON.
func (h *BaseHandler) HandleBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
}
