package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/rollup"
)

var statusByError = []struct {
	err    error
	status int
}{
	{port.ErrNotFound, http.StatusNotFound},
	{entity.ErrActorNotPermitted, http.StatusForbidden},
	{entity.ErrInvalidTransition, http.StatusConflict},
	{entity.ErrRecordTerminal, http.StatusConflict},
	{entity.ErrOutOfOrderEntry, http.StatusConflict},
	{port.ErrConflict, http.StatusConflict},
	{port.ErrAlreadyExists, http.StatusConflict},
	{entity.ErrMissingApprovers, http.StatusUnprocessableEntity},
	{entity.ErrMissingComment, http.StatusUnprocessableEntity},
	{entity.ErrUnknownRole, http.StatusUnprocessableEntity},
	{entity.ErrUnknownRecordType, http.StatusUnprocessableEntity},
	{entity.ErrInvalidRecord, http.StatusUnprocessableEntity},
	{entity.ErrInvalidActor, http.StatusUnprocessableEntity},
	{rollup.ErrUnknownGroupBy, http.StatusUnprocessableEntity},
	{service.ErrValidation, http.StatusUnprocessableEntity},
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the error body. Internal failures are logged and not echoed.
func (h *Handlers) respondError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{Success: false, Error: msg, Code: "internal"})
		return
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
		Code:    service.Reason(err),
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
		Code:    "bad_request",
	})
}
