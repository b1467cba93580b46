package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/grading"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/registry"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/PatternLab/backend/internal/store"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrExerciseNotFound),
		errors.Is(err, grading.ErrSessionNotFound),
		errors.Is(err, grading.ErrRunNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, registry.ErrUnknownFramework),
		errors.Is(err, grading.ErrSubmissionRejected):
		return http.StatusBadRequest
	case errors.Is(err, grading.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests),
		errors.Is(err, grading.ErrCoordinatorClosed),
		errors.Is(err, sandbox.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
