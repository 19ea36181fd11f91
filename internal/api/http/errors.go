package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/observability"
	"github.com/spec-kit/store-management/internal/repository"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

var statusByClass = map[errorutil.Class]int{
	errorutil.ClassBadRequest:   fiber.StatusBadRequest,
	errorutil.ClassNotFound:     fiber.StatusNotFound,
	errorutil.ClassUnauthorized: fiber.StatusUnauthorized,
	errorutil.ClassForbidden:    fiber.StatusForbidden,
	errorutil.ClassInternal:     fiber.StatusInternalServerError,
}

// StatusFor returns the HTTP status for an error class.
func StatusFor(class errorutil.Class) int {
	if status, ok := statusByClass[class]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// toAppError normalizes any error returned by a handler into a taxonomy error.
func toAppError(c *fiber.Ctx, err error) *errorutil.Error {
	if appErr, ok := errorutil.Of(err); ok {
		return appErr
	}

	var fe *fiber.Error
	switch {
	case errors.Is(err, repository.ErrConstraint):
		return errorutil.Wrap(errorutil.DatabaseConstraintViolation, err)
	case errors.Is(err, repository.ErrStorage):
		return errorutil.Wrap(errorutil.DatabaseError, err)
	case errors.As(err, &fe):
		switch {
		case fe.Code == fiber.StatusNotFound:
			return errorutil.Wrap(errorutil.RouteNotFound, err, c.Method(), c.Path())
		case fe.Code < fiber.StatusInternalServerError:
			return errorutil.Wrap(errorutil.ValidationError, err, fe.Message)
		}
	}
	return errorutil.Wrap(errorutil.InternalServerError, err)
}

// writeError renders err as {timestamp, code, message}. Causes of server
// errors are logged and never returned to the caller.
func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	appErr := toAppError(c, err)
	status := StatusFor(appErr.Kind.Class)

	metrics.RecordError(c.Route().Path, c.Method(), appErr.Code())
	if status >= fiber.StatusInternalServerError {
		fields := []zap.Field{
			zap.String("code", appErr.Code()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(appErr),
		}
		if errors.Is(err, context.DeadlineExceeded) {
			fields = append(fields, zap.Bool("timed_out", true))
		}
		logger.Error("request failed", fields...)
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Timestamp: time.Now().UnixMilli(),
		Code:      appErr.Code(),
		Message:   appErr.Message,
	})
}

// ErrorHandler is the fiber.Config fallback for errors escaping the middleware
// chain, such as body limit violations raised before routing.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, metrics, err)
	}
}
