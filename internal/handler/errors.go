package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/apperr"
	"github.com/makeasinger/genqueue/pkg/response"
)

// formatValidationErrors maps each failed field to the rule it broke
func formatValidationErrors(err error) map[string]string {
	return apperr.ValidationDetails(err)
}

// writeError maps a domain error onto the response envelope
func writeError(c *fiber.Ctx, err error) error {
	var e *apperr.Error
	message := err.Error()
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return response.ValidationError(c, message, apperr.DetailsOf(err))
	case apperr.KindNotFound:
		return response.NotFound(c, message)
	case apperr.KindResourceBusy:
		return response.Busy(c, message)
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return response.ServiceError(c, err.Error())
}

// ErrorHandler is the fiber error handler. It keeps unhandled errors in
// the same envelope as handler responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	errCode := response.CodeServiceError
	switch code {
	case fiber.StatusNotFound:
		errCode = response.CodeNotFound
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		errCode = response.CodeValidationError
	}

	return response.Error(c, code, errCode, message, nil)
}
