package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every non-2xx answer of the HTTP api.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

const internalErrorMessage = "internal server error"

// handleError turns handler errors into an ErrorResponse. Errors that are not *fiber.Error are reported as 500
// without their text, which is only logged.
func handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: ErrorBody{Message: internalErrorMessage}})
	}
	if fe.Code >= fiber.StatusInternalServerError {
		log.Warn().Int("status", fe.Code).Str("path", c.Path()).Msg(fe.Message)
	}
	return c.Status(fe.Code).JSON(ErrorResponse{Error: ErrorBody{Message: fe.Message}})
}
