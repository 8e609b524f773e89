package handlers

import (
	"errors"

	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

// apiError carries the HTTP status and a stable code for the client.
type apiError struct {
	Status int
	Code   string
	Err    error
}

func (e *apiError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Err.Error()
}

func (e *apiError) Unwrap() error { return e.Err }

func classify(err error) *apiError {
	var api *apiError
	if errors.As(err, &api) {
		return api
	}
	switch {
	case errors.Is(err, services.ErrInsufficientFunds):
		return &apiError{Status: fiber.StatusPaymentRequired, Code: "insufficient_funds", Err: err}
	case errors.Is(err, services.ErrNotFound):
		return &apiError{Status: fiber.StatusNotFound, Code: "not_found", Err: err}
	case errors.Is(err, services.ErrAlreadyClaimed):
		return &apiError{Status: fiber.StatusBadRequest, Code: "already_claimed", Err: err}
	case errors.Is(err, services.ErrAlreadyOwned):
		return &apiError{Status: fiber.StatusBadRequest, Code: "already_owned", Err: err}
	case errors.Is(err, services.ErrNotOwned):
		return &apiError{Status: fiber.StatusBadRequest, Code: "not_owned", Err: err}
	case errors.Is(err, services.ErrValidation):
		return &apiError{Status: fiber.StatusBadRequest, Code: "validation_failed", Err: err}
	default:
		return &apiError{Status: fiber.StatusInternalServerError, Code: "internal", Err: err}
	}
}

// respondError writes err as JSON. Internal errors are logged and never echoed to the client.
func respondError(c *fiber.Ctx, log *utils.Logger, err error) error {
	api := classify(err)
	if api.Status >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(api.Status).JSON(fiber.Map{"error": "internal server error", "code": api.Code})
	}
	return c.Status(api.Status).JSON(fiber.Map{"error": api.Error(), "code": api.Code})
}

func badRequest(msg string) error {
	return &apiError{Status: fiber.StatusBadRequest, Code: "bad_request", Err: errors.New(msg)}
}

// parseBody decodes the JSON body, turning decode failures into 400s.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
