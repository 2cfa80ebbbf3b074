package web

import (
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// ValidationProblem is a problem document that lists every rejected field.
type ValidationProblem struct {
	*problems.Problem

	Errors []services.FieldError `json:"errors"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func invalidFields(c fiber.Ctx, err error) error {
	problem := ValidationProblem{
		Problem: problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail("one or more fields are invalid"),
		Errors: services.FieldErrors(err),
	}

	if problem.Errors == nil {
		problem.Errors = []services.FieldError{}
	}

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("workflow_not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func unauthorized(c fiber.Ctx) error {
	problem := problems.NewStatusProblem(fiber.StatusUnauthorized).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail("missing " + OwnerHeader + " header")

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func internalError(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithDetail(detail)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service errors to problem responses. Store failure
// details stay in the logs.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsUnauthorized(err):
		return unauthorized(c)
	case services.IsValidationError(err):
		return invalidFields(c, err)
	case services.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")
	case services.IsStorageFailure(err):
		return internalError(c, "the workflow store could not complete the request")
	default:
		return internalError(c, "unexpected error")
	}
}
