package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/persistence"
	"github.com/zapflow/zapflow/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case flow.IsValidationError(err):
		var validation *flow.ValidationError

		errors.As(err, &validation)

		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("flow_validation_failed").
			WithDetail(validation.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, services.ErrCannotModifyPublished),
		errors.Is(err, persistence.ErrFlowImmutable):
		return conflict(c, "published flow versions are immutable")

	case errors.Is(err, services.ErrNotPublished):
		return conflict(c, err.Error())

	case errors.Is(err, services.ErrFlowNameRequired),
		errors.Is(err, services.ErrNodesRequired),
		errors.Is(err, services.ErrFlowNil),
		errors.Is(err, services.ErrInvalidRequest):
		return badRequest(c, err.Error())

	case persistence.IsFlowNotFound(err):
		return notFound(c, "flow not found")

	case persistence.IsConversationNotFound(err):
		return notFound(c, "conversation not found")

	default:
		var serviceErr *services.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Code == "validation" {
			return badRequest(c, serviceErr.Message)
		}

		return internalError(c, err)
	}
}
