package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain"
)

// writeError traduce los errores de dominio a estado HTTP + dto.ErrorResponse.
// Un completado parcial responde 409 con el detalle por ítem para la reconciliación manual.
func writeError(c *fiber.Ctx, err error) error {
	var partial *domain.PartialCompletionError
	if errors.As(err, &partial) {
		return c.Status(fiber.StatusConflict).JSON(toPartialResponse(partial))
	}
	status, code := classify(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrInsufficientPayment):
		return fiber.StatusPaymentRequired, "INSUFFICIENT_PAYMENT"
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func toPartialResponse(e *domain.PartialCompletionError) dto.PartialCompletionResponse {
	conv := func(in []domain.ItemCommitResult) []dto.ItemCommitResponse {
		out := make([]dto.ItemCommitResponse, 0, len(in))
		for _, r := range in {
			item := dto.ItemCommitResponse{ItemID: r.ItemID, DrugID: r.DrugID, PlanID: r.PlanID}
			if r.Err != nil {
				item.Error = r.Err.Error()
			}
			out = append(out, item)
		}
		return out
	}
	return dto.PartialCompletionResponse{
		ErrorResponse: dto.ErrorResponse{Code: "PARTIAL_COMPLETION", Message: e.Error()},
		OrderID:       e.OrderID,
		Succeeded:     conv(e.Succeeded),
		Failed:        conv(e.Failed),
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
