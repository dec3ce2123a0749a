package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/expression"
)

// errorMapping relaciona cada error de dominio con su estado HTTP y código.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{expression.ErrSyntax, fiber.StatusBadRequest, "INVALID_EXPRESSION"},
	{expression.ErrSemantic, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrSameSector, fiber.StatusBadRequest, "SAME_SECTOR"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrSessionState, fiber.StatusConflict, "SESSION_STATE"},
	{domain.ErrConcurrentModification, fiber.StatusConflict, "CONCURRENT_MODIFICATION"},
	{domain.ErrStockNotEmpty, fiber.StatusConflict, "STOCK_NOT_EMPTY"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrInsufficientStock, fiber.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
	{domain.ErrConservationViolated, fiber.StatusUnprocessableEntity, "CONSERVATION_VIOLATED"},
}

// writeError responde con el estado que corresponde al error de dominio; el resto es 500.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{
				Code:    m.code,
				Message: err.Error(),
				Details: errorDetails(err),
			})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func errorDetails(err error) map[string]any {
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		return map[string]any{
			"product_id": stockErr.ProductID,
			"sector_id":  stockErr.SectorID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		}
	}
	var sessionErr *domain.SessionError
	if errors.As(err, &sessionErr) {
		return map[string]any{
			"session_id": sessionErr.SessionID,
			"state":      sessionErr.State,
		}
	}
	var evalErr *expression.EvalError
	if errors.As(err, &evalErr) && evalErr.Pos >= 0 {
		return map[string]any{"position": evalErr.Pos + 1}
	}
	return nil
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "company_id requerido"})
}

func pageParams(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	return p
}
