package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain/expression"
)

// EvaluateExpression godoc
// @Summary      Evaluar una expresión de cantidad
// @Description  Previsualiza el resultado de lo que tipea el operario ("3x60+12") sin tocar el stock.
// @Tags         expressions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EvaluateExpressionRequest  true  "Expresión"
// @Success      200   {object}  dto.EvaluateExpressionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/expressions/evaluate [post]
func EvaluateExpression(c *fiber.Ctx) error {
	var in dto.EvaluateExpressionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	n, err := expression.Evaluate(in.Expression)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.EvaluateExpressionResponse{Expression: in.Expression, Result: n})
}
