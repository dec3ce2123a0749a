package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/dto"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

// CountHandler maneja las sesiones de conteo doble por sector (protegido).
type CountHandler struct {
	uc *count.CountUseCase
}

// NewCountHandler construye el handler.
func NewCountHandler(uc *count.CountUseCase) *CountHandler {
	return &CountHandler{uc: uc}
}

// Start godoc
// @Summary      Iniciar sesión de conteo
// @Description  Toma un snapshot del stock del sector y asigna los dos operarios.
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StartCountSessionRequest  true  "Sector y operarios"
// @Success      201   {object}  dto.CountSessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/count-sessions [post]
func (h *CountHandler) Start(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.StartCountSessionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.StartSession(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar sesiones de conteo
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.CountSessionListResponse
// @Router       /api/count-sessions [get]
func (h *CountHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := pageParams(c)
	out, err := h.uc.ListSessions(c.UserContext(), companyID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener sesión con sus detalles
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountSessionDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id} [get]
func (h *CountHandler) Get(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.GetSession(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SubmitSubCount godoc
// @Summary      Registrar un subconteo
// @Description  Solo el operario asignado al slot puede registrar; la cantidad admite expresiones.
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la sesión"
// @Param        body  body  dto.SubmitSubCountRequest  true  "Subconteo"
// @Success      201   {object}  dto.ProductCountDetailResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/subcounts [post]
func (h *CountHandler) SubmitSubCount(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SubmitSubCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SubmitSubCount(c.UserContext(), companyID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// DeleteSubCount godoc
// @Summary      Eliminar un subconteo
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id           path  string  true  "ID de la sesión"
// @Param        subcount_id  path  string  true  "ID del subconteo"
// @Success      200  {object}  dto.ProductCountDetailResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/subcounts/{subcount_id} [delete]
func (h *CountHandler) DeleteSubCount(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.DeleteSubCount(c.UserContext(), companyID, GetUserID(c), c.Params("id"), c.Params("subcount_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetAction godoc
// @Summary      Acción para un producto no contado
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id          path  string                true  "ID de la sesión"
// @Param        product_id  path  string                true  "ID del producto"
// @Param        body        body  dto.SetActionRequest  true  "OMIT o ZERO"
// @Success      200  {object}  dto.ProductCountDetailResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/products/{product_id}/action [put]
func (h *CountHandler) SetAction(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SetActionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetAction(c.UserContext(), companyID, c.Params("id"), c.Params("product_id"), in.Action)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetResolvedQuantity godoc
// @Summary      Fijar la cantidad final de un producto contado
// @Description  resolved_quantity null vuelve a la cantidad provisional.
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id          path  string                          true  "ID de la sesión"
// @Param        product_id  path  string                          true  "ID del producto"
// @Param        body        body  dto.SetResolvedQuantityRequest  true  "Cantidad"
// @Success      200  {object}  dto.ProductCountDetailResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/products/{product_id}/resolved [put]
func (h *CountHandler) SetResolvedQuantity(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SetResolvedQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetResolvedQuantity(c.UserContext(), companyID, c.Params("id"), c.Params("product_id"), in.ResolvedQuantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Close godoc
// @Summary      Cerrar la recepción de subconteos
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountSessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/close [post]
func (h *CountHandler) Close(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Close(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Comparison godoc
// @Summary      Comparación de conteos
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la sesión"
// @Param        filter  query  string  false  "TODOS | CON_DIFERENCIA | SIN_DIFERENCIA"
// @Success      200  {object}  dto.ComparisonResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/comparison [get]
func (h *CountHandler) Comparison(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Comparison(c.UserContext(), companyID, c.Params("id"), c.Query("filter"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ExportComparison godoc
// @Summary      Exportar la comparación a Excel
// @Tags         count-sessions
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id      path   string  true   "ID de la sesión"
// @Param        filter  query  string  false  "TODOS | CON_DIFERENCIA | SIN_DIFERENCIA"
// @Success      200  {file}  binary
// @Router       /api/count-sessions/{id}/comparison/export [get]
func (h *CountHandler) ExportComparison(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	out, err := h.uc.ExportComparison(c.UserContext(), companyID, id, c.Query("filter"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, mimeXLSX)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="comparacion_%s.xlsx"`, id))
	return c.Send(out)
}

// Finalize godoc
// @Summary      Aplicar el conteo al ledger
// @Description  Aplica acciones y cantidades del supervisor, escribe el stock final y archiva la sesión (todo o nada).
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "ID de la sesión"
// @Param        body  body  dto.FinalizeRequest  false  "Decisiones del supervisor"
// @Success      200   {object}  dto.AdjustmentRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/finalize [post]
func (h *CountHandler) Finalize(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.FinalizeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.uc.FinalizeAndApply(c.UserContext(), companyID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Registry godoc
// @Summary      Registro generado al aplicar el conteo
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.AdjustmentRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/registry [get]
func (h *CountHandler) Registry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.GetRegistry(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RegistryPDF godoc
// @Summary      Registro generado en PDF
// @Tags         count-sessions
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/registry/pdf [get]
func (h *CountHandler) RegistryPDF(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	out, err := h.uc.RegistryPDF(c.UserContext(), companyID, id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, mimePDF)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="registro_%s.pdf"`, id))
	return c.Send(out)
}
