package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/sector"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/excel"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-sectores/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-sectores/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(entity.Product{ID: "P", CompanyID: testCompanyID, Name: "Tornillo", UnitMeasure: "UND"})
	store.PutProduct(entity.Product{ID: "Q", CompanyID: testCompanyID, Name: "Tuerca", UnitMeasure: "UND"})
	for _, s := range []entity.Sector{
		{ID: "A", CompanyID: testCompanyID, Name: "Depósito A", Active: true},
		{ID: "B", CompanyID: testCompanyID, Name: "Depósito B", Active: true},
	} {
		s := s
		require.NoError(t, store.Sectors().Create(context.Background(), &s))
	}

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		TransferUC: stock.NewTransferUseCase(store, store.Products(), store.Sectors(), nil, nil),
		QueryUC:    stock.NewQueryUseCase(store.Stock(), store.Movements(), store.Products(), store.Sectors()),
		CountUC: count.NewCountUseCase(count.Deps{
			TxRunner:       store,
			SessionRepo:    store.CountSessions(),
			AdjustmentRepo: store.Adjustments(),
			ProductRepo:    store.Products(),
			SectorRepo:     store.Sectors(),
			Exporter:       excel.NewComparisonExporter(),
		}),
		SectorUC:  sector.NewUseCase(store.Sectors()),
		JWTSecret: testJWTSecret,
		JWTIssuer: testIssuer,
	})
	return &apiFixture{t: t, app: app, store: store}
}

// do envía la petición con el token del usuario y devuelve el estado y el cuerpo crudo.
func (f *apiFixture) do(method, path, userID, role string, body any) (int, []byte) {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(f.t, userID, role))
	resp, err := f.app.Test(req, -1)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return resp.StatusCode, out
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m), string(raw))
	return m
}

const (
	sup = "sup-1"
	op1 = "op-1"
	op2 = "op-2"
)

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_TrasladoConExpresionYStockInsuficiente(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do(http.MethodPost, "/api/stock/receipts", sup, pkgjwt.RoleSupervisor,
		map[string]any{"product_id": "P", "sector_id": "A", "quantity_expr": "50"})
	require.Equal(t, http.StatusCreated, status)

	status, raw := api.do(http.MethodPost, "/api/stock/transfers", op1, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "from_sector_id": "A", "to_sector_id": "B", "quantity_expr": "4x5"})
	require.Equal(t, http.StatusOK, status, string(raw))
	body := decode(t, raw)
	assert.EqualValues(t, 20, body["quantity"])
	assert.EqualValues(t, 30, body["new_origin_qty"])
	assert.EqualValues(t, 20, body["new_dest_qty"])

	status, raw = api.do(http.MethodPost, "/api/stock/transfers", op1, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "from_sector_id": "A", "to_sector_id": "B", "quantity_expr": "40"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	body = decode(t, raw)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details := body["details"].(map[string]any)
	assert.EqualValues(t, 40, details["requested"])
	assert.EqualValues(t, 30, details["available"])

	status, raw = api.do(http.MethodGet, "/api/stock/consolidated", op1, pkgjwt.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 50, rows[0]["total_quantity"])
	assert.EqualValues(t, 2, rows[0]["sector_count"])
}

func TestAPI_MismoSectorYSectorInexistente(t *testing.T) {
	api := newAPI(t)

	status, raw := api.do(http.MethodPost, "/api/stock/transfers", op1, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "from_sector_id": "A", "to_sector_id": "A", "quantity_expr": "1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SAME_SECTOR", decode(t, raw)["code"])

	status, _ = api.do(http.MethodPost, "/api/stock/transfers", op1, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "from_sector_id": "A", "to_sector_id": "NOPE", "quantity_expr": "1"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_IngresoSoloParaGestion(t *testing.T) {
	api := newAPI(t)
	status, _ := api.do(http.MethodPost, "/api/stock/receipts", op1, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "sector_id": "A", "quantity_expr": "5"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAPI_EvaluarExpresion(t *testing.T) {
	api := newAPI(t)

	status, raw := api.do(http.MethodPost, "/api/expressions/evaluate", op1, pkgjwt.RoleOperator,
		map[string]any{"expression": "3x60"})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 180, decode(t, raw)["result"])

	status, raw = api.do(http.MethodPost, "/api/expressions/evaluate", op1, pkgjwt.RoleOperator,
		map[string]any{"expression": "-5"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", decode(t, raw)["code"])

	status, raw = api.do(http.MethodPost, "/api/expressions/evaluate", op1, pkgjwt.RoleOperator,
		map[string]any{"expression": "3x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_EXPRESSION", decode(t, raw)["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Conteo doble
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_FlujoCompletoDeConteo(t *testing.T) {
	api := newAPI(t)
	for _, in := range []map[string]any{
		{"product_id": "P", "sector_id": "A", "quantity_expr": "11"},
		{"product_id": "Q", "sector_id": "A", "quantity_expr": "5"},
	} {
		status, raw := api.do(http.MethodPost, "/api/stock/receipts", sup, pkgjwt.RoleSupervisor, in)
		require.Equal(t, http.StatusCreated, status, string(raw))
	}

	status, raw := api.do(http.MethodPost, "/api/count-sessions", sup, pkgjwt.RoleSupervisor,
		map[string]any{"sector_id": "A", "user1_id": op1, "user2_id": op2})
	require.Equal(t, http.StatusCreated, status, string(raw))
	session := decode(t, raw)
	id := session["id"].(string)
	assert.EqualValues(t, 2, session["total_products"])

	status, _ = api.do(http.MethodPost, "/api/count-sessions", sup, pkgjwt.RoleSupervisor,
		map[string]any{"sector_id": "A", "user1_id": op1, "user2_id": op2})
	assert.Equal(t, http.StatusConflict, status, "una sola sesión abierta por sector")

	status, raw = api.do(http.MethodPost, "/api/count-sessions/"+id+"/subcounts", op1, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "user_slot": 1, "quantity_expr": "2x5"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	status, raw = api.do(http.MethodPost, "/api/count-sessions/"+id+"/subcounts", op2, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "user_slot": 2, "quantity_expr": "12"})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, _ = api.do(http.MethodPost, "/api/count-sessions/"+id+"/subcounts", op2, pkgjwt.RoleOperator,
		map[string]any{"product_id": "P", "user_slot": 1, "quantity_expr": "1"})
	assert.Equal(t, http.StatusForbidden, status, "el slot 1 pertenece a otro operario")

	status, raw = api.do(http.MethodGet, "/api/count-sessions/"+id+"/comparison?filter=CON_DIFERENCIA", sup, pkgjwt.RoleSupervisor, nil)
	require.Equal(t, http.StatusOK, status)
	cmp := decode(t, raw)
	rows := cmp["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "P", row["product_id"])
	assert.EqualValues(t, 12, row["resolved_quantity"])
	assert.EqualValues(t, 2, cmp["stats"].(map[string]any)["total"])

	status, raw = api.do(http.MethodGet, "/api/count-sessions/"+id+"/comparison/export", sup, pkgjwt.RoleSupervisor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx es un zip")

	status, _ = api.do(http.MethodPost, "/api/count-sessions/"+id+"/finalize", op1, pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = api.do(http.MethodPost, "/api/count-sessions/"+id+"/finalize", sup, pkgjwt.RoleSupervisor, map[string]any{})
	require.Equal(t, http.StatusOK, status, string(raw))
	record := decode(t, raw)
	assert.Equal(t, "WITH_DIFFERENCES", record["outcome"])
	assert.EqualValues(t, 1, record["net_delta"])
	assert.Len(t, record["lines"], 2)

	p, err := api.store.Stock().Get(context.Background(), testCompanyID, "P", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.Quantity)

	status, raw = api.do(http.MethodPost, "/api/count-sessions/"+id+"/finalize", sup, pkgjwt.RoleSupervisor, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SESSION_STATE", decode(t, raw)["code"])

	status, _ = api.do(http.MethodGet, "/api/count-sessions/"+id+"/registry", op1, pkgjwt.RoleOperator, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_SesionDeOtroSectorNoExiste(t *testing.T) {
	api := newAPI(t)
	status, raw := api.do(http.MethodPost, "/api/count-sessions", sup, pkgjwt.RoleSupervisor,
		map[string]any{"sector_id": "NOPE", "user1_id": op1, "user2_id": op2})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode(t, raw)["code"])

	status, _ = api.do(http.MethodGet, "/api/count-sessions/nada", sup, pkgjwt.RoleSupervisor, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sectores
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_SectoresCrearYDesactivar(t *testing.T) {
	api := newAPI(t)

	status, raw := api.do(http.MethodPost, "/api/sectors", sup, pkgjwt.RoleSupervisor, map[string]any{"name": "  Góndola 3 "})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode(t, raw)
	assert.Equal(t, "Góndola 3", created["name"])
	id := created["id"].(string)

	status, raw = api.do(http.MethodPatch, "/api/sectors/"+id+"/deactivate", sup, pkgjwt.RoleSupervisor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, decode(t, raw)["active"])

	status, _ = api.do(http.MethodPost, "/api/stock/receipts", sup, pkgjwt.RoleSupervisor,
		map[string]any{"product_id": "P", "sector_id": id, "quantity_expr": "1"})
	assert.Equal(t, http.StatusBadRequest, status, "sector inactivo no recibe stock")
}
