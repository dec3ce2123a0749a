package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/dto"
)

var _ count.ComparisonExporter = (*ComparisonExporter)(nil)

const (
	sheetRows    = "Comparación"
	sheetSummary = "Resumen"
)

// ComparisonExporter genera la planilla xlsx de la vista de comparación.
type ComparisonExporter struct{}

// NewComparisonExporter construye el exportador.
func NewComparisonExporter() *ComparisonExporter { return &ComparisonExporter{} }

// Export escribe una hoja con las filas (ya filtradas) y otra con las estadísticas de la sesión completa.
func (e *ComparisonExporter) Export(cmp dto.ComparisonResponse, sectorName string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetRows); err != nil {
		return nil, fmt.Errorf("excel: hoja: %w", err)
	}

	header := []any{
		"Producto", "Código", "Sistema", "Conteo 1", "Conteo 2", "Contado",
		"Acción", "Dif. sistema", "Dif. conteos", "Cantidad final", "Manual", "Con diferencia",
	}
	if err := f.SetSheetRow(sheetRows, "A1", &header); err != nil {
		return nil, fmt.Errorf("excel: encabezado: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("excel: estilo: %w", err)
	}
	if err := f.SetRowStyle(sheetRows, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("excel: estilo: %w", err)
	}

	for i, r := range cmp.Rows {
		name := r.ProductName
		if name == "" {
			name = r.ProductID
		}
		row := []any{
			name, r.CustomCode, r.StockAtSystem, r.Count1, r.Count2, yesNo(r.WasCounted),
			r.Action, r.DiffVsSystem, r.DiffBetweenCounts, r.ResolvedQuantity, yesNo(r.Overridden), yesNo(r.HasDifference),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("excel: celda: %w", err)
		}
		if err := f.SetSheetRow(sheetRows, cell, &row); err != nil {
			return nil, fmt.Errorf("excel: fila %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheetRows, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("excel: ancho: %w", err)
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, fmt.Errorf("excel: hoja resumen: %w", err)
	}
	summary := [][]any{
		{"Sector", sectorName},
		{"Sesión", cmp.SessionID},
		{"Estado", cmp.State},
		{"Filtro", cmp.Filter},
		{"Productos", cmp.Stats.Total},
		{"Contados", cmp.Stats.Counted},
		{"No contados", cmp.Stats.Uncounted},
		{"Con diferencias", cmp.Stats.WithDifferences},
		{"Sin diferencias", cmp.Stats.WithoutDifferences},
		{"Avance %", cmp.Stats.CompletionPct.InexactFloat64()},
		{"Diferencia neta vs sistema", cmp.Stats.NetDiffVsSystem},
	}
	for i, line := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("excel: celda: %w", err)
		}
		if err := f.SetSheetRow(sheetSummary, cell, &line); err != nil {
			return nil, fmt.Errorf("excel: resumen: %w", err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("excel: escribir: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
