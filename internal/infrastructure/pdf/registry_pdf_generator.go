// Package pdf genera el registro imprimible de un conteo aplicado al ledger.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Sector + Sesión     │  Resultado + Fecha           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PARTICIPANTES: Operario 1 / Operario 2 / Supervisor         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Sistema | C1 | C2 | Acción | Final | Dif  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Productos / Contados / Diferencia neta             │
//	│  FOOTER: QR con el ID del registro                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/dto"
)

var _ count.RegistryPDFGenerator = (*RegistryPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// RegistryPDFGenerator implementa count.RegistryPDFGenerator usando Maroto v2.
type RegistryPDFGenerator struct{}

// NewRegistryPDFGenerator construye el generador.
func NewRegistryPDFGenerator() *RegistryPDFGenerator { return &RegistryPDFGenerator{} }

// Generate genera el PDF del registro y devuelve sus bytes.
func (g *RegistryPDFGenerator) Generate(record dto.AdjustmentRecordResponse, sectorName string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Registro de conteo "+sectorName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(record, sectorName))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(participantsRow(record))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(record.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(summaryRow(record))
	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(record))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar registro: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(record dto.AdjustmentRecordResponse, sectorName string) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("Sector "+sectorName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Sesión: "+record.SessionID, props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("REGISTRO DE CONTEO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(outcomeLabel(record.Outcome), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+record.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func participantsRow(record dto.AdjustmentRecordResponse) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("PARTICIPANTES", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Operario 1: %s   |   Operario 2: %s   |   Supervisor: %s",
				record.User1ID, record.User2ID, record.SupervisorID,
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 4, align.Left),
		h("Sistema", 1, align.Right),
		h("Conteo 1", 1, align.Right),
		h("Conteo 2", 1, align.Right),
		h("Acción", 1, align.Center),
		h("Anterior", 1, align.Right),
		h("Final", 1, align.Right),
		h("Dif.", 2, align.Right),
	)
}

// tableLineRows una fila por producto; los no contados muestran un guion en los conteos.
func tableLineRows(lines []dto.AdjustmentLineResponse) []core.Row {
	result := make([]core.Row, 0, len(lines))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, l := range lines {
		name := l.ProductName
		if name == "" {
			name = l.ProductID
		}
		if l.Overridden {
			name += " *"
		}
		c1, c2 := "—", "—"
		if l.WasCounted {
			c1, c2 = strconv.FormatInt(l.Count1, 10), strconv.FormatInt(l.Count2, 10)
		}
		deltaProps := props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1}
		if l.Delta != 0 {
			deltaProps.Style = fontstyle.Bold
			deltaProps.Color = colorAlert
		}
		result = append(result, row.New(7).Add(
			cell(name, 4, align.Left),
			cell(strconv.FormatInt(l.StockAtSystem, 10), 1, align.Right),
			cell(c1, 1, align.Right),
			cell(c2, 1, align.Right),
			cell(l.Action, 1, align.Center),
			cell(strconv.FormatInt(l.PreviousQuantity, 10), 1, align.Right),
			cell(strconv.FormatInt(l.NewQuantity, 10), 1, align.Right),
			col.New(2).Add(text.New(signed(l.Delta), deltaProps)),
		))
	}
	return result
}

func summaryRow(record dto.AdjustmentRecordResponse) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Productos:"),
			label("Contados:"),
			label("Diferencia neta:"),
		),
		col.New(3).Add(
			value(strconv.Itoa(record.TotalProducts)),
			value(strconv.Itoa(record.CountedProducts)),
			value(signed(record.NetDelta)),
		),
	)
}

func footerRow(record dto.AdjustmentRecordResponse) core.Row {
	return row.New(35).Add(
		col.New(3).Add(code.NewQr(record.ID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Registro "+record.ID, props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
			text.New("* cantidad fijada manualmente por el supervisor", props.Text{
				Size: 7, Top: 12, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func outcomeLabel(outcome string) string {
	switch outcome {
	case "COMPLETED":
		return "SIN DIFERENCIAS"
	case "WITH_DIFFERENCES":
		return "CON DIFERENCIAS"
	}
	return outcome
}

func signed(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
