// Package pdf genera la remisión (nota de despacho) que acompaña la mercancía de un traslado.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre app            │  N° Traslado + Fecha       │
//	│  ORIGEN / DESTINO                                           │
//	│  TRANSPORTE: transportista, vehículo, conductor, pesaje     │
//	│  TABLA: # | Producto | Lote | Cant. | Peso | Vence          │
//	│  FOOTER: QR del traslado + firmas                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
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
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ transfer.DispatchNoteRenderer = (*DispatchNoteGenerator)(nil)

// DispatchNoteGenerator implementa transfer.DispatchNoteRenderer con Maroto v2.
type DispatchNoteGenerator struct {
	issuer string
}

// NewDispatchNoteGenerator construye el generador. issuer aparece en el encabezado.
func NewDispatchNoteGenerator(issuer string) *DispatchNoteGenerator {
	return &DispatchNoteGenerator{issuer: issuer}
}

// RenderDispatchNote genera el PDF y devuelve sus bytes.
func (g *DispatchNoteGenerator) RenderDispatchNote(_ context.Context, doc transfer.DispatchNote) ([]byte, error) {
	if doc.Transfer == nil || doc.Shipment == nil {
		return nil, fmt.Errorf("pdf: traslado y despacho requeridos")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(fmt.Sprintf("Remisión traslado %d", doc.Transfer.ID), true).
		WithAuthor(g.issuer, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(g.headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(locationsRow(doc))
	m.AddRows(shipmentRow(doc.Shipment))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(doc.Transfer.Lines)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(footerRow(doc.Transfer))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

func (g *DispatchNoteGenerator) headerRow(doc transfer.DispatchNote) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.issuer, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Remisión de traslado entre ubicaciones", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("TRASLADO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New("N° "+strconv.FormatInt(doc.Transfer.ID, 10), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Despacho: "+doc.Shipment.DispatchedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func locationsRow(doc transfer.DispatchNote) core.Row {
	block := func(title string, loc *entity.Location, id int64, sub *string) core.Col {
		name := "Ubicación " + strconv.FormatInt(id, 10)
		detail := ""
		if loc != nil {
			name = loc.Name
			detail = loc.Code + " · " + loc.Kind
		}
		if sub != nil && *sub != "" {
			detail += " · " + *sub
		}
		return col.New(6).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(detail, props.Text{Size: 8, Top: 12, Color: colorGray}),
		)
	}
	t := doc.Transfer
	return row.New(18).Add(
		block("ORIGEN", doc.Source, t.SourceLocationID, nil),
		block("DESTINO", doc.Destination, t.DestinationLocationID, t.DestinationSubLocation),
	)
}

func shipmentRow(s *entity.Shipment) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("TRANSPORTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Transportista: %s   |   Vehículo: %s   |   Conductor: %s %s",
				nonEmpty(s.CarrierName, "-"), nonEmpty(s.VehicleNumber, "-"),
				nonEmpty(s.DriverName, "-"), s.DriverPhone,
			), props.Text{Size: 8, Top: 6, Color: colorGray}),
			text.New(fmt.Sprintf("Peso bruto: %s   |   Tara: %s   |   Neto: %s",
				weight(s.GrossWeight), weight(s.TareWeight), weight(s.NetWeight),
			), props.Text{Size: 8, Top: 10, Color: colorGray}),
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
		h("#", 1, align.Center),
		h("Producto", 3, align.Left),
		h("Lote", 2, align.Left),
		h("Cantidad", 2, align.Right),
		h("Peso", 2, align.Right),
		h("Vence", 2, align.Center),
	)
}

func tableLineRows(lines []entity.TransferLine) []core.Row {
	rows := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		expiry := "-"
		if l.ExpiryDate != nil {
			expiry = l.ExpiryDate.Format("02/01/2006")
		}
		product := strconv.FormatInt(l.ProductID, 10)
		if l.CategoryID != "" {
			product += " (" + l.CategoryID + ")"
		}
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(l.Position), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(product, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(nonEmpty(l.BatchLabel, "-"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(l.ExpectedQuantity.String(), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(weight(l.ExpectedWeight), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(expiry, props.Text{Size: 8, Align: align.Center, Top: 1})),
		))
	}
	return rows
}

// footerRow QR con el ID del traslado para la recepción y espacio para firmas.
func footerRow(t *entity.Transfer) core.Row {
	return row.New(45).Add(
		col.New(3).Add(code.NewQr("traslado:"+strconv.FormatInt(t.ID, 10), props.Rect{Percent: 90, Center: true})),
		col.New(9).Add(
			text.New("Despachado por: "+nonEmpty(t.DispatchedBy, "-"), props.Text{Size: 8, Top: 6, Left: 3}),
			text.New("Recibido por: ______________________", props.Text{Size: 8, Top: 18, Left: 3}),
			text.New("Toda diferencia debe registrarse al recibir; la remisión no reemplaza el conteo.", props.Text{
				Size: 6.5, Top: 32, Left: 3, Color: colorGray,
			}),
		),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func weight(w *decimal.Decimal) string {
	if w == nil {
		return "-"
	}
	return w.String() + " kg"
}
