// Package pdf genera el tiquete de venta de la farmacia en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tienda + Cajero     │  N° Orden + Fecha + Estado   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE / FÓRMULA MÉDICA                                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Medicamento | Lote | P.Unit | IVA | Total     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Descuento / Impuestos / TOTAL           │
//	│  PAGO: Medio / Recibido / Cambio / Saldo                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con el número de orden                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

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

	"github.com/jhoicas/Farmacia-api/internal/application/sales"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 110, Blue: 80}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var hundred = decimal.NewFromInt(100)

var _ sales.ReceiptGenerator = (*MarotoReceiptGenerator)(nil)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoReceiptGenerator implementa sales.ReceiptGenerator usando Maroto v2.
type MarotoReceiptGenerator struct {
	pharmacy string
}

// NewMarotoReceiptGenerator construye el generador. pharmacy encabeza el tiquete.
func NewMarotoReceiptGenerator(pharmacy string) *MarotoReceiptGenerator {
	return &MarotoReceiptGenerator{pharmacy: nonEmpty(pharmacy, "Farmacia")}
}

// GenerateReceipt genera el PDF y devuelve sus bytes.
func (g *MarotoReceiptGenerator) GenerateReceipt(ctx context.Context, r sales.Receipt) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Tiquete de venta "+r.OrderNumber, true).
		WithAuthor(g.pharmacy, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, ln := range tableLineRows(r.Lines) {
		m.AddRows(ln)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(r))
	m.AddRows(paymentRow(r))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(r))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar tiquete: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: farmacia + tienda (izq) y N° orden + fecha (der).
func (g *MarotoReceiptGenerator) headerRow(r sales.Receipt) core.Row {
	fecha := r.OrderDate.Format("02/01/2006 15:04")
	if r.PaidAt != nil {
		fecha = r.PaidAt.Format("02/01/2006 15:04")
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.pharmacy, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Tienda: "+r.ShopID+"   |   Cajero: "+nonEmpty(r.CashierID, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("TIQUETE DE VENTA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(r.OrderNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha+"   "+r.Status, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// customerRow: cliente y fórmula médica cuando aplica.
func customerRow(r sales.Receipt) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Cliente: %s   |   Fórmula médica: %s",
				nonEmpty(r.CustomerID, "consumidor final"),
				nonEmpty(r.PrescriptionNumber, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Medicamento", 4, align.Left),
		h("Lote", 2, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Total", 2, align.Right),
	)
}

// tableLineRows: una fila por línea de la orden.
func tableLineRows(lines []sales.ReceiptLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		name := l.DrugName
		if l.DiscountPercentage.IsPositive() {
			name += " (-" + l.DiscountPercentage.String() + "%)"
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				fmt.Sprint(l.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(4).Add(text.New(
				name,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				l.BatchNumber,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1, Color: colorGray},
			)),
			col.New(2).Add(text.New(
				formatMoney(l.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				l.TaxRate.Mul(hundred).String()+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				formatMoney(l.Total),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func label(s string) core.Component {
	return text.New(s, props.Text{
		Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
	})
}

func value(s string) core.Component {
	return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(r sales.Receipt) core.Row {
	grand := props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right,
		Color: colorPrimary, Right: 1,
	}

	return row.New(26).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:"),
			label("Descuento:"),
			label("Impuestos:"),
			text.New("TOTAL:", grand),
		),
		col.New(3).Add(
			value(formatMoney(r.SubTotal)),
			value(formatMoney(r.DiscountAmount.Neg())),
			value(formatMoney(r.TaxAmount)),
			text.New(formatMoney(r.TotalAmount), grand),
		),
	)
}

// paymentRow: medio de pago, recibido, cambio y saldo pendiente.
func paymentRow(r sales.Receipt) core.Row {
	method := r.PaymentMethod
	if r.PaymentReference != "" {
		method += " (" + r.PaymentReference + ")"
	}
	return row.New(24).Add(
		col.New(6).Add(text.New("Medio de pago: "+method, props.Text{
			Size: 8, Top: 1, Color: colorGray,
		})),
		col.New(3).Add(
			label("Recibido:"),
			label("Cambio:"),
			label("Saldo pendiente:"),
		),
		col.New(3).Add(
			value(formatMoney(r.AmountPaid)),
			value(formatMoney(r.ChangeGiven)),
			value(formatMoney(r.BalanceDue)),
		),
	)
}

// footerRow: QR con tienda y número de orden + leyenda.
func footerRow(r sales.Receipt) core.Row {
	qr := strings.Join([]string{r.ShopID, r.OrderNumber, r.TotalAmount.StringFixed(2)}, "|")
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(qr, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(9).Add(
			text.New("Presente este tiquete para cambios o devoluciones.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Los medicamentos de venta bajo fórmula médica no tienen devolución.", props.Text{
				Size: 8, Top: 10, Left: 3, Color: colorGray,
			}),
			text.New("Gracias por su compra", props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 20,
				Left: 3, Color: colorPrimary,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formatea con puntos de miles y coma decimal.
// Ej: 25000 → "$25.000,00", 3200.5 → "$3.200,50"
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+4)
	if d.IsNegative() {
		buf = append(buf, '-')
	}
	buf = append(buf, '$')
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	buf = append(buf, ',')
	buf = append(buf, frac...)
	return string(buf)
}
