// Package pdf implementa la representación gráfica del DTE que se sube al
// servicio de recepción después de la aceptación.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + NIT/NRC │ Tipo DTE + N° control     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  IDENTIFICACIÓN: código de generación + sello + fecha        │
//	│  RECEPTOR: Nombre + documento + contacto                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Ventas gravadas        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Gravadas / IVA / Retención / TOTAL A PAGAR         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de consulta pública + total en letras            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"errors"
	"fmt"
	"net/url"

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

	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
)

// PublicQueryURL portal de consulta pública de DTE del MH.
const PublicQueryURL = "https://admin.factura.gob.sv/consultaPublica"

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 56, Blue: 147}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var documentTitles = map[string]string{
	"01": "FACTURA",
	"03": "COMPROBANTE DE CRÉDITO FISCAL",
	"04": "NOTA DE REMISIÓN",
	"05": "NOTA DE CRÉDITO",
	"06": "NOTA DE DÉBITO",
	"08": "COMPROBANTE DE LIQUIDACIÓN",
	"11": "FACTURA DE EXPORTACIÓN",
	"14": "FACTURA DE SUJETO EXCLUIDO",
}

// ── Renderer ──────────────────────────────────────────────────────────────────

// MarotoRenderer implementa billing.AttachmentRenderer usando Maroto v2.
type MarotoRenderer struct{}

// NewMarotoRenderer construye el renderer.
func NewMarotoRenderer() *MarotoRenderer { return &MarotoRenderer{} }

// RenderDTE genera el PDF del documento aceptado y devuelve sus bytes.
func (g *MarotoRenderer) RenderDTE(ctx context.Context, doc *domdte.TaxDocument, result *infradte.SubmissionResult) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("pdf: documento nulo")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Documento Tributario Electrónico", true).
		WithAuthor(doc.Emisor.Nombre, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(identificationRow(doc, result))
	m.AddRows(receiverRow(doc.Receptor))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(doc.CuerpoDocumento)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc.Resumen))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc *domdte.TaxDocument) core.Row {
	e := doc.Emisor
	id := doc.Identificacion
	return row.New(20).Add(
		col.New(7).Add(
			text.New(e.Nombre, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("NIT: %s   |   NRC: %s", e.Nit, nonEmpty(e.Nrc, "—")), props.Text{
				Size: 8, Top: 8, Color: colorGray,
			}),
			text.New(e.DescActividad, props.Text{
				Size: 7, Top: 13, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(nonEmpty(documentTitles[id.TipoDte], "DOCUMENTO TRIBUTARIO ELECTRÓNICO"), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(id.NumeroControl, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 7,
			}),
			text.New(fmt.Sprintf("Emisión: %s %s", id.FecEmi, id.HorEmi), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func identificationRow(doc *domdte.TaxDocument, result *infradte.SubmissionResult) core.Row {
	seal, processed := "—", "—"
	if result != nil {
		seal = nonEmpty(result.ReceptionSeal, "—")
		processed = nonEmpty(result.ProcessedAt, "—")
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("IDENTIFICACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New("Código de generación: "+doc.Identificacion.CodigoGeneracion, props.Text{Size: 8, Top: 5}),
			text.New(fmt.Sprintf("Sello de recepción: %s   |   Procesado: %s", seal, processed), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
	)
}

func receiverRow(r *domdte.Receptor) core.Row {
	if r == nil {
		return row.New(8).Add(col.New(12).Add(
			text.New("RECEPTOR: Consumidor final", props.Text{Style: fontstyle.Bold, Size: 8, Top: 2}),
		))
	}
	document := "—"
	if n, ok := r.NumDocumento.Get(); ok {
		document = n
	} else if n, ok := r.Nit.Get(); ok {
		document = "NIT " + n
	}
	email, _ := r.Correo.Get()
	phone, _ := r.Telefono.Get()
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(r.Nombre, props.Text{Style: fontstyle.Bold, Size: 10, Top: 5}),
			text.New(fmt.Sprintf("Documento: %s   |   Email: %s   |   Tel: %s",
				document, nonEmpty(email, "—"), nonEmpty(phone, "—"),
			), props.Text{Size: 8, Top: 10, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Ventas gravadas", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableItemRows(items []domdte.Item) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(it.Cantidad.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(it.Descripcion, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money(it.PrecioUni.Decimal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(money(it.VentaGravada.Decimal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalsRow(r domdte.Resumen) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	iva := decimal.Zero
	if v, ok := r.TotalIva.Get(); ok {
		iva = v.Decimal
	}

	labels := col.New(3).Add(
		label("Ventas gravadas:"),
		label("IVA:"),
		label("IVA retenido:"),
		text.New("TOTAL A PAGAR:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 15}),
	)
	values := col.New(3).Add(
		value(money(r.TotalGravada.Decimal)),
		value(money(iva)),
		value(money(r.IvaRete1.Decimal)),
		text.New(money(r.TotalPagar.Decimal), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 15}),
	)
	return row.New(24).Add(col.New(6), labels, values)
}

// footerRows: QR de consulta pública + total en letras.
func footerRows(doc *domdte.TaxDocument) []core.Row {
	return []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(QueryURL(doc), props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(
				text.New("Escanee el código QR para consultar este documento\nen el portal del Ministerio de Hacienda.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("SON: "+doc.Resumen.TotalLetras, props.Text{
					Style: fontstyle.Bold, Size: 9, Top: 20, Left: 3, Color: colorPrimary,
				}),
			),
		),
	}
}

// QueryURL URL de consulta pública codificada en el QR.
func QueryURL(doc *domdte.TaxDocument) string {
	q := url.Values{}
	q.Set("ambiente", doc.Identificacion.Ambiente)
	q.Set("codGen", doc.Identificacion.CodigoGeneracion)
	q.Set("fechaEmi", doc.Identificacion.FecEmi)
	return PublicQueryURL + "?" + q.Encode()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// money formatea en dólares con separador de miles: 1234.5 → "$1,234.50".
func money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + string(buf) + "." + frac
}
