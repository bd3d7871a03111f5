package dte_test

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2026, 3, 15, 20, 30, 0, 0, time.UTC) // 14:30 en El Salvador

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newAssembler(seed byte) *domdte.Assembler {
	ids := domdte.NewIdentifierGenerator(rand.NewChaCha8([32]byte{seed}))
	return domdte.NewAssembler("00", ids, domdte.WithClock(func() time.Time { return fixedNow }))
}

func testCompany() *entity.Company {
	return &entity.Company{
		ID:                  "c1",
		NIT:                 "0614-010190-101-3",
		NRC:                 "123456-7",
		Name:                "Distribuidora  Central S.A. de C.V.",
		TradeName:           "DisCentral",
		ActivityCode:        "46900",
		ActivityDescription: "Venta al por mayor de otros productos",
		EstablishmentType:   "02",
		Department:          "06",
		Municipality:        "14",
		AddressComplement:   "Col. Escalón, Calle 1",
		Phone:               "22223333",
		Email:               "facturacion@discentral.sv",
	}
}

func testCustomer() *entity.Customer {
	return &entity.Customer{
		ID:                  "cu1",
		Name:                "Ferretería El Clavo",
		TradeName:           "El Clavo",
		NIT:                 "06140101901013",
		NRC:                 "2345678",
		DUI:                 "012345678",
		ActivityCode:        "47521",
		ActivityDescription: "Venta de artículos de ferretería",
		Department:          "06",
		Municipality:        "14",
		AddressComplement:   "Av. Norte #12",
		Email:               "compras@elclavo.sv",
	}
}

func testInvoice(t entity.DocumentType, items ...entity.InvoiceItem) *entity.Invoice {
	if len(items) == 0 {
		items = []entity.InvoiceItem{{Description: "Martillo", ProductCode: "MAR-01", Quantity: d("1"), UnitPrice: d("113.00")}}
	}
	return &entity.Invoice{
		ID:       "inv-1",
		Type:     t,
		Number:   "F-0001",
		IssuedAt: fixedNow,
		Items:    items,
		Totals: &entity.InvoiceTotals{
			Subtotal:        d("100.00"),
			Tax:             d("13.00"),
			Total:           d("113.00"),
			TotalWithoutTax: d("100.00"),
			VATWithheld:     d("1.00"),
			IsCCFTotals:     t == entity.DocumentCreditoFiscal,
		},
	}
}

// asMap serializa el documento y lo vuelve a leer como mapa genérico para
// verificar presencia/ausencia de campos.
func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func section(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	s, ok := m[key].(map[string]any)
	require.True(t, ok, "se esperaba el bloque %q", key)
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// Tabla de tipos de documento
// ──────────────────────────────────────────────────────────────────────────────

func TestAssemble_TablaDeTipos(t *testing.T) {
	cases := []struct {
		category entity.DocumentType
		code     string
		version  int
	}{
		{entity.DocumentFactura, "01", 1},
		{entity.DocumentCreditoFiscal, "03", 3},
		{entity.DocumentNotaRemision, "04", 3},
		{entity.DocumentNotaCredito, "05", 3},
		{entity.DocumentNotaDebito, "06", 3},
		{entity.DocumentComprobanteLiquidacion, "08", 1},
		{entity.DocumentFacturaExportacion, "11", 1},
		{entity.DocumentSujetoExcluido, "14", 1},
		{entity.DocumentType("desconocido"), "01", 1},
	}
	a := newAssembler(1)
	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			doc, err := a.Assemble(testInvoice(tc.category), testCompany(), testCustomer())
			require.NoError(t, err)
			assert.Equal(t, tc.code, doc.Identificacion.TipoDte)
			assert.Equal(t, tc.version, doc.Identificacion.Version)
			assert.True(t, strings.HasPrefix(doc.Identificacion.NumeroControl, "DTE-"+tc.code+"-"))
		})
	}
}

func TestAssemble_Identificacion(t *testing.T) {
	doc, err := newAssembler(2).Assemble(testInvoice(entity.DocumentFactura), testCompany(), testCustomer())
	require.NoError(t, err)

	id := doc.Identificacion
	assert.Equal(t, "00", id.Ambiente)
	assert.Equal(t, 1, id.TipoModelo)
	assert.Equal(t, 1, id.TipoOperacion)
	assert.Equal(t, "USD", id.TipoMoneda)
	assert.Equal(t, "2026-03-15", id.FecEmi)
	assert.Equal(t, "14:30:00", id.HorEmi, "la hora se expresa en UTC-6")
	assert.Len(t, id.CodigoGeneracion, 36)
	assert.Equal(t, strings.ToUpper(id.CodigoGeneracion), id.CodigoGeneracion)

	m := section(t, asMap(t, doc), "identificacion")
	assert.Contains(t, m, "tipoContingencia")
	assert.Nil(t, m["tipoContingencia"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores de ensamblado
// ──────────────────────────────────────────────────────────────────────────────

func TestAssemble_SinCliente(t *testing.T) {
	_, err := newAssembler(3).Assemble(testInvoice(entity.DocumentFactura), testCompany(), nil)
	assert.ErrorIs(t, err, domain.ErrMissingCustomer)
}

func TestAssemble_SinTotales(t *testing.T) {
	inv := testInvoice(entity.DocumentFactura)
	inv.Totals = nil
	_, err := newAssembler(3).Assemble(inv, testCompany(), testCustomer())
	assert.ErrorIs(t, err, domain.ErrMissingTotals)
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

// CCF, qty=1, precio=113.00 → IVA 13.00, gravada 100.00, precioUni 100.00.
func TestAssemble_LineaCreditoFiscal(t *testing.T) {
	doc, err := newAssembler(4).Assemble(testInvoice(entity.DocumentCreditoFiscal), testCompany(), testCustomer())
	require.NoError(t, err)
	require.Len(t, doc.CuerpoDocumento, 1)

	item := doc.CuerpoDocumento[0]
	assert.True(t, item.PrecioUni.Equal(d("100.00")), "precioUni = %s", item.PrecioUni)
	assert.True(t, item.VentaGravada.Equal(d("100.00")), "ventaGravada = %s", item.VentaGravada)
	assert.True(t, item.IvaItem.IsZero(), "ivaItem no se envía en crédito fiscal")
	tributos, ok := item.Tributos.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"20"}, tributos)

	resumen := doc.Resumen
	tr, ok := resumen.Tributos.Get()
	require.True(t, ok)
	require.Len(t, tr, 1)
	assert.Equal(t, "20", tr[0].Codigo)
	assert.True(t, tr[0].Valor.Equal(d("13.00")))

	raw := section(t, asMap(t, doc), "resumen")
	assert.NotContains(t, raw, "totalIva", "el CCF reporta el IVA en tributos")
	cuerpo := asMap(t, doc)["cuerpoDocumento"].([]any)[0].(map[string]any)
	assert.NotContains(t, cuerpo, "ivaItem")
}

// Factura, qty=2, precio=10.00 → total 20.00, IVA 2.30, gravada 20.00, precioUni 10.00000000.
func TestAssemble_LineaFactura(t *testing.T) {
	inv := testInvoice(entity.DocumentFactura, entity.InvoiceItem{
		Description: "Tornillo", Quantity: d("2"), UnitPrice: d("10.00"),
	})
	doc, err := newAssembler(5).Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)

	item := doc.CuerpoDocumento[0]
	assert.True(t, item.PrecioUni.Equal(d("10.00000000")))
	assert.True(t, item.VentaGravada.Equal(d("20.00")))
	iva, ok := item.IvaItem.Get()
	require.True(t, ok)
	assert.True(t, iva.Equal(d("2.30")), "ivaItem = %s", iva)
	assert.True(t, item.Tributos.IsNull(), "tributos va en null fuera del CCF")
}

func TestAssemble_PrecioUnitarioOchoDecimales(t *testing.T) {
	inv := testInvoice(entity.DocumentFactura, entity.InvoiceItem{Quantity: d("3"), UnitPrice: d("0.123456789")})
	doc, err := newAssembler(5).Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)

	item := doc.CuerpoDocumento[0]
	assert.True(t, item.PrecioUni.Equal(d("0.12345679")))
	assert.Equal(t, "Item 1", item.Descripcion)
	assert.Equal(t, 59, item.UniMedida)
}

// ──────────────────────────────────────────────────────────────────────────────
// Receptor
// ──────────────────────────────────────────────────────────────────────────────

func TestAssemble_ReceptorFactura_EmpresaConNIT(t *testing.T) {
	c := testCustomer()
	c.IsBusiness = true
	doc, err := newAssembler(6).Assemble(testInvoice(entity.DocumentFactura), testCompany(), c)
	require.NoError(t, err)

	tipo, _ := doc.Receptor.TipoDocumento.Get()
	num, _ := doc.Receptor.NumDocumento.Get()
	assert.Equal(t, "36", tipo)
	assert.Equal(t, "06140101901013", num)
}

func TestAssemble_ReceptorFactura_DUIFormateado(t *testing.T) {
	c := testCustomer()
	c.IsBusiness = false
	doc, err := newAssembler(6).Assemble(testInvoice(entity.DocumentFactura), testCompany(), c)
	require.NoError(t, err)

	tipo, _ := doc.Receptor.TipoDocumento.Get()
	num, _ := doc.Receptor.NumDocumento.Get()
	assert.Equal(t, "13", tipo)
	assert.Equal(t, "01234567-8", num)
}

func TestAssemble_ReceptorFactura_SinDocumento(t *testing.T) {
	c := testCustomer()
	c.NIT, c.DUI = "", ""
	doc, err := newAssembler(6).Assemble(testInvoice(entity.DocumentFactura), testCompany(), c)
	require.NoError(t, err)

	receptor := section(t, asMap(t, doc), "receptor")
	require.Contains(t, receptor, "tipoDocumento")
	require.Contains(t, receptor, "numDocumento")
	assert.Nil(t, receptor["tipoDocumento"])
	assert.Nil(t, receptor["numDocumento"])
}

func TestAssemble_ReceptorCreditoFiscal(t *testing.T) {
	doc, err := newAssembler(7).Assemble(testInvoice(entity.DocumentCreditoFiscal), testCompany(), testCustomer())
	require.NoError(t, err)

	receptor := section(t, asMap(t, doc), "receptor")
	assert.NotContains(t, receptor, "tipoDocumento")
	assert.NotContains(t, receptor, "numDocumento")
	assert.Equal(t, "06140101901013", receptor["nit"])
	assert.Equal(t, "2345678", receptor["nrc"])
	assert.Equal(t, "El Clavo", receptor["nombreComercial"])
	assert.Equal(t, "47521", receptor["codActividad"])
}

func TestAssemble_ReceptorExportacion(t *testing.T) {
	t.Run("fallback 37", func(t *testing.T) {
		c := testCustomer()
		c.NIT, c.DUI, c.DocumentNumber = "", "", "P1234567"
		doc, err := newAssembler(8).Assemble(testInvoice(entity.DocumentFacturaExportacion), testCompany(), c)
		require.NoError(t, err)

		receptor := section(t, asMap(t, doc), "receptor")
		assert.Equal(t, "37", receptor["tipoDocumento"])
		assert.Equal(t, "P1234567", receptor["numDocumento"])
		assert.Equal(t, "US", receptor["codPais"])
		assert.Equal(t, "Estados Unidos", receptor["nombrePais"])
		assert.EqualValues(t, 1, receptor["tipoPersona"])
		assert.Equal(t, "Av. Norte #12", receptor["complemento"])
		direccion := section(t, receptor, "direccion")
		assert.Equal(t, "Av. Norte #12", direccion["complemento"])
	})

	t.Run("codigo explícito", func(t *testing.T) {
		c := testCustomer()
		c.DocumentTypeCode, c.DocumentNumber = "03", "X-99"
		c.CountryCode, c.CountryName, c.PersonType = "GT", "Guatemala", 2
		doc, err := newAssembler(8).Assemble(testInvoice(entity.DocumentFacturaExportacion), testCompany(), c)
		require.NoError(t, err)

		tipo, _ := doc.Receptor.TipoDocumento.Get()
		num, _ := doc.Receptor.NumDocumento.Get()
		pais, _ := doc.Receptor.CodPais.Get()
		persona, _ := doc.Receptor.TipoPersona.Get()
		assert.Equal(t, "03", tipo)
		assert.Equal(t, "X-99", num)
		assert.Equal(t, "GT", pais)
		assert.Equal(t, 2, persona)
	})

	t.Run("NIT antes que DUI", func(t *testing.T) {
		doc, err := newAssembler(8).Assemble(testInvoice(entity.DocumentFacturaExportacion), testCompany(), testCustomer())
		require.NoError(t, err)
		tipo, _ := doc.Receptor.TipoDocumento.Get()
		assert.Equal(t, "36", tipo)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Resumen
// ──────────────────────────────────────────────────────────────────────────────

func TestAssemble_ResumenExportacion(t *testing.T) {
	doc, err := newAssembler(9).Assemble(testInvoice(entity.DocumentFacturaExportacion), testCompany(), testCustomer())
	require.NoError(t, err)

	resumen := section(t, asMap(t, doc), "resumen")
	assert.NotContains(t, resumen, "totalIva", "la exportación nunca lleva totalIva")
	for _, key := range []string{"codIncoterms", "descIncoterms", "seguro", "flete"} {
		require.Contains(t, resumen, key)
		assert.Nil(t, resumen[key], key)
	}
	pagos, ok := resumen["pagos"].([]any)
	require.True(t, ok)
	require.Len(t, pagos, 1)
	pago := pagos[0].(map[string]any)
	assert.Equal(t, "05", pago["codigo"])
	assert.EqualValues(t, 113, pago["montoPago"])
	assert.Equal(t, "", pago["referencia"])

	emisor := section(t, asMap(t, doc), "emisor")
	assert.EqualValues(t, 1, emisor["tipoItemExpor"])
}

func TestAssemble_ResumenFactura(t *testing.T) {
	doc, err := newAssembler(10).Assemble(testInvoice(entity.DocumentFactura), testCompany(), testCustomer())
	require.NoError(t, err)

	m := asMap(t, doc)
	assert.NotContains(t, m, "documentoRelacionado", "la factura nunca envía documentoRelacionado")
	resumen := section(t, m, "resumen")
	assert.EqualValues(t, 13, resumen["totalIva"])
	require.Contains(t, resumen, "tributos")
	assert.Nil(t, resumen["tributos"])
	assert.NotContains(t, resumen, "codIncoterms")
	assert.Equal(t, "CIENTO TRECE 00/100 USD", resumen["totalLetras"])
}

func TestAssemble_CreditoFiscalSinImpuesto_TributosEnNull(t *testing.T) {
	inv := testInvoice(entity.DocumentCreditoFiscal, entity.InvoiceItem{Quantity: d("1"), UnitPrice: d("0")})
	doc, err := newAssembler(11).Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)

	assert.True(t, doc.Resumen.Tributos.IsNull())
	resumen := section(t, asMap(t, doc), "resumen")
	require.Contains(t, resumen, "tributos")
	assert.Nil(t, resumen["tributos"])
}

func TestAssemble_CreditoFiscal_TributoSumaIVADeLineas(t *testing.T) {
	inv := testInvoice(entity.DocumentCreditoFiscal, entity.InvoiceItem{Quantity: d("1"), UnitPrice: d("56.50")})
	doc, err := newAssembler(12).Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)

	tr, ok := doc.Resumen.Tributos.Get()
	require.True(t, ok)
	require.Len(t, tr, 1)
	assert.True(t, tr[0].Valor.Equal(d("6.50")), "valor = %s, los totales precalculados dicen 13.00", tr[0].Valor)
}

func TestAssemble_RetencionIVA(t *testing.T) {
	a := newAssembler(12)

	sinRetencion, err := a.Assemble(testInvoice(entity.DocumentCreditoFiscal), testCompany(), testCustomer())
	require.NoError(t, err)
	assert.True(t, sinRetencion.Resumen.IvaRete1.IsZero())
	assert.True(t, sinRetencion.Resumen.TotalPagar.Equal(d("113.00")))

	c := testCustomer()
	c.WithholdsVAT = true
	conRetencion, err := a.Assemble(testInvoice(entity.DocumentCreditoFiscal), testCompany(), c)
	require.NoError(t, err)
	assert.True(t, conRetencion.Resumen.IvaRete1.Equal(d("1.00")))
	assert.True(t, conRetencion.Resumen.TotalPagar.Equal(d("112.00")))
}

func TestAssemble_DocumentoRelacionado(t *testing.T) {
	a := newAssembler(13)

	nota := testInvoice(entity.DocumentNotaCredito)
	doc, err := a.Assemble(nota, testCompany(), testCustomer())
	require.NoError(t, err)
	m := asMap(t, doc)
	require.Contains(t, m, "documentoRelacionado")
	assert.Nil(t, m["documentoRelacionado"], "sin documentos se envía null, nunca []")

	nota.RelatedDocuments = []entity.RelatedDocument{{
		DocumentCode: "03", GenerationType: 2, Number: "ABC-123", IssuedAt: fixedNow,
	}}
	doc, err = a.Assemble(nota, testCompany(), testCustomer())
	require.NoError(t, err)
	rel, ok := doc.DocumentoRelacionado.Get()
	require.True(t, ok)
	require.Len(t, rel, 1)
	assert.Equal(t, "ABC-123", rel[0].NumeroDocumento)
	assert.Equal(t, "2026-03-15", rel[0].FechaEmision)
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia de identificadores
// ──────────────────────────────────────────────────────────────────────────────

func TestAssemble_NumeroControlReutilizado(t *testing.T) {
	inv := testInvoice(entity.DocumentFactura)
	inv.ControlNumber = "DTE-01-M001P001-000000000000123"
	inv.GenerationCode = "6F1E2D3C-0000-4000-8000-000000000001"
	a := newAssembler(14)

	first, err := a.Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)
	second, err := a.Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)

	assert.Equal(t, inv.ControlNumber, first.Identificacion.NumeroControl)
	assert.Equal(t, first.Identificacion.NumeroControl, second.Identificacion.NumeroControl)
	assert.Equal(t, inv.GenerationCode, second.Identificacion.CodigoGeneracion)
}

func TestAssemble_NumeroControlDeOtroTipoSeRegenera(t *testing.T) {
	inv := testInvoice(entity.DocumentCreditoFiscal)
	inv.ControlNumber = "DTE-01-M001P001-000000000000123"
	doc, err := newAssembler(15).Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)

	assert.NotEqual(t, inv.ControlNumber, doc.Identificacion.NumeroControl)
	assert.True(t, strings.HasPrefix(doc.Identificacion.NumeroControl, "DTE-03-M001P001-"))
}

func TestAssemble_NoModificaLaFactura(t *testing.T) {
	inv := testInvoice(entity.DocumentFactura)
	_, err := newAssembler(16).Assemble(inv, testCompany(), testCustomer())
	require.NoError(t, err)
	assert.Empty(t, inv.ControlNumber)
	assert.Empty(t, inv.GenerationCode)
}
