package dte

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

// ElSalvador zona horaria de emisión (UTC-6, sin horario de verano).
var ElSalvador = time.FixedZone("America/El_Salvador", -6*60*60)

// Assembler transforma (factura, emisor, receptor) en un TaxDocument.
// No guarda estado entre llamadas salvo el generador de identificadores.
type Assembler struct {
	ambiente string
	ids      *IdentifierGenerator
	now      func() time.Time
}

// AssemblerOption configura el Assembler.
type AssemblerOption func(*Assembler)

// WithClock reemplaza el reloj usado para fecEmi/horEmi.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler construye el ensamblador para un ambiente ("00" pruebas, "01" producción).
func NewAssembler(ambiente string, ids *IdentifierGenerator, opts ...AssemblerOption) *Assembler {
	if ids == nil {
		ids = NewIdentifierGenerator(nil)
	}
	a := &Assembler{ambiente: ambiente, ids: ids, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ambiente devuelve el código de ambiente embebido en los documentos.
func (a *Assembler) Ambiente() string { return a.ambiente }

// Assemble construye el documento. Falla con domain.ErrMissingCustomer si no hay
// receptor y con domain.ErrMissingTotals si la factura no tiene totales.
func (a *Assembler) Assemble(inv *entity.Invoice, company *entity.Company, customer *entity.Customer) (*TaxDocument, error) {
	if inv == nil {
		return nil, domain.ErrInvalidInput
	}
	if customer == nil {
		return nil, domain.ErrMissingCustomer
	}
	if inv.Totals == nil {
		return nil, domain.ErrMissingTotals
	}
	if company == nil {
		return nil, domain.ErrMissingIssuer
	}

	info := TypeInfoFor(inv.Type)
	controlNumber, err := a.ids.ControlNumber(inv, info.Code, company)
	if err != nil {
		return nil, err
	}
	generationCode, err := a.ids.GenerationCode(inv)
	if err != nil {
		return nil, err
	}
	now := a.now().In(ElSalvador)

	items, itemTax := buildItems(inv.Items, info.Code)
	return &TaxDocument{
		Identificacion: Identificacion{
			Version:          info.Version,
			Ambiente:         a.ambiente,
			TipoDte:          info.Code,
			NumeroControl:    controlNumber,
			CodigoGeneracion: generationCode,
			TipoModelo:       pkgdte.ModeloPrevio,
			TipoOperacion:    pkgdte.OperacionNormal,
			FecEmi:           now.Format("2006-01-02"),
			HorEmi:           now.Format("15:04:05"),
			TipoMoneda:       pkgdte.CurrencyUSD,
		},
		DocumentoRelacionado: relatedDocuments(inv.RelatedDocuments, info.Code),
		Emisor:               buildEmitter(company, info.Code),
		Receptor:             buildReceiver(customer, info.Code),
		CuerpoDocumento:      items,
		Resumen:              buildSummary(inv, customer, info.Code, itemTax),
	}, nil
}

// ── Emisor ────────────────────────────────────────────────────────────────────

func buildEmitter(c *entity.Company, code string) Emisor {
	e := Emisor{
		Nit:                 pkgdte.DigitsOnly(c.NIT),
		Nrc:                 pkgdte.DigitsOnly(c.NRC),
		Nombre:              pkgdte.Clean(c.Name),
		CodActividad:        strings.TrimSpace(c.ActivityCode),
		DescActividad:       pkgdte.Clean(c.ActivityDescription),
		NombreComercial:     pkgdte.OptionalString(c.TradeName),
		TipoEstablecimiento: nonEmpty(strings.TrimSpace(c.EstablishmentType), pkgdte.EstablishmentCasa),
		Direccion: Direccion{
			Departamento: c.Department,
			Municipio:    c.Municipality,
			Complemento:  pkgdte.Clean(c.AddressComplement),
		},
		Telefono:        pkgdte.Clean(c.Phone),
		Correo:          pkgdte.Clean(c.Email),
		CodEstableMH:    pkgdte.OptionalString(c.EstablishmentCodeMH),
		CodEstable:      pkgdte.OptionalString(c.EstablishmentCode),
		CodPuntoVentaMH: pkgdte.OptionalString(c.POSCodeMH),
		CodPuntoVenta:   pkgdte.OptionalString(c.POSCode),
	}
	if code == pkgdte.CodeFacturaExportacion {
		e.TipoItemExpor = Value(pkgdte.ItemTypeBienes)
		e.RecintoFiscal = Null[string]()
		e.Regimen = Null[string]()
	}
	return e
}

// ── Receptor ──────────────────────────────────────────────────────────────────

func buildReceiver(c *entity.Customer, code string) *Receptor {
	r := &Receptor{
		Nombre:        pkgdte.Clean(c.DisplayName()),
		CodActividad:  optional(c.ActivityCode),
		DescActividad: optional(c.ActivityDescription),
		Telefono:      optional(c.Phone),
		Correo:        optional(c.Email),
	}

	switch shapeFor(code) {
	case receiverBusiness:
		r.Nit = Value(pkgdte.DigitsOnly(c.NIT))
		r.Nrc = optional(pkgdte.DigitsOnly(c.NRC))
		r.NombreComercial = optional(c.TradeName)
		r.Direccion = address(c)

	case receiverExport:
		docType, docNumber := exportDocument(c)
		complement := pkgdte.Clean(c.AddressComplement)
		r.TipoDocumento = Value(docType)
		r.NumDocumento = Value(docNumber)
		r.NombreComercial = optional(c.TradeName)
		r.CodPais = Value(nonEmpty(strings.TrimSpace(c.CountryCode), pkgdte.DefaultCountryCode))
		r.NombrePais = Value(nonEmpty(pkgdte.Clean(c.CountryName), pkgdte.DefaultCountryName))
		r.TipoPersona = Value(personType(c.PersonType))
		r.Direccion = Value(Direccion{Departamento: c.Department, Municipio: c.Municipality, Complemento: complement})
		r.Complemento = Value(complement)

	default:
		r.TipoDocumento, r.NumDocumento = standardDocument(c)
		r.Nrc = optional(pkgdte.DigitsOnly(c.NRC))
		r.Direccion = address(c)
	}
	return r
}

// standardDocument: NIT si es empresa con NIT, si no DUI, si no ambos en null.
func standardDocument(c *entity.Customer) (Field[string], Field[string]) {
	if nit := pkgdte.DigitsOnly(c.NIT); c.IsBusiness && nit != "" {
		return Value(pkgdte.ReceiverDocNIT), Value(nit)
	}
	if strings.TrimSpace(c.DUI) != "" {
		return Value(pkgdte.ReceiverDocDUI), Value(pkgdte.FormatDUI(c.DUI))
	}
	return Null[string](), Null[string]()
}

// exportDocument: código explícito, NIT, DUI o "37" con el documento libre.
func exportDocument(c *entity.Customer) (string, string) {
	nit := pkgdte.DigitsOnly(c.NIT)
	dui := strings.TrimSpace(c.DUI)
	switch {
	case strings.TrimSpace(c.DocumentTypeCode) != "":
		return strings.TrimSpace(c.DocumentTypeCode), pkgdte.FirstNonEmpty(c.DocumentNumber, nit, dui)
	case nit != "":
		return pkgdte.ReceiverDocNIT, nit
	case dui != "":
		return pkgdte.ReceiverDocDUI, pkgdte.FormatDUI(dui)
	}
	return pkgdte.ReceiverDocOther, pkgdte.Clean(c.DocumentNumber)
}

func address(c *entity.Customer) Field[Direccion] {
	if strings.TrimSpace(c.Department) == "" || strings.TrimSpace(c.Municipality) == "" {
		return Null[Direccion]()
	}
	return Value(Direccion{
		Departamento: strings.TrimSpace(c.Department),
		Municipio:    strings.TrimSpace(c.Municipality),
		Complemento:  pkgdte.Clean(c.AddressComplement),
	})
}

func personType(v int) int {
	if v == pkgdte.PersonTypeJuridica {
		return v
	}
	return pkgdte.PersonTypeNatural
}

// ── Cuerpo del documento ──────────────────────────────────────────────────────

// buildItems mapea las líneas y devuelve la suma del IVA por línea.
// En crédito fiscal el precio unitario incluye IVA y se reporta sin él.
func buildItems(lines []entity.InvoiceItem, code string) ([]Item, decimal.Decimal) {
	items := make([]Item, 0, len(lines))
	taxSum := decimal.Zero
	for i, it := range lines {
		productTotal := it.Total()
		tax := pkgdte.IncludedVAT(productTotal)
		taxSum = taxSum.Add(tax)

		item := Item{
			NumItem:     i + 1,
			TipoItem:    pkgdte.ItemTypeBienes,
			Cantidad:    NewAmount(it.Quantity),
			Codigo:      pkgdte.OptionalString(it.ProductCode),
			UniMedida:   unitMeasure(it.UnitMeasure),
			Descripcion: pkgdte.FirstNonEmpty(it.Description, fmt.Sprintf("Item %d", i+1)),
		}
		if code == pkgdte.CodeCreditoFiscal {
			item.PrecioUni = NewAmount(pkgdte.WithoutVAT(it.UnitPrice, 2))
			item.VentaGravada = NewAmount(pkgdte.Round(productTotal.Sub(tax), 2))
			item.Tributos = Value([]string{pkgdte.TributeIVA})
		} else {
			item.PrecioUni = NewAmount(pkgdte.Round(it.UnitPrice, 8))
			item.VentaGravada = NewAmount(pkgdte.Round(productTotal, 2))
			item.IvaItem = Value(NewAmount(tax))
			item.Tributos = Null[[]string]()
		}
		items = append(items, item)
	}
	return items, taxSum
}

func unitMeasure(v int) int {
	if v <= 0 {
		return pkgdte.UnitMeasureUnidad
	}
	return v
}

// ── Resumen ───────────────────────────────────────────────────────────────────

func buildSummary(inv *entity.Invoice, customer *entity.Customer, code string, itemTax decimal.Decimal) Resumen {
	t := inv.Totals

	taxed := t.Subtotal
	if code == pkgdte.CodeCreditoFiscal && !t.IsCCFTotals {
		taxed = t.TotalWithoutTax
	}
	taxed = pkgdte.Round(taxed, 2)

	withheld := decimal.Zero
	if customer.WithholdsVAT {
		withheld = pkgdte.Round(t.VATWithheld, 2)
	}
	total := pkgdte.Round(t.Total, 2)
	toPay := total.Sub(withheld)

	r := Resumen{
		TotalGravada:        NewAmount(taxed),
		SubTotalVentas:      NewAmount(taxed),
		SubTotal:            NewAmount(taxed),
		IvaRete1:            NewAmount(withheld),
		MontoTotalOperacion: NewAmount(total),
		TotalPagar:          NewAmount(toPay),
		TotalLetras:         pkgdte.AmountInWords(toPay),
		CondicionOperacion:  paymentCondition(inv.PaymentCondition),
		Tributos:            Null[[]Tributo](),
		Pagos:               Null[[]Pago](),
	}

	switch code {
	case pkgdte.CodeCreditoFiscal:
		// El tributo declarado es la suma del IVA de las líneas, la misma base que decide si existe.
		if !itemTax.IsZero() {
			r.Tributos = Value([]Tributo{{
				Codigo:      pkgdte.TributeIVA,
				Descripcion: pkgdte.TributeIVADescription,
				Valor:       NewAmount(pkgdte.Round(itemTax, 2)),
			}})
		}
		r.IvaPerci1 = Value(NewAmount(decimal.Zero))
	case pkgdte.CodeFacturaExportacion:
		// totalIva no existe en el esquema de exportación.
		r.Pagos = Value([]Pago{{Codigo: pkgdte.PaymentOther, MontoPago: NewAmount(total), Referencia: ""}})
		r.CodIncoterms = Null[string]()
		r.DescIncoterms = Null[string]()
		r.Seguro = Null[Amount]()
		r.Flete = Null[Amount]()
	default:
		r.TotalIva = Value(NewAmount(pkgdte.Round(t.Tax, 2)))
	}
	return r
}

func paymentCondition(v int) int {
	switch v {
	case pkgdte.CondicionContado, pkgdte.CondicionCredito, pkgdte.CondicionOtro:
		return v
	}
	return pkgdte.CondicionContado
}

// relatedDocuments: ausente en factura (01); null cuando no hay documentos.
func relatedDocuments(docs []entity.RelatedDocument, code string) Field[[]DocumentoRelacionado] {
	if code == pkgdte.CodeFactura {
		return Field[[]DocumentoRelacionado]{}
	}
	if len(docs) == 0 {
		return Null[[]DocumentoRelacionado]()
	}
	out := make([]DocumentoRelacionado, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentoRelacionado{
			TipoDocumento:   d.DocumentCode,
			TipoGeneracion:  d.GenerationType,
			NumeroDocumento: d.Number,
			FechaEmision:    d.IssuedAt.In(ElSalvador).Format("2006-01-02"),
		})
	}
	return Value(out)
}

func optional(s string) Field[string] {
	if c := pkgdte.Clean(s); c != "" {
		return Value(c)
	}
	return Null[string]()
}
