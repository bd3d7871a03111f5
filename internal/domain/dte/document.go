// Package dte ensambla el Documento Tributario Electrónico (JSON) que exige el
// Ministerio de Hacienda a partir de la factura local, el emisor y el receptor.
package dte

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amount serializa un decimal como número JSON; el esquema del MH rechaza montos en string.
type Amount struct{ decimal.Decimal }

// NewAmount envuelve un decimal.
func NewAmount(d decimal.Decimal) Amount { return Amount{d} }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// TaxDocument instancia del esquema DTE. Se construye una vez por intento y no se modifica.
type TaxDocument struct {
	Identificacion       Identificacion                `json:"identificacion"`
	DocumentoRelacionado Field[[]DocumentoRelacionado] `json:"documentoRelacionado,omitzero"`
	Emisor               Emisor                        `json:"emisor"`
	Receptor             *Receptor                     `json:"receptor"`
	OtrosDocumentos      json.RawMessage               `json:"otrosDocumentos"`
	VentaTercero         json.RawMessage               `json:"ventaTercero"`
	CuerpoDocumento      []Item                        `json:"cuerpoDocumento"`
	Resumen              Resumen                       `json:"resumen"`
	Extension            json.RawMessage               `json:"extension"`
	Apendice             json.RawMessage               `json:"apendice"`
}

// Identificacion bloque de identificación.
type Identificacion struct {
	Version          int     `json:"version"`
	Ambiente         string  `json:"ambiente"`
	TipoDte          string  `json:"tipoDte"`
	NumeroControl    string  `json:"numeroControl"`
	CodigoGeneracion string  `json:"codigoGeneracion"`
	TipoModelo       int     `json:"tipoModelo"`
	TipoOperacion    int     `json:"tipoOperacion"`
	TipoContingencia *int    `json:"tipoContingencia"`
	MotivoContin     *string `json:"motivoContin"`
	FecEmi           string  `json:"fecEmi"`
	HorEmi           string  `json:"horEmi"`
	TipoMoneda       string  `json:"tipoMoneda"`
}

// Direccion dirección según CAT-012/CAT-013.
type Direccion struct {
	Departamento string `json:"departamento"`
	Municipio    string `json:"municipio"`
	Complemento  string `json:"complemento"`
}

// Emisor bloque del emisor.
type Emisor struct {
	Nit                 string    `json:"nit"`
	Nrc                 string    `json:"nrc"`
	Nombre              string    `json:"nombre"`
	CodActividad        string    `json:"codActividad"`
	DescActividad       string    `json:"descActividad"`
	NombreComercial     *string   `json:"nombreComercial"`
	TipoEstablecimiento string    `json:"tipoEstablecimiento"`
	Direccion           Direccion `json:"direccion"`
	Telefono            string    `json:"telefono"`
	Correo              string    `json:"correo"`
	CodEstableMH        *string   `json:"codEstableMH"`
	CodEstable          *string   `json:"codEstable"`
	CodPuntoVentaMH     *string   `json:"codPuntoVentaMH"`
	CodPuntoVenta       *string   `json:"codPuntoVenta"`

	// Solo exportación.
	TipoItemExpor Field[int]    `json:"tipoItemExpor,omitzero"`
	RecintoFiscal Field[string] `json:"recintoFiscal,omitzero"`
	Regimen       Field[string] `json:"regimen,omitzero"`
}

// Receptor bloque del receptor. Los campos presentes dependen del tipo de documento.
type Receptor struct {
	TipoDocumento   Field[string]    `json:"tipoDocumento,omitzero"`
	NumDocumento    Field[string]    `json:"numDocumento,omitzero"`
	Nit             Field[string]    `json:"nit,omitzero"`
	Nrc             Field[string]    `json:"nrc,omitzero"`
	Nombre          string           `json:"nombre"`
	CodActividad    Field[string]    `json:"codActividad,omitzero"`
	DescActividad   Field[string]    `json:"descActividad,omitzero"`
	NombreComercial Field[string]    `json:"nombreComercial,omitzero"`
	Direccion       Field[Direccion] `json:"direccion,omitzero"`
	Telefono        Field[string]    `json:"telefono,omitzero"`
	Correo          Field[string]    `json:"correo,omitzero"`

	// Solo exportación.
	CodPais     Field[string] `json:"codPais,omitzero"`
	NombrePais  Field[string] `json:"nombrePais,omitzero"`
	Complemento Field[string] `json:"complemento,omitzero"`
	TipoPersona Field[int]    `json:"tipoPersona,omitzero"`
}

// Item línea de cuerpoDocumento.
type Item struct {
	NumItem         int             `json:"numItem"`
	TipoItem        int             `json:"tipoItem"`
	NumeroDocumento *string         `json:"numeroDocumento"`
	Cantidad        Amount          `json:"cantidad"`
	Codigo          *string         `json:"codigo"`
	CodTributo      *string         `json:"codTributo"`
	UniMedida       int             `json:"uniMedida"`
	Descripcion     string          `json:"descripcion"`
	PrecioUni       Amount          `json:"precioUni"`
	MontoDescu      Amount          `json:"montoDescu"`
	VentaNoSuj      Amount          `json:"ventaNoSuj"`
	VentaExenta     Amount          `json:"ventaExenta"`
	VentaGravada    Amount          `json:"ventaGravada"`
	Tributos        Field[[]string] `json:"tributos,omitzero"`
	Psv             Amount          `json:"psv"`
	NoGravado       Amount          `json:"noGravado"`
	IvaItem         Field[Amount]   `json:"ivaItem,omitzero"`
}

// Tributo resumen de un tributo aplicado.
type Tributo struct {
	Codigo      string `json:"codigo"`
	Descripcion string `json:"descripcion"`
	Valor       Amount `json:"valor"`
}

// Pago forma de pago.
type Pago struct {
	Codigo     string  `json:"codigo"`
	MontoPago  Amount  `json:"montoPago"`
	Referencia string  `json:"referencia"`
	Plazo      *string `json:"plazo"`
	Periodo    *int    `json:"periodo"`
}

// Resumen bloque de totales.
type Resumen struct {
	TotalNoSuj          Amount           `json:"totalNoSuj"`
	TotalExenta         Amount           `json:"totalExenta"`
	TotalGravada        Amount           `json:"totalGravada"`
	SubTotalVentas      Amount           `json:"subTotalVentas"`
	DescuNoSuj          Amount           `json:"descuNoSuj"`
	DescuExenta         Amount           `json:"descuExenta"`
	DescuGravada        Amount           `json:"descuGravada"`
	PorcentajeDescuento Amount           `json:"porcentajeDescuento"`
	TotalDescu          Amount           `json:"totalDescu"`
	Tributos            Field[[]Tributo] `json:"tributos,omitzero"`
	SubTotal            Amount           `json:"subTotal"`
	IvaPerci1           Field[Amount]    `json:"ivaPerci1,omitzero"`
	IvaRete1            Amount           `json:"ivaRete1"`
	ReteRenta           Amount           `json:"reteRenta"`
	MontoTotalOperacion Amount           `json:"montoTotalOperacion"`
	TotalNoGravado      Amount           `json:"totalNoGravado"`
	TotalPagar          Amount           `json:"totalPagar"`
	TotalLetras         string           `json:"totalLetras"`
	TotalIva            Field[Amount]    `json:"totalIva,omitzero"`
	SaldoFavor          Amount           `json:"saldoFavor"`
	CondicionOperacion  int              `json:"condicionOperacion"`
	Pagos               Field[[]Pago]    `json:"pagos,omitzero"`
	NumPagoElectronico  *string          `json:"numPagoElectronico"`

	// Solo exportación.
	CodIncoterms  Field[string] `json:"codIncoterms,omitzero"`
	DescIncoterms Field[string] `json:"descIncoterms,omitzero"`
	Seguro        Field[Amount] `json:"seguro,omitzero"`
	Flete         Field[Amount] `json:"flete,omitzero"`
}

// DocumentoRelacionado referencia a otro documento (notas de crédito/débito).
type DocumentoRelacionado struct {
	TipoDocumento   string `json:"tipoDocumento"`
	TipoGeneracion  int    `json:"tipoGeneracion"`
	NumeroDocumento string `json:"numeroDocumento"`
	FechaEmision    string `json:"fechaEmision"`
}
