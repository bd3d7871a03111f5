package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType categoría del documento tributario electrónico.
type DocumentType string

const (
	DocumentFactura                DocumentType = "factura"
	DocumentCreditoFiscal          DocumentType = "credito_fiscal"
	DocumentNotaRemision           DocumentType = "nota_remision"
	DocumentNotaCredito            DocumentType = "nota_credito"
	DocumentNotaDebito             DocumentType = "nota_debito"
	DocumentComprobanteLiquidacion DocumentType = "comprobante_liquidacion"
	DocumentFacturaExportacion     DocumentType = "factura_exportacion"
	DocumentSujetoExcluido         DocumentType = "sujeto_excluido"
)

// Estados DTE de la factura local.
const (
	DTEStatusDraft       = "DRAFT"      // Sin transmitir
	DTEStatusProcesado   = "PROCESADO"  // Aceptada por el MH
	DTEStatusRecibido    = "RECIBIDO"   // Recibida por el MH (aceptación diferida)
	DTEStatusInvalidated = "INVALIDADO" // Anulada ante el MH
)

// Invoice representa la cabecera de una factura local antes y después de su transmisión.
type Invoice struct {
	ID               string
	CompanyID        string
	CustomerID       string // vacío = sin cliente asociado
	Type             DocumentType
	Number           string // referencia interna (encabezado X-Invoice-Number)
	IssuedAt         time.Time
	PaymentCondition int // 1 contado, 2 crédito, 3 otro
	Items            []InvoiceItem
	Totals           *InvoiceTotals // nil = totales no calculados
	RelatedDocuments []RelatedDocument

	// Campos DTE; solo se escriben después de una transmisión aceptada.
	ControlNumber  string
	GenerationCode string
	ReceptionSeal  string
	DTEStatus      string
	ProcessedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceTotals totales precalculados por el subsistema de facturación.
type InvoiceTotals struct {
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	TotalWithoutTax decimal.Decimal
	VATWithheld     decimal.Decimal
	// IsCCFTotals indica que Subtotal ya viene sin IVA (cálculo de crédito fiscal).
	IsCCFTotals bool
}

// RelatedDocument documento relacionado (notas de crédito y débito).
type RelatedDocument struct {
	DocumentCode   string // CAT-002 del documento relacionado
	GenerationType int    // 1 físico, 2 electrónico
	Number         string // código de generación o correlativo
	IssuedAt       time.Time
}

// HasDTEPrefix indica si el número de control ya pertenece al tipo de documento code.
func (i *Invoice) HasDTEPrefix(code string) bool {
	prefix := "DTE-" + code
	return len(i.ControlNumber) >= len(prefix) && i.ControlNumber[:len(prefix)] == prefix
}
