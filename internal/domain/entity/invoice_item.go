package entity

import "github.com/shopspring/decimal"

// InvoiceItem representa una línea de la factura.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	ProductID   string // opcional
	Description string
	ProductCode string
	UnitMeasure int // CAT-014; 0 = unidad
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Total devuelve cantidad × precio unitario sin redondear.
func (it InvoiceItem) Total() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}
