package dte

import "github.com/shopspring/decimal"

// VATFactor divisor para extraer el IVA (13%) de un precio con impuesto incluido.
var VATFactor = decimal.RequireFromString("1.13")

// Round redondea a places decimales, mitad alejándose de cero.
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// RoundFloat convierte x a decimal usando su representación decimal más corta
// (2.005 -> "2.005", no 2.00499999...) y redondea mitad alejándose de cero.
func RoundFloat(x float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(places)
}

// IncludedVAT devuelve el IVA contenido en un monto con impuesto incluido,
// redondeado a 2 decimales: round(total - total/1.13, 2).
func IncludedVAT(total decimal.Decimal) decimal.Decimal {
	return Round(total.Sub(total.DivRound(VATFactor, 16)), 2)
}

// WithoutVAT devuelve round(amount/1.13, places).
func WithoutVAT(amount decimal.Decimal, places int32) decimal.Decimal {
	return Round(amount.DivRound(VATFactor, 16), places)
}
