package dte

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var unidades = [...]string{"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE",
	"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE", "DIECISÉIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE",
	"VEINTE", "VEINTIUNO", "VEINTIDÓS", "VEINTITRÉS", "VEINTICUATRO", "VEINTICINCO", "VEINTISÉIS",
	"VEINTISIETE", "VEINTIOCHO", "VEINTINUEVE"}

var decenas = [...]string{"", "", "", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA"}

var centenas = [...]string{"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS",
	"SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS"}

// AmountInWords expresa un monto en letras para el campo totalLetras:
// 113.50 -> "CIENTO TRECE 50/100 USD".
func AmountInWords(amount decimal.Decimal) string {
	amount = Round(amount.Abs(), 2)
	whole := amount.Truncate(0)
	cents := amount.Sub(whole).Mul(decimal.NewFromInt(100)).IntPart()

	words := "CERO"
	if n := whole.IntPart(); n > 0 {
		words = integerWords(n)
	}
	return fmt.Sprintf("%s %02d/100 USD", words, cents)
}

func integerWords(n int64) string {
	var parts []string
	if millions := n / 1_000_000; millions > 0 {
		if millions == 1 {
			parts = append(parts, "UN MILLÓN")
		} else {
			parts = append(parts, apocope(integerWords(millions))+" MILLONES")
		}
		n %= 1_000_000
	}
	if thousands := n / 1000; thousands > 0 {
		if thousands == 1 {
			parts = append(parts, "MIL")
		} else {
			parts = append(parts, apocope(hundredsWords(thousands))+" MIL")
		}
		n %= 1000
	}
	if n > 0 {
		parts = append(parts, hundredsWords(n))
	}
	return strings.Join(parts, " ")
}

func hundredsWords(n int64) string {
	if n == 100 {
		return "CIEN"
	}
	var parts []string
	if c := n / 100; c > 0 {
		parts = append(parts, centenas[c])
	}
	rest := n % 100
	switch {
	case rest == 0:
	case rest < 30:
		parts = append(parts, unidades[rest])
	default:
		tens := decenas[rest/10]
		if u := rest % 10; u > 0 {
			tens += " Y " + unidades[u]
		}
		parts = append(parts, tens)
	}
	return strings.Join(parts, " ")
}

// apocope: "VEINTIUNO MIL" -> "VEINTIÚN MIL", "UNO MIL" -> "UN MIL".
func apocope(s string) string {
	switch {
	case strings.HasSuffix(s, "VEINTIUNO"):
		return strings.TrimSuffix(s, "VEINTIUNO") + "VEINTIÚN"
	case strings.HasSuffix(s, "UNO"):
		return strings.TrimSuffix(s, "UNO") + "UN"
	}
	return s
}
