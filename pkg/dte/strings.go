package dte

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean recorta espacios, colapsa espacios internos y normaliza a NFC.
// El validador del MH compara longitudes en caracteres, no en bytes.
func Clean(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// OptionalString devuelve nil cuando s está vacío (o solo tiene espacios),
// o un puntero al texto limpio en caso contrario.
func OptionalString(s string) *string {
	c := Clean(s)
	if c == "" {
		return nil
	}
	return &c
}

// FirstNonEmpty devuelve el primer valor no vacío después de limpiar.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if c := Clean(v); c != "" {
			return c
		}
	}
	return ""
}

// DigitsOnly elimina todo lo que no sea dígito.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// FormatDUI devuelve el DUI como ########-# cuando tiene exactamente 9 dígitos;
// en otro caso devuelve el valor recortado tal cual.
func FormatDUI(dui string) string {
	trimmed := strings.TrimSpace(dui)
	if len(trimmed) == 9 && DigitsOnly(trimmed) == trimmed {
		return trimmed[:8] + "-" + trimmed[8:]
	}
	return trimmed
}
