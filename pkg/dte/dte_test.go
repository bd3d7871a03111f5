package dte_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// ── Redondeo ─────────────────────────────────────────────────────────────────

func TestRoundFloat_MitadSeAlejaDeCero(t *testing.T) {
	assert.True(t, dte.RoundFloat(2.005, 2).Equal(dec(t, "2.01")), "2.005 debe redondear a 2.01")
	assert.True(t, dte.RoundFloat(1.005, 2).Equal(dec(t, "1.01")))
	assert.True(t, dte.RoundFloat(-2.005, 2).Equal(dec(t, "-2.01")))
	assert.True(t, dte.RoundFloat(2.004, 2).Equal(dec(t, "2.00")))
}

func TestRound_Idempotente(t *testing.T) {
	for _, x := range []float64{0.125, 2.005, 17.699115, 99.995, 1234.5678} {
		once := dte.RoundFloat(x, 2)
		twice := dte.Round(once, 2)
		assert.True(t, once.Equal(twice), "round(round(%v)) debe ser igual a round(%v)", x, x)
	}
}

func TestIncludedVAT(t *testing.T) {
	assert.True(t, dte.IncludedVAT(dec(t, "113")).Equal(dec(t, "13")))
	assert.True(t, dte.IncludedVAT(dec(t, "20")).Equal(dec(t, "2.30")))
	assert.True(t, dte.WithoutVAT(dec(t, "113"), 2).Equal(dec(t, "100")))
}

// ── Cadenas ──────────────────────────────────────────────────────────────────

func TestOptionalString(t *testing.T) {
	assert.Nil(t, dte.OptionalString(""))
	assert.Nil(t, dte.OptionalString("   "))
	got := dte.OptionalString("  Tienda   La  Esquina ")
	require.NotNil(t, got)
	assert.Equal(t, "Tienda La Esquina", *got)
}

func TestFormatDUI(t *testing.T) {
	assert.Equal(t, "01234567-8", dte.FormatDUI("012345678"))
	assert.Equal(t, "01234567-8", dte.FormatDUI(" 012345678 "))
	assert.Equal(t, "01234567-8", dte.FormatDUI("01234567-8"), "ya formateado se pasa recortado")
	assert.Equal(t, "12345", dte.FormatDUI(" 12345 "))
}

// ── Ambiente ─────────────────────────────────────────────────────────────────

func TestAmbienteFor(t *testing.T) {
	assert.Equal(t, dte.AmbienteProduction, dte.AmbienteFor("production"))
	assert.Equal(t, dte.AmbienteProduction, dte.AmbienteFor(" PRODUCTION "))
	assert.Equal(t, dte.AmbienteTest, dte.AmbienteFor("test"))
	assert.Equal(t, dte.AmbienteTest, dte.AmbienteFor(""))
	assert.Equal(t, dte.BaseURLProduction, dte.BaseURLFor("production"))
	assert.Equal(t, dte.BaseURLTest, dte.BaseURLFor("staging"))
}

func TestIsAccepted(t *testing.T) {
	assert.True(t, dte.IsAccepted("PROCESADO"))
	assert.True(t, dte.IsAccepted("recibido"))
	assert.False(t, dte.IsAccepted("RECHAZADO"))
	assert.False(t, dte.IsAccepted(""))
}

// ── Monto en letras ──────────────────────────────────────────────────────────

func TestAmountInWords(t *testing.T) {
	cases := map[string]string{
		"0":         "CERO 00/100 USD",
		"1":         "UNO 00/100 USD",
		"100":       "CIEN 00/100 USD",
		"113.50":    "CIENTO TRECE 50/100 USD",
		"21000":     "VEINTIÚN MIL 00/100 USD",
		"1001.01":   "MIL UNO 01/100 USD",
		"2345678.9": "DOS MILLONES TRESCIENTOS CUARENTA Y CINCO MIL SEISCIENTOS SETENTA Y OCHO 90/100 USD",
		"100000":    "CIEN MIL 00/100 USD",
	}
	for in, want := range cases {
		assert.Equal(t, want, dte.AmountInWords(dec(t, in)), "monto %s", in)
	}
}
