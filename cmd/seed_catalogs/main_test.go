package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivities_Latin1(t *testing.T) {
	// "Cría" y "Fabricación" en ISO-8859-1.
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<catalogo>\n" +
		"  <actividad codigo=\"01460\" descripcion=\"Cr\xeda de cerdos\"/>\n" +
		"  <grupo>\n" +
		"    <actividad><codigo>10710</codigo><descripcion>Fabricaci\xf3n  de pan</descripcion></actividad>\n" +
		"  </grupo>\n" +
		"  <actividad codigo=\"\" descripcion=\"sin código\"/>\n" +
		"</catalogo>"

	got, err := parseActivities(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, []activity{
		{Code: "01460", Description: "Cría de cerdos"},
		{Code: "10710", Description: "Fabricación de pan"},
	}, got)
}

func TestParseActivities_SinActividades(t *testing.T) {
	_, err := parseActivities(strings.NewReader(`<catalogo/>`))
	assert.Error(t, err)
}

func TestWriteSQL(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeSQL(&b, []activity{
		{Code: "01460", Description: "Cría de cerdos"},
		{Code: "47190", Description: "Venta de productos 'varios'"},
	}))

	out := b.String()
	assert.Contains(t, out, "  ('01460', 'Cría de cerdos'),\n")
	assert.Contains(t, out, "  ('47190', 'Venta de productos ''varios''')\n")
	assert.True(t, strings.HasSuffix(out, "ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description;\n"))
}
