package dte

import (
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

// TypeInfo código CAT-002 y versión de esquema de una categoría.
type TypeInfo struct {
	Code    string
	Version int
}

// documentTypes tabla fija; la primera entrada es el valor por defecto.
var documentTypes = []struct {
	category entity.DocumentType
	info     TypeInfo
}{
	{entity.DocumentFactura, TypeInfo{pkgdte.CodeFactura, 1}},
	{entity.DocumentCreditoFiscal, TypeInfo{pkgdte.CodeCreditoFiscal, 3}},
	{entity.DocumentNotaRemision, TypeInfo{pkgdte.CodeNotaRemision, 3}},
	{entity.DocumentNotaCredito, TypeInfo{pkgdte.CodeNotaCredito, 3}},
	{entity.DocumentNotaDebito, TypeInfo{pkgdte.CodeNotaDebito, 3}},
	{entity.DocumentComprobanteLiquidacion, TypeInfo{pkgdte.CodeComprobanteLiquidacion, 1}},
	{entity.DocumentFacturaExportacion, TypeInfo{pkgdte.CodeFacturaExportacion, 1}},
	{entity.DocumentSujetoExcluido, TypeInfo{pkgdte.CodeSujetoExcluido, 1}},
}

// TypeInfoFor devuelve (código, versión) para la categoría; categorías desconocidas
// se tratan como factura.
func TypeInfoFor(t entity.DocumentType) TypeInfo {
	for _, dt := range documentTypes {
		if dt.category == t {
			return dt.info
		}
	}
	return documentTypes[0].info
}

// receiverShape forma del bloque receptor según la categoría.
type receiverShape int

const (
	receiverStandard receiverShape = iota // tipoDocumento/numDocumento
	receiverBusiness                      // nit/nrc/actividad (CCF, notas)
	receiverExport                        // país, tipoPersona, complemento duplicado
)

func shapeFor(code string) receiverShape {
	switch code {
	case pkgdte.CodeCreditoFiscal, pkgdte.CodeNotaCredito, pkgdte.CodeNotaDebito:
		return receiverBusiness
	case pkgdte.CodeFacturaExportacion:
		return receiverExport
	}
	return receiverStandard
}
