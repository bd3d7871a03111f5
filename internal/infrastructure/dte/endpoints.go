package dte

import pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"

// Rutas relativas a la URL base del ambiente.
const (
	PathSubmitDefault       = "/dte/recepcion"
	PathSubmitExcluded      = "/dte/sujeto-excluido/recepcion"
	PathSubmitInvoice       = "/dte/factura/recepcion"
	PathSubmitSettlement    = "/dte/comprobante-liquidacion/recepcion"
	PathValidateCertificate = "/certificado/validar"
	PathAttachment          = "/dte/representacion-grafica"
	PathValidateCredentials = "/credenciales/validar"
	PathDeactivateAccount   = "/cuenta/desactivar"
	PathDeleteAccount       = "/cuenta/eliminar"
	PathInvalidation        = "/dte/anulacion"
	PathContingency         = "/dte/contingencia"
)

// SubmitPath ruta de recepción según el código de tipo de documento.
func SubmitPath(code string) string {
	switch code {
	case pkgdte.CodeSujetoExcluido:
		return PathSubmitExcluded
	case pkgdte.CodeFactura:
		return PathSubmitInvoice
	case pkgdte.CodeComprobanteLiquidacion:
		return PathSubmitSettlement
	default:
		return PathSubmitDefault
	}
}
