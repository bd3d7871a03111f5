package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Ensamblado del DTE.
	ErrMissingCustomer = errors.New("la factura no tiene un cliente asociado")
	ErrMissingTotals   = errors.New("la factura no tiene totales calculados")
	ErrMissingIssuer   = errors.New("no se encontró la empresa emisora")

	// Credenciales de transmisión.
	ErrCertificateMissing = errors.New("no hay certificado configurado para la empresa")
	ErrCertificateInvalid = errors.New("el certificado fue rechazado por el servicio de Hacienda")
)
