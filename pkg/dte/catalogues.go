// Package dte contiene catálogos y utilidades del sistema de transmisión de
// Documentos Tributarios Electrónicos del Ministerio de Hacienda (El Salvador).
package dte

import "strings"

// =============================================================================
// CAT-001 - Ambiente de destino
// =============================================================================

const (
	AmbienteTest       = "00" // Modo prueba
	AmbienteProduction = "01" // Modo producción

	EnvironmentProduction = "production"
	EnvironmentTest       = "test"
)

// Base URLs del servicio de recepción.
const (
	BaseURLTest       = "https://apitest.dtes.mh.gob.sv"
	BaseURLProduction = "https://api.dtes.mh.gob.sv"
)

// AmbienteFor devuelve el código de ambiente para el entorno configurado.
// Cualquier valor distinto de "production" se trata como pruebas.
func AmbienteFor(environment string) string {
	if strings.EqualFold(strings.TrimSpace(environment), EnvironmentProduction) {
		return AmbienteProduction
	}
	return AmbienteTest
}

// BaseURLFor devuelve la URL base del servicio para el entorno configurado.
func BaseURLFor(environment string) string {
	if AmbienteFor(environment) == AmbienteProduction {
		return BaseURLProduction
	}
	return BaseURLTest
}

// =============================================================================
// CAT-002 - Tipo de documento
// =============================================================================

const (
	CodeFactura                = "01"
	CodeCreditoFiscal          = "03"
	CodeNotaRemision           = "04"
	CodeNotaCredito            = "05"
	CodeNotaDebito             = "06"
	CodeComprobanteLiquidacion = "08"
	CodeFacturaExportacion     = "11"
	CodeSujetoExcluido         = "14"
)

// =============================================================================
// CAT-022 - Tipo de documento de identificación del receptor
// =============================================================================

const (
	ReceiverDocNIT   = "36"
	ReceiverDocDUI   = "13"
	ReceiverDocOther = "37"
)

// =============================================================================
// CAT-015 / CAT-017 - Tributos y formas de pago
// =============================================================================

const (
	TributeIVA            = "20"
	TributeIVADescription = "Impuesto al Valor Agregado 13%"

	PaymentOther = "05" // Transferencia / depósito bancario

	CondicionContado = 1
	CondicionCredito = 2
	CondicionOtro    = 3
)

// Valores por defecto de receptores del exterior.
const (
	DefaultCountryCode = "US"
	DefaultCountryName = "Estados Unidos"
	PersonTypeNatural  = 1
	PersonTypeJuridica = 2
)

// Establecimiento y punto de venta cuando el emisor no tiene códigos asignados.
const (
	DefaultEstablishmentCode = "M001"
	DefaultPOSCode           = "P001"
)

const (
	CurrencyUSD        = "USD"
	ModeloPrevio       = 1 // Modelo de facturación previo
	OperacionNormal    = 1 // Transmisión normal
	UnitMeasureUnidad  = 59
	ItemTypeBienes     = 1
	EstablishmentCasa  = "02"
	InvalidationSchema = 2
	ContingencySchema  = 3
)

// =============================================================================
// Estados de respuesta de recepción
// =============================================================================

const (
	StatusProcesado = "PROCESADO"
	StatusRecibido  = "RECIBIDO"
	StatusRechazado = "RECHAZADO"
)

// acceptedStatuses estados que el MH devuelve para un documento aceptado.
var acceptedStatuses = map[string]bool{
	StatusProcesado: true,
	StatusRecibido:  true,
}

// IsAccepted indica si el estado devuelto por el servicio equivale a aceptación.
func IsAccepted(status string) bool {
	return acceptedStatuses[strings.ToUpper(strings.TrimSpace(status))]
}
