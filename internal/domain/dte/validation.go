package dte

import (
	"errors"
	"fmt"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

// ErrInvalidDocument agrupa errores de validación previos a la transmisión.
var ErrInvalidDocument = fmt.Errorf("%w: documento DTE inválido", domain.ErrInvalidInput)

// ValidateDocument revisa reglas que el MH rechazaría con observaciones, antes de gastar
// un intento de transmisión. Devuelve todos los problemas encontrados en un solo error.
func ValidateDocument(doc *TaxDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrInvalidDocument)
	}
	var errs []error

	if doc.Emisor.Nit == "" {
		errs = append(errs, errors.New("emisor sin NIT"))
	}
	if len(doc.CuerpoDocumento) == 0 {
		errs = append(errs, errors.New("el documento debe tener al menos una línea"))
	}
	for _, it := range doc.CuerpoDocumento {
		if !it.Cantidad.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: cantidad debe ser mayor que cero", it.NumItem))
		}
		if it.PrecioUni.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: precio unitario negativo", it.NumItem))
		}
	}

	switch doc.Identificacion.TipoDte {
	case pkgdte.CodeCreditoFiscal:
		if doc.Receptor == nil {
			errs = append(errs, errors.New("crédito fiscal sin receptor"))
		} else if _, ok := doc.Receptor.Nrc.Get(); !ok {
			errs = append(errs, errors.New("crédito fiscal: el receptor debe tener NRC"))
		}
	case pkgdte.CodeNotaCredito, pkgdte.CodeNotaDebito:
		if related, ok := doc.DocumentoRelacionado.Get(); !ok || len(related) == 0 {
			errs = append(errs, errors.New("las notas de crédito y débito requieren documento relacionado"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}
