package repository

import (
	"context"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// DTERecord identificadores devueltos por el MH tras una transmisión aceptada.
type DTERecord struct {
	InvoiceID      string
	DocumentCode   string
	ControlNumber  string
	GenerationCode string
	ReceptionSeal  string
	Status         string
	ProcessedAt    string // fhProcesamiento tal como lo devuelve el MH
	Document       []byte // JSON transmitido
}

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
type InvoiceRepository interface {
	// GetByID devuelve la factura con líneas y totales; nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// MarkAccepted escribe número de control, código de generación, sello y estado.
	MarkAccepted(ctx context.Context, rec DTERecord) error
	// UpdateDTEStatus cambia solo el estado DTE (ej. INVALIDADO).
	UpdateDTEStatus(ctx context.Context, id, status string) error
}
