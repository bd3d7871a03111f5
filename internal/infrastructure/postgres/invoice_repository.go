package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// processedAtLayout formato de fhProcesamiento en las respuestas del MH.
const processedAtLayout = "02/01/2006 15:04:05"

// elSalvador zona fija UTC-6 (sin horario de verano).
var elSalvador = time.FixedZone("America/El_Salvador", -6*60*60)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// GetByID obtiene la factura con líneas, totales y documentos relacionados.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `
		SELECT id, company_id, COALESCE(customer_id::text, ''), document_type, number, issued_at,
		       payment_condition, subtotal, tax, total, total_without_tax, vat_withheld, is_ccf_totals,
		       COALESCE(control_number, ''), COALESCE(generation_code, ''), COALESCE(reception_seal, ''),
		       dte_status, processed_at, created_at, updated_at
		FROM invoices WHERE id = $1`
	var (
		inv                                     entity.Invoice
		docType                                 string
		subtotal, tax, total, untaxed, withheld decimal.NullDecimal
		isCCF                                   bool
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &docType, &inv.Number, &inv.IssuedAt,
		&inv.PaymentCondition, &subtotal, &tax, &total, &untaxed, &withheld, &isCCF,
		&inv.ControlNumber, &inv.GenerationCode, &inv.ReceptionSeal,
		&inv.DTEStatus, &inv.ProcessedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Type = entity.DocumentType(docType)
	// Sin total la factura no tiene totales calculados.
	if total.Valid {
		inv.Totals = &entity.InvoiceTotals{
			Subtotal:        subtotal.Decimal,
			Tax:             tax.Decimal,
			Total:           total.Decimal,
			TotalWithoutTax: untaxed.Decimal,
			VATWithheld:     withheld.Decimal,
			IsCCFTotals:     isCCF,
		}
	}

	if inv.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if inv.RelatedDocuments, err = r.related(ctx, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepo) items(ctx context.Context, invoiceID string) ([]entity.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, COALESCE(product_id::text, ''), description, COALESCE(product_code, ''),
		       unit_measure, quantity, unit_price
		FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	var list []entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Description, &it.ProductCode,
			&it.UnitMeasure, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) related(ctx context.Context, invoiceID string) ([]entity.RelatedDocument, error) {
	query := `
		SELECT document_code, generation_type, number, issued_at
		FROM invoice_related_documents WHERE invoice_id = $1 ORDER BY issued_at`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list related documents: %w", err)
	}
	defer rows.Close()
	var list []entity.RelatedDocument
	for rows.Next() {
		var d entity.RelatedDocument
		if err := rows.Scan(&d.DocumentCode, &d.GenerationType, &d.Number, &d.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan related document: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// MarkAccepted guarda los identificadores del DTE aceptado.
func (r *InvoiceRepo) MarkAccepted(ctx context.Context, rec repository.DTERecord) error {
	query := `
		UPDATE invoices
		SET control_number = $2, generation_code = $3, reception_seal = $4, dte_status = $5,
		    processed_at = $6, updated_at = $7
		WHERE id = $1`
	now := time.Now()
	tag, err := r.q.Exec(ctx, query, rec.InvoiceID,
		nullIfEmpty(rec.ControlNumber), nullIfEmpty(rec.GenerationCode), nullIfEmpty(rec.ReceptionSeal),
		rec.Status, parseProcessedAt(rec.ProcessedAt, now), now,
	)
	if err != nil {
		return fmt.Errorf("mark invoice accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark invoice accepted: factura %s no existe", rec.InvoiceID)
	}
	return nil
}

// UpdateDTEStatus cambia el estado DTE de la factura.
func (r *InvoiceRepo) UpdateDTEStatus(ctx context.Context, id, status string) error {
	_, err := r.q.Exec(ctx, `UPDATE invoices SET dte_status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("update dte status: %w", err)
	}
	return nil
}

// parseProcessedAt interpreta fhProcesamiento; si no se puede, usa fallback.
func parseProcessedAt(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.ParseInLocation(processedAtLayout, s, elSalvador)
	if err != nil {
		return fallback
	}
	return t
}
