package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ billing.SubmissionRecorder = (*TxRunner)(nil)

// TxRunner ejecuta la persistencia del DTE aceptado dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// CompleteSubmission marca la factura como aceptada y guarda el JSON transmitido
// en dte_submissions. Ambas escrituras se confirman juntas o ninguna.
func (r *TxRunner) CompleteSubmission(ctx context.Context, rec repository.DTERecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := NewInvoiceRepository(tx).MarkAccepted(ctx, rec); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO dte_submissions (id, invoice_id, document_code, control_number, generation_code,
		                             reception_seal, status, processed_at, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		uuid.NewString(), rec.InvoiceID, rec.DocumentCode, rec.ControlNumber, rec.GenerationCode,
		rec.ReceptionSeal, rec.Status, rec.ProcessedAt, rec.Document,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert dte submission %s: %w", rec.GenerationCode, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert dte submission: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
