package billing

import (
	"context"

	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
)

// Transport puerto de salida hacia el servicio de recepción del MH.
// La implementación concreta es *infradte.Client; para tests se inyecta un fake.
type Transport interface {
	ValidateCertificate(ctx context.Context, cred infradte.Credentials) (bool, error)
	SubmitDocument(ctx context.Context, doc *domdte.TaxDocument, cred infradte.Credentials) (*infradte.SubmissionResult, error)
	UploadAttachment(ctx context.Context, generationCode string, pdf []byte, cred infradte.Credentials) error

	ValidateCredentials(ctx context.Context, cred infradte.Credentials) (bool, error)
	DeactivateAccount(ctx context.Context, cred infradte.Credentials) error
	DeleteAccount(ctx context.Context, cred infradte.Credentials) error
	Invalidate(ctx context.Context, doc *domdte.InvalidationDocument, cred infradte.Credentials) (*infradte.SubmissionResult, error)
	ReportContingency(ctx context.Context, report *domdte.ContingencyReport, cred infradte.Credentials) (*infradte.SubmissionResult, error)
}

// SubmissionRecorder persiste de una sola vez el resultado aceptado (factura + bitácora).
type SubmissionRecorder interface {
	CompleteSubmission(ctx context.Context, rec repository.DTERecord) error
}

// CredentialsProvider resuelve las credenciales de transmisión del emisor.
type CredentialsProvider interface {
	Credentials(ctx context.Context, company *entity.Company, inv *entity.Invoice) (infradte.Credentials, error)
}

// AttachmentRenderer genera la representación gráfica (PDF) de un DTE aceptado.
type AttachmentRenderer interface {
	RenderDTE(ctx context.Context, doc *domdte.TaxDocument, result *infradte.SubmissionResult) ([]byte, error)
}

// SubmissionGuard impide que dos envíos de la misma factura corran a la vez, aun entre
// orquestadores o instancias distintas. Acquire devuelve ErrAlreadySubmitting si está tomada.
type SubmissionGuard interface {
	Acquire(ctx context.Context, invoiceID string) (release func(), err error)
}

// PipelineObserver recibe transiciones y resultados (métricas).
type PipelineObserver interface {
	ObserveTransition(state string, progress int)
	ObserveOutcome(outcome string)
}
