package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
)

// SubmitOptions opciones del envío iniciado desde la API.
type SubmitOptions struct {
	Attachment       []byte
	RenderAttachment bool
}

// SubmissionService registra un orquestador por factura y expone los eventos
// de cuenta, invalidación y contingencia del emisor.
type SubmissionService struct {
	deps Dependencies

	mu      sync.Mutex
	running map[string]*DTEOrchestrator
}

// NewSubmissionService construye el servicio. El guard se comparte entre todos los orquestadores.
func NewSubmissionService(deps Dependencies) *SubmissionService {
	if deps.Guard == nil {
		deps.Guard = NewMemoryGuard()
	}
	return &SubmissionService{deps: deps, running: make(map[string]*DTEOrchestrator)}
}

// Submit crea el orquestador de la factura y lanza el primer envío.
func (s *SubmissionService) Submit(ctx context.Context, companyID, invoiceID string, opts SubmitOptions) (Snapshot, error) {
	s.mu.Lock()
	if o, ok := s.running[invoiceID]; ok {
		s.mu.Unlock()
		if o.CompanyID() != companyID {
			return Snapshot{}, domain.ErrNotFound
		}
		snap := o.Snapshot()
		if !snap.State.Terminal() {
			return snap, ErrAlreadySubmitting
		}
		return snap, fmt.Errorf("%w: el envío terminó en %s; use reintentar o cerrar", domain.ErrConflict, snap.State)
	}
	o := NewDTEOrchestrator(s.deps, SubmissionRequest{
		InvoiceID:        invoiceID,
		CompanyID:        companyID,
		Attachment:       opts.Attachment,
		RenderAttachment: opts.RenderAttachment,
	})
	s.running[invoiceID] = o
	s.mu.Unlock()

	if err := o.Start(ctx); err != nil {
		s.mu.Lock()
		delete(s.running, invoiceID)
		s.mu.Unlock()
		return o.Snapshot(), err
	}
	return o.Snapshot(), nil
}

// Retry reintenta un envío en error.
func (s *SubmissionService) Retry(ctx context.Context, companyID, invoiceID string) (Snapshot, error) {
	o, err := s.lookup(companyID, invoiceID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := o.Retry(ctx); err != nil {
		return o.Snapshot(), err
	}
	return o.Snapshot(), nil
}

// Status estado actual del envío.
func (s *SubmissionService) Status(companyID, invoiceID string) (Snapshot, error) {
	o, err := s.lookup(companyID, invoiceID)
	if err != nil {
		return Snapshot{}, err
	}
	return o.Snapshot(), nil
}

// Subscribe flujo de estados del envío.
func (s *SubmissionService) Subscribe(companyID, invoiceID string) (<-chan Snapshot, func(), error) {
	o, err := s.lookup(companyID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := o.Subscribe()
	return ch, cancel, nil
}

// Close descarta el orquestador terminado.
func (s *SubmissionService) Close(companyID, invoiceID string) error {
	o, err := s.lookup(companyID, invoiceID)
	if err != nil {
		return err
	}
	if err := o.Close(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.running[invoiceID] == o {
		delete(s.running, invoiceID)
	}
	s.mu.Unlock()
	return nil
}

func (s *SubmissionService) lookup(companyID, invoiceID string) (*DTEOrchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.running[invoiceID]
	if !ok || o.CompanyID() != companyID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ── Eventos y cuenta ──────────────────────────────────────────────────────────

// Invalidate anula ante el MH una factura ya aceptada y marca su estado INVALIDADO.
func (s *SubmissionService) Invalidate(ctx context.Context, companyID, invoiceID string, req domdte.InvalidationRequest) (*infradte.SubmissionResult, error) {
	inv, company, err := s.loadOwned(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	doc, err := s.deps.Assembler.AssembleInvalidation(inv, company, req)
	if err != nil {
		return nil, err
	}
	cred, err := s.credentials(ctx, company, inv)
	if err != nil {
		return nil, err
	}
	res, err := s.deps.Transport.Invalidate(ctx, doc, cred)
	if err != nil {
		return nil, err
	}
	if !res.Accepted() {
		return res, fmt.Errorf("%w: %s", ErrNotAccepted, res.Detail())
	}
	if err := s.deps.Invoices.UpdateDTEStatus(ctx, invoiceID, entity.DTEStatusInvalidated); err != nil {
		return res, fmt.Errorf("actualizar estado: %w", err)
	}
	return res, nil
}

// ReportContingency informa los DTE emitidos durante una falla de conexión.
func (s *SubmissionService) ReportContingency(ctx context.Context, companyID string, invoiceIDs []string, req domdte.ContingencyRequest) (*infradte.SubmissionResult, error) {
	company, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	invoices := make([]*entity.Invoice, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		inv, _, err := s.loadOwned(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	report, err := s.deps.Assembler.AssembleContingency(company, invoices, req)
	if err != nil {
		return nil, err
	}
	cred, err := s.credentials(ctx, company, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.deps.Transport.ReportContingency(ctx, report, cred)
	if err != nil {
		return nil, err
	}
	if !res.Accepted() {
		return res, fmt.Errorf("%w: %s", ErrNotAccepted, res.Detail())
	}
	return res, nil
}

// ValidateCredentials verifica NIT y clave secreta de la empresa ante el MH.
func (s *SubmissionService) ValidateCredentials(ctx context.Context, companyID string) (bool, error) {
	company, err := s.company(ctx, companyID)
	if err != nil {
		return false, err
	}
	cred, err := s.credentials(ctx, company, nil)
	if err != nil {
		return false, err
	}
	return s.deps.Transport.ValidateCredentials(ctx, cred)
}

// DeactivateAccount desactiva la cuenta del emisor ante el MH.
func (s *SubmissionService) DeactivateAccount(ctx context.Context, companyID string) error {
	company, err := s.company(ctx, companyID)
	if err != nil {
		return err
	}
	cred, err := s.credentials(ctx, company, nil)
	if err != nil {
		return err
	}
	return s.deps.Transport.DeactivateAccount(ctx, cred)
}

// DeleteAccount elimina la cuenta del emisor ante el MH.
func (s *SubmissionService) DeleteAccount(ctx context.Context, companyID string) error {
	company, err := s.company(ctx, companyID)
	if err != nil {
		return err
	}
	cred, err := s.credentials(ctx, company, nil)
	if err != nil {
		return err
	}
	return s.deps.Transport.DeleteAccount(ctx, cred)
}

func (s *SubmissionService) loadOwned(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, *entity.Company, error) {
	inv, err := s.deps.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil || inv.CompanyID != companyID {
		return nil, nil, domain.ErrNotFound
	}
	company, err := s.company(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	return inv, company, nil
}

func (s *SubmissionService) company(ctx context.Context, companyID string) (*entity.Company, error) {
	company, err := s.deps.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrMissingIssuer
	}
	return company, nil
}

func (s *SubmissionService) credentials(ctx context.Context, company *entity.Company, inv *entity.Invoice) (infradte.Credentials, error) {
	return s.deps.Credentials.Credentials(ctx, company, inv)
}
