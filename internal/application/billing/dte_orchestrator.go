package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// Errores del orquestador.
var (
	ErrNotAccepted       = errors.New("el documento no fue aceptado por Hacienda")
	ErrAlreadySubmitting = errors.New("la factura ya se está transmitiendo")
	ErrRetryNotAllowed   = errors.New("solo se puede reintentar un envío con error")
	ErrCloseNotAllowed   = errors.New("el envío solo se puede cerrar al completarse o fallar")
	ErrClosed            = errors.New("el envío ya fue cerrado")
)

// State etapa del envío.
type State string

const (
	StateIdle                  State = "idle"
	StateValidatingCertificate State = "validating-certificate"
	StatePreparingDocument     State = "preparing-document"
	StateSubmittingDocument    State = "submitting-document"
	StateUploadingAttachment   State = "uploading-attachment"
	StateCompleted             State = "completed"
	StateError                 State = "error"
)

// Progress valor fijo de avance de la etapa; error e idle no tienen valor propio.
func (s State) Progress() int {
	switch s {
	case StateValidatingCertificate:
		return 20
	case StatePreparingDocument:
		return 40
	case StateSubmittingDocument:
		return 70
	case StateUploadingAttachment:
		return 90
	case StateCompleted:
		return 100
	}
	return 0
}

// Terminal true en completed y error.
func (s State) Terminal() bool { return s == StateCompleted || s == StateError }

// Snapshot estado observable de un envío.
type Snapshot struct {
	InvoiceID      string    `json:"invoice_id"`
	State          State     `json:"state"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message,omitempty"`
	Attempt        int       `json:"attempt"`
	ControlNumber  string    `json:"control_number,omitempty"`
	GenerationCode string    `json:"generation_code,omitempty"`
	ReceptionSeal  string    `json:"reception_seal,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
	Err            error     `json:"-"`
}

// SubmissionRequest parámetros de un envío.
type SubmissionRequest struct {
	InvoiceID string
	CompanyID string // si no es vacío, la factura debe pertenecer a esta empresa
	// Attachment representación gráfica ya generada; tiene prioridad sobre RenderAttachment.
	Attachment       []byte
	RenderAttachment bool
}

// Dependencies colaboradores del orquestador. Products, Activities, Renderer, Guard y Observer son opcionales.
type Dependencies struct {
	Invoices    repository.InvoiceRepository
	Companies   repository.CompanyRepository
	Customers   repository.CustomerRepository
	Products    repository.ProductRepository
	Activities  repository.ActivityCatalogRepository
	Assembler   *domdte.Assembler
	Transport   Transport
	Recorder    SubmissionRecorder
	Credentials CredentialsProvider
	Renderer    AttachmentRenderer
	Guard       SubmissionGuard
	Observer    PipelineObserver
	Log         *logger.Logger
}

// acceptance documento aceptado por el MH en un intento que no llegó a completed.
// Un reintento lo reutiliza en lugar de volver a transmitir; recorded indica si la
// aceptación ya quedó en el registro.
type acceptance struct {
	doc      *domdte.TaxDocument
	result   *infradte.SubmissionResult
	recorded bool
}

// DTEOrchestrator conduce la transmisión de una factura:
//
//	validating-certificate → preparing-document → submitting-document → uploading-attachment → completed
//
// Cualquier etapa puede terminar en error; Retry reinicia siempre desde validating-certificate.
// El pipeline corre en una goroutine propia desacoplada de la cancelación del llamador.
type DTEOrchestrator struct {
	deps Dependencies
	req  SubmissionRequest
	log  *logger.Logger

	mu       sync.Mutex
	snap     Snapshot
	running  bool
	closed   bool
	done     chan struct{}
	accepted *acceptance
	subs     map[int]chan Snapshot
	nextSub  int
}

// NewDTEOrchestrator construye el orquestador de una factura.
func NewDTEOrchestrator(deps Dependencies, req SubmissionRequest) *DTEOrchestrator {
	if deps.Guard == nil {
		deps.Guard = NewMemoryGuard()
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	done := make(chan struct{})
	close(done)
	return &DTEOrchestrator{
		deps: deps,
		req:  req,
		log:  deps.Log,
		snap: Snapshot{InvoiceID: req.InvoiceID, State: StateIdle, UpdatedAt: time.Now()},
		done: done,
		subs: make(map[int]chan Snapshot),
	}
}

// InvoiceID factura que transmite este orquestador.
func (o *DTEOrchestrator) InvoiceID() string { return o.req.InvoiceID }

// CompanyID empresa dueña del envío.
func (o *DTEOrchestrator) CompanyID() string { return o.req.CompanyID }

// Start lanza el primer envío en segundo plano.
func (o *DTEOrchestrator) Start(ctx context.Context) error {
	release, err := o.begin(ctx, StateIdle)
	if err != nil {
		return err
	}
	o.transition(StateValidatingCertificate)
	go o.run(context.WithoutCancel(ctx), release)
	return nil
}

// Run ejecuta el primer envío y espera su estado terminal.
func (o *DTEOrchestrator) Run(ctx context.Context) (Snapshot, error) {
	release, err := o.begin(ctx, StateIdle)
	if err != nil {
		return o.Snapshot(), err
	}
	o.transition(StateValidatingCertificate)
	snap := o.run(context.WithoutCancel(ctx), release)
	return snap, snap.Err
}

// Retry reinicia desde validating-certificate; solo se permite en estado error.
func (o *DTEOrchestrator) Retry(ctx context.Context) error {
	release, err := o.begin(ctx, StateError)
	if err != nil {
		return err
	}
	o.transition(StateValidatingCertificate)
	go o.run(context.WithoutCancel(ctx), release)
	return nil
}

// Wait bloquea hasta que el intento en curso termina o ctx se cancela.
func (o *DTEOrchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	select {
	case <-done:
		return o.Snapshot(), nil
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	}
}

// Close libera el orquestador y cierra las suscripciones. No cancela un envío en curso:
// solo se permite en completed o error, y nunca con una aceptación del MH sin registrar.
func (o *DTEOrchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	if o.running || !o.snap.State.Terminal() {
		return ErrCloseNotAllowed
	}
	if o.accepted != nil && !o.accepted.recorded {
		return fmt.Errorf("%w: el documento aceptado aún no está registrado", ErrCloseNotAllowed)
	}
	o.closed = true
	o.accepted = nil
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
	return nil
}

// Snapshot estado actual.
func (o *DTEOrchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Subscribe devuelve un canal que recibe el estado actual y cada transición posterior.
// Un suscriptor lento pierde estados intermedios pero siempre recibe el más reciente.
// El canal se cierra con Close o con cancel.
func (o *DTEOrchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := make(chan Snapshot, 8)
	ch <- o.snap
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if c, ok := o.subs[id]; ok {
			close(c)
			delete(o.subs, id)
		}
	}
}

// begin valida el estado de partida y toma el guard de la factura. El guard puede ser
// remoto: se toma sin o.mu, con running ya reservado.
func (o *DTEOrchestrator) begin(ctx context.Context, from State) (func(), error) {
	o.mu.Lock()
	if err := o.checkStartLocked(from); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.running = true
	o.mu.Unlock()

	release, err := o.deps.Guard.Acquire(ctx, o.req.InvoiceID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.running = false
		return nil, err
	}
	o.done = make(chan struct{})
	o.snap.Attempt++
	o.snap.Err = nil
	o.snap.Message = ""
	return release, nil
}

func (o *DTEOrchestrator) checkStartLocked(from State) error {
	switch {
	case o.closed:
		return ErrClosed
	case o.running:
		return ErrAlreadySubmitting
	case o.snap.State != from && from == StateError:
		return ErrRetryNotAllowed
	case o.snap.State != from:
		return fmt.Errorf("%w: estado actual %s", domain.ErrConflict, o.snap.State)
	}
	return nil
}

// run ejecuta las etapas en orden y devuelve el estado terminal. Se llama ya en
// validating-certificate para que Start y Retry retornen con el estado actualizado.
func (o *DTEOrchestrator) run(ctx context.Context, release func()) Snapshot {
	defer func() {
		release()
		o.mu.Lock()
		o.running = false
		close(o.done)
		o.mu.Unlock()
	}()

	log := o.log.With().Str("invoice_id", o.req.InvoiceID).Logger()
	log.Info().Int("attempt", o.Snapshot().Attempt).Msg("dte: inicio de transmisión")

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Certificado y credenciales (la transición la hace quien lanza el intento)
	// ═══════════════════════════════════════════════════════════════════════════
	inv, company, cred, err := o.validateCertificate(ctx)
	if err != nil {
		return o.fail(err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Ensamblado (o reutilización del documento ya aceptado)
	// ═══════════════════════════════════════════════════════════════════════════
	o.transition(StatePreparingDocument)
	cached := o.cachedAcceptance()
	var doc *domdte.TaxDocument
	if cached != nil {
		doc = cached.doc
		log.Info().Str("generation_code", doc.Identificacion.CodigoGeneracion).Msg("dte: reutilizando documento aceptado")
	} else if doc, err = o.prepareDocument(ctx, inv, company); err != nil {
		return o.fail(err)
	}
	o.setIdentifiers(doc.Identificacion.NumeroControl, doc.Identificacion.CodigoGeneracion, "")

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Transmisión y registro de la aceptación
	// ═══════════════════════════════════════════════════════════════════════════
	o.transition(StateSubmittingDocument)
	acc := cached
	if acc == nil {
		result, err := o.deps.Transport.SubmitDocument(ctx, doc, cred)
		if err != nil {
			return o.fail(err)
		}
		if !result.Accepted() {
			return o.fail(fmt.Errorf("%w: %s", ErrNotAccepted, result.Detail()))
		}
		acc = &acceptance{doc: doc, result: result}
		o.cacheAcceptance(acc)
		log.Info().Str("status", result.Status).Str("reception_seal", result.ReceptionSeal).Msg("dte: documento aceptado")
	}
	result := acc.result
	o.setIdentifiers(doc.Identificacion.NumeroControl, doc.Identificacion.CodigoGeneracion, result.ReceptionSeal)

	// La aceptación se registra antes del anexo: una factura con sello no se vuelve a transmitir.
	if !o.isRecorded(acc) {
		if err := o.persist(ctx, doc, result); err != nil {
			return o.fail(err)
		}
		o.markRecorded(acc)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Representación gráfica (opcional)
	// ═══════════════════════════════════════════════════════════════════════════
	if pdf, wanted, err := o.attachment(ctx, doc, result); err != nil {
		return o.fail(err)
	} else if wanted {
		o.transition(StateUploadingAttachment)
		if err := o.deps.Transport.UploadAttachment(ctx, generationCode(doc, result), pdf, cred); err != nil {
			return o.fail(fmt.Errorf("subir representación gráfica: %w", err))
		}
	}

	o.cacheAcceptance(nil)
	o.transition(StateCompleted)
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveOutcome("accepted")
	}
	log.Info().Msg("dte: transmisión completada")
	return o.Snapshot()
}

func (o *DTEOrchestrator) validateCertificate(ctx context.Context) (*entity.Invoice, *entity.Company, infradte.Credentials, error) {
	var cred infradte.Credentials
	inv, err := o.deps.Invoices.GetByID(ctx, o.req.InvoiceID)
	if err != nil {
		return nil, nil, cred, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, nil, cred, domain.ErrNotFound
	}
	if o.req.CompanyID != "" && inv.CompanyID != o.req.CompanyID {
		return nil, nil, cred, domain.ErrForbidden
	}
	if o.cachedAcceptance() == nil && inv.ReceptionSeal != "" {
		return nil, nil, cred, fmt.Errorf("%w: la factura ya tiene sello de recepción", domain.ErrConflict)
	}
	company, err := o.deps.Companies.GetByID(ctx, inv.CompanyID)
	if err != nil {
		return nil, nil, cred, fmt.Errorf("obtener empresa: %w", err)
	}
	if company == nil {
		return nil, nil, cred, domain.ErrMissingIssuer
	}
	cred, err = o.deps.Credentials.Credentials(ctx, company, inv)
	if err != nil {
		return nil, nil, cred, err
	}
	if strings.TrimSpace(cred.CertificateKey) == "" || strings.TrimSpace(cred.NIT) == "" {
		return nil, nil, cred, domain.ErrCertificateMissing
	}
	ok, err := o.deps.Transport.ValidateCertificate(ctx, cred)
	if err != nil {
		return nil, nil, cred, fmt.Errorf("validar certificado: %w", err)
	}
	if !ok {
		return nil, nil, cred, domain.ErrCertificateInvalid
	}
	return inv, company, cred, nil
}

// prepareDocument completa líneas y actividades desde los catálogos y ensambla el DTE.
// Trabaja sobre copias; la factura obtenida del repositorio no se modifica.
func (o *DTEOrchestrator) prepareDocument(ctx context.Context, inv *entity.Invoice, company *entity.Company) (*domdte.TaxDocument, error) {
	var customer *entity.Customer
	if inv.CustomerID != "" {
		c, err := o.deps.Customers.GetByID(ctx, inv.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("obtener cliente: %w", err)
		}
		customer = c
	}

	enriched := *inv
	enriched.Items = o.enrichItems(ctx, inv.Items)

	issuer := *company
	issuer.ActivityDescription = o.describeActivity(ctx, company.ActivityCode, company.ActivityDescription)
	if customer != nil {
		c := *customer
		c.ActivityDescription = o.describeActivity(ctx, c.ActivityCode, c.ActivityDescription)
		customer = &c
	}

	doc, err := o.deps.Assembler.Assemble(&enriched, &issuer, customer)
	if err != nil {
		return nil, err
	}
	if err := domdte.ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (o *DTEOrchestrator) enrichItems(ctx context.Context, items []entity.InvoiceItem) []entity.InvoiceItem {
	out := slices.Clone(items)
	if o.deps.Products == nil {
		return out
	}
	for i := range out {
		it := &out[i]
		if it.ProductID == "" || (it.Description != "" && it.ProductCode != "" && it.UnitMeasure != 0) {
			continue
		}
		p, err := o.deps.Products.GetByID(ctx, it.ProductID)
		if err != nil || p == nil {
			o.log.Warn().Err(err).Str("product_id", it.ProductID).Msg("dte: producto no disponible, se usan valores por defecto")
			continue
		}
		if it.Description == "" {
			it.Description = p.Name
		}
		if it.ProductCode == "" {
			it.ProductCode = p.Code
		}
		if it.UnitMeasure == 0 {
			it.UnitMeasure = p.UnitMeasure
		}
	}
	return out
}

func (o *DTEOrchestrator) describeActivity(ctx context.Context, code, current string) string {
	if current != "" || code == "" || o.deps.Activities == nil {
		return current
	}
	desc, err := o.deps.Activities.Describe(ctx, code)
	if err != nil {
		o.log.Warn().Err(err).Str("activity_code", code).Msg("dte: actividad económica no encontrada en catálogo")
		return current
	}
	return desc
}

// attachment devuelve el PDF a subir y si corresponde subirlo.
func (o *DTEOrchestrator) attachment(ctx context.Context, doc *domdte.TaxDocument, result *infradte.SubmissionResult) ([]byte, bool, error) {
	if len(o.req.Attachment) > 0 {
		return o.req.Attachment, true, nil
	}
	if !o.req.RenderAttachment || o.deps.Renderer == nil {
		return nil, false, nil
	}
	pdf, err := o.deps.Renderer.RenderDTE(ctx, doc, result)
	if err != nil {
		return nil, false, fmt.Errorf("generar representación gráfica: %w", err)
	}
	return pdf, true, nil
}

func (o *DTEOrchestrator) persist(ctx context.Context, doc *domdte.TaxDocument, result *infradte.SubmissionResult) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serializar documento: %w", err)
	}
	rec := repository.DTERecord{
		InvoiceID:      o.req.InvoiceID,
		DocumentCode:   doc.Identificacion.TipoDte,
		ControlNumber:  doc.Identificacion.NumeroControl,
		GenerationCode: generationCode(doc, result),
		ReceptionSeal:  result.ReceptionSeal,
		Status:         strings.ToUpper(strings.TrimSpace(result.Status)),
		ProcessedAt:    result.ProcessedAt,
		Document:       raw,
	}
	if err := o.deps.Recorder.CompleteSubmission(ctx, rec); err != nil {
		return fmt.Errorf("registrar transmisión: %w", err)
	}
	return nil
}

func generationCode(doc *domdte.TaxDocument, result *infradte.SubmissionResult) string {
	if result != nil && result.GenerationCode != "" {
		return result.GenerationCode
	}
	return doc.Identificacion.CodigoGeneracion
}

func (o *DTEOrchestrator) cachedAcceptance() *acceptance {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.accepted
}

func (o *DTEOrchestrator) cacheAcceptance(a *acceptance) {
	o.mu.Lock()
	o.accepted = a
	o.mu.Unlock()
}

func (o *DTEOrchestrator) isRecorded(a *acceptance) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return a.recorded
}

func (o *DTEOrchestrator) markRecorded(a *acceptance) {
	o.mu.Lock()
	a.recorded = true
	o.mu.Unlock()
}

func (o *DTEOrchestrator) setIdentifiers(control, generation, seal string) {
	o.mu.Lock()
	o.snap.ControlNumber = control
	o.snap.GenerationCode = generation
	o.snap.ReceptionSeal = seal
	o.mu.Unlock()
}

func (o *DTEOrchestrator) transition(s State) {
	o.mu.Lock()
	o.snap.State = s
	o.snap.Progress = s.Progress()
	o.snap.UpdatedAt = time.Now()
	snap := o.snap
	o.publishLocked(snap)
	o.mu.Unlock()

	o.log.Debug().Str("invoice_id", snap.InvoiceID).Str("state", string(s)).Int("progress", snap.Progress).Msg("dte: transición")
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveTransition(string(s), snap.Progress)
	}
}

// fail pasa a error conservando el progreso de la etapa que falló.
func (o *DTEOrchestrator) fail(err error) Snapshot {
	o.mu.Lock()
	failed := o.snap.State
	o.snap.State = StateError
	o.snap.Message = UserMessage(err)
	o.snap.Err = err
	o.snap.UpdatedAt = time.Now()
	snap := o.snap
	o.publishLocked(snap)
	o.mu.Unlock()

	o.log.Error().Err(err).Str("invoice_id", snap.InvoiceID).Str("state", string(failed)).Msg("dte: transmisión fallida")
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveTransition(string(StateError), snap.Progress)
		outcome := "error"
		if errors.Is(err, ErrNotAccepted) || errors.Is(err, infradte.ErrDTE) || errors.Is(err, infradte.ErrValidation) {
			outcome = "rejected"
		}
		o.deps.Observer.ObserveOutcome(outcome)
	}
	return snap
}

// publishLocked entrega snap a cada suscriptor; si el buffer está lleno descarta el más antiguo.
func (o *DTEOrchestrator) publishLocked(snap Snapshot) {
	for _, ch := range o.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// UserMessage mensaje en español para el estado error.
func UserMessage(err error) string {
	var apiErr *infradte.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAccepted):
		return err.Error()
	case errors.As(err, &apiErr):
		switch {
		case errors.Is(apiErr, infradte.ErrDTE), errors.Is(apiErr, infradte.ErrValidation):
			return "Hacienda rechazó el documento: " + apiErr.Message
		case errors.Is(apiErr, infradte.ErrTimeout):
			return "El servicio de Hacienda no respondió a tiempo"
		case errors.Is(apiErr, infradte.ErrNetwork):
			return "No se pudo conectar con el servicio de Hacienda"
		case errors.Is(apiErr, infradte.ErrUnauthorized), errors.Is(apiErr, infradte.ErrForbidden):
			return "Hacienda rechazó las credenciales del emisor"
		case errors.Is(apiErr, infradte.ErrServer):
			return "El servicio de Hacienda presenta fallas, intente más tarde"
		}
		return apiErr.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "La factura no existe"
	}
	return err.Error()
}
