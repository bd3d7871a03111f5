package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	"github.com/jhoicas/facturacion-dte/internal/domain"
	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// dteService contrato que usa el handler; lo implementa *billing.SubmissionService.
type dteService interface {
	Submit(ctx context.Context, companyID, invoiceID string, opts billing.SubmitOptions) (billing.Snapshot, error)
	Retry(ctx context.Context, companyID, invoiceID string) (billing.Snapshot, error)
	Status(companyID, invoiceID string) (billing.Snapshot, error)
	Subscribe(companyID, invoiceID string) (<-chan billing.Snapshot, func(), error)
	Close(companyID, invoiceID string) error
	Invalidate(ctx context.Context, companyID, invoiceID string, req domdte.InvalidationRequest) (*infradte.SubmissionResult, error)
	ReportContingency(ctx context.Context, companyID string, invoiceIDs []string, req domdte.ContingencyRequest) (*infradte.SubmissionResult, error)
	ValidateCredentials(ctx context.Context, companyID string) (bool, error)
	DeactivateAccount(ctx context.Context, companyID string) error
	DeleteAccount(ctx context.Context, companyID string) error
}

// DTEHandler maneja la transmisión de facturas al MH (protegido).
type DTEHandler struct {
	svc dteService
	log *logger.Logger
}

// NewDTEHandler construye el handler.
func NewDTEHandler(svc dteService, log *logger.Logger) *DTEHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &DTEHandler{svc: svc, log: log}
}

// Start inicia la transmisión de la factura.
// @Summary      Transmitir factura al MH
// @Tags         DTE
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la factura"
// @Param        body  body  dto.StartDTERequest  false "Representación gráfica"
// @Success      202   {object}  dto.DTEStatusResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/dte [post]
func (h *DTEHandler) Start(c *fiber.Ctx) error {
	companyID, id, ok := h.scope(c)
	if !ok {
		return nil
	}
	var in dto.StartDTERequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	snap, err := h.svc.Submit(c.UserContext(), companyID, id, billing.SubmitOptions{
		Attachment:       in.Attachment,
		RenderAttachment: in.RenderAttachment,
	})
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Info().Str("invoice_id", id).Str("user_id", GetUserID(c)).Msg("transmisión DTE iniciada")
	return c.Status(fiber.StatusAccepted).JSON(toStatusResponse(snap))
}

// Retry reintenta una transmisión fallida.
// @Summary      Reintentar transmisión
// @Tags         DTE
// @Produce      json
// @Param        id  path  string  true  "ID de la factura"
// @Success      202 {object}  dto.DTEStatusResponse
// @Router       /api/invoices/{id}/dte/retry [post]
func (h *DTEHandler) Retry(c *fiber.Ctx) error {
	companyID, id, ok := h.scope(c)
	if !ok {
		return nil
	}
	snap, err := h.svc.Retry(c.UserContext(), companyID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(toStatusResponse(snap))
}

// Status devuelve el estado actual de la transmisión.
// @Summary      Estado de la transmisión
// @Tags         DTE
// @Produce      json
// @Param        id  path  string  true  "ID de la factura"
// @Success      200 {object}  dto.DTEStatusResponse
// @Router       /api/invoices/{id}/dte [get]
func (h *DTEHandler) Status(c *fiber.Ctx) error {
	companyID, id, ok := h.scope(c)
	if !ok {
		return nil
	}
	snap, err := h.svc.Status(companyID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(toStatusResponse(snap))
}

// Events transmite los cambios de estado como Server-Sent Events hasta un estado terminal.
// @Summary      Eventos de la transmisión (SSE)
// @Tags         DTE
// @Produce      text/event-stream
// @Param        id  path  string  true  "ID de la factura"
// @Success      200 {object}  dto.DTEStatusResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/dte/events [get]
func (h *DTEHandler) Events(c *fiber.Ctx) error {
	companyID, id, ok := h.scope(c)
	if !ok {
		return nil
	}
	ch, cancel, err := h.svc.Subscribe(companyID, id)
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for snap := range ch {
			data, err := json.Marshal(toStatusResponse(snap))
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			if err := w.Flush(); err != nil {
				return
			}
			if snap.State.Terminal() {
				return
			}
		}
	})
	return nil
}

// Close descarta una transmisión terminada.
// @Summary      Cerrar transmisión
// @Tags         DTE
// @Param        id  path  string  true  "ID de la factura"
// @Success      204
// @Router       /api/invoices/{id}/dte [delete]
func (h *DTEHandler) Close(c *fiber.Ctx) error {
	companyID, id, ok := h.scope(c)
	if !ok {
		return nil
	}
	if err := h.svc.Close(companyID, id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Invalidate anula un DTE aceptado.
// @Summary      Invalidar DTE
// @Tags         DTE
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la factura"
// @Param        body  body  dto.InvalidationRequest  true  "Motivo y responsable"
// @Success      200   {object}  dto.DTEResultResponse
// @Router       /api/invoices/{id}/dte/invalidation [post]
func (h *DTEHandler) Invalidate(c *fiber.Ctx) error {
	companyID, id, ok := h.scope(c)
	if !ok {
		return nil
	}
	var in dto.InvalidationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Type == 0 || in.ResponsibleName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type y responsible_name son requeridos"})
	}
	res, err := h.svc.Invalidate(c.UserContext(), companyID, id, domdte.InvalidationRequest{
		Type:               in.Type,
		Reason:             in.Reason,
		ResponsibleName:    in.ResponsibleName,
		ResponsibleDocType: in.ResponsibleDocType,
		ResponsibleDocNum:  in.ResponsibleDocNumber,
		ReplacementCode:    in.ReplacementCode,
	})
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Info().Str("invoice_id", id).Str("status", res.Status).Msg("DTE invalidado")
	return c.JSON(toResultResponse(res))
}

// ReportContingency informa al MH los DTE emitidos durante una falla.
// @Summary      Reportar contingencia
// @Tags         DTE
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ContingencyRequest  true  "Facturas, tipo y periodo"
// @Success      200   {object}  dto.DTEResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/dte/contingency [post]
func (h *DTEHandler) ReportContingency(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ContingencyRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.InvoiceIDs) == 0 || in.Type == 0 || in.ResponsibleName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_ids, type y responsible_name son requeridos"})
	}
	res, err := h.svc.ReportContingency(c.UserContext(), companyID, in.InvoiceIDs, domdte.ContingencyRequest{
		Type:               in.Type,
		Reason:             in.Reason,
		ResponsibleName:    in.ResponsibleName,
		ResponsibleDocType: in.ResponsibleDocType,
		ResponsibleDocNum:  in.ResponsibleDocNumber,
		Start:              in.Start,
		End:                in.End,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(toResultResponse(res))
}

// ValidateCredentials verifica NIT y clave secreta de la empresa del token.
// @Summary      Validar credenciales del emisor
// @Tags         DTE
// @Produce      json
// @Success      200 {object}  dto.CredentialsValidationResponse
// @Failure      502 {object}  dto.ErrorResponse
// @Router       /api/dte/credentials/validate [post]
func (h *DTEHandler) ValidateCredentials(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	valid, err := h.svc.ValidateCredentials(c.UserContext(), companyID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.CredentialsValidationResponse{Valid: valid})
}

// DeactivateAccount desactiva la cuenta del emisor.
// @Summary      Desactivar cuenta
// @Tags         DTE
// @Success      204
// @Router       /api/dte/account/deactivate [post]
func (h *DTEHandler) DeactivateAccount(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	if err := h.svc.DeactivateAccount(c.UserContext(), companyID); err != nil {
		return h.fail(c, err)
	}
	h.log.Warn().Str("company_id", companyID).Str("user_id", GetUserID(c)).Msg("cuenta DTE desactivada")
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAccount elimina la cuenta del emisor.
// @Summary      Eliminar cuenta
// @Tags         DTE
// @Success      204
// @Router       /api/dte/account [delete]
func (h *DTEHandler) DeleteAccount(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	if err := h.svc.DeleteAccount(c.UserContext(), companyID); err != nil {
		return h.fail(c, err)
	}
	h.log.Warn().Str("company_id", companyID).Str("user_id", GetUserID(c)).Msg("cuenta DTE eliminada")
	return c.SendStatus(fiber.StatusNoContent)
}

// scope extrae empresa e ID de factura; si faltan ya escribió la respuesta de error.
func (h *DTEHandler) scope(c *fiber.Ctx) (companyID, invoiceID string, ok bool) {
	companyID = GetCompanyID(c)
	if companyID == "" {
		_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
		return "", "", false
	}
	invoiceID = c.Params("id")
	if invoiceID == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
		return "", "", false
	}
	return companyID, invoiceID, true
}

// fail traduce errores de aplicación y de transporte a respuestas HTTP.
func (h *DTEHandler) fail(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("error en operación DTE")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: billing.UserMessage(err)})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMissingIssuer):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, billing.ErrAlreadySubmitting),
		errors.Is(err, billing.ErrRetryNotAllowed),
		errors.Is(err, billing.ErrCloseNotAllowed),
		errors.Is(err, billing.ErrClosed),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrMissingCustomer),
		errors.Is(err, domain.ErrMissingTotals),
		errors.Is(err, domain.ErrCertificateMissing):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, billing.ErrNotAccepted),
		errors.Is(err, infradte.ErrDTE),
		errors.Is(err, infradte.ErrValidation):
		return fiber.StatusUnprocessableEntity, "REJECTED"
	case errors.Is(err, domain.ErrCertificateInvalid),
		errors.Is(err, infradte.ErrUnauthorized),
		errors.Is(err, infradte.ErrForbidden):
		return fiber.StatusBadGateway, "UNAUTHORIZED"
	case errors.Is(err, infradte.ErrNetwork),
		errors.Is(err, infradte.ErrTimeout),
		errors.Is(err, infradte.ErrServer),
		errors.Is(err, infradte.ErrNotFound),
		errors.Is(err, infradte.ErrUnexpectedStatus):
		return fiber.StatusBadGateway, "UPSTREAM"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

func toStatusResponse(s billing.Snapshot) dto.DTEStatusResponse {
	return dto.DTEStatusResponse{
		InvoiceID:      s.InvoiceID,
		State:          string(s.State),
		Progress:       s.Progress,
		Message:        s.Message,
		Attempt:        s.Attempt,
		ControlNumber:  s.ControlNumber,
		GenerationCode: s.GenerationCode,
		ReceptionSeal:  s.ReceptionSeal,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toResultResponse(r *infradte.SubmissionResult) dto.DTEResultResponse {
	if r == nil {
		return dto.DTEResultResponse{}
	}
	return dto.DTEResultResponse{
		Status:         r.Status,
		GenerationCode: r.GenerationCode,
		ReceptionSeal:  r.ReceptionSeal,
		ProcessedAt:    r.ProcessedAt,
		Message:        r.Message,
		Observations:   r.Observations,
	}
}
