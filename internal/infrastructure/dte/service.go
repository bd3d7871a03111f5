package dte

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

// Cabeceras del servicio.
const (
	HeaderAPIKey         = "X-Api-Key"
	HeaderCertificateKey = "X-Certificate-Key"
	HeaderNIT            = "X-Nit"
	HeaderSecret         = "X-Secret"
	HeaderInvoiceNumber  = "X-Invoice-Number"
)

// Credentials credenciales del emisor. Solo viajan en cabeceras; nunca se persisten ni se registran.
type Credentials struct {
	NIT            string
	Secret         string
	CertificateKey string
	InvoiceNumber  string
}

// Headers cabeceras de autenticación; se omiten las vacías.
func (c Credentials) Headers() map[string]string {
	h := make(map[string]string, 4)
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			h[k] = v
		}
	}
	set(HeaderNIT, pkgdte.DigitsOnly(c.NIT))
	set(HeaderSecret, c.Secret)
	set(HeaderCertificateKey, c.CertificateKey)
	set(HeaderInvoiceNumber, c.InvoiceNumber)
	return h
}

// SubmissionResult respuesta del servicio a una recepción o evento.
type SubmissionResult struct {
	Status         string   `json:"estado"`
	GenerationCode string   `json:"codigoGeneracion"`
	ReceptionSeal  string   `json:"selloRecibido"`
	ProcessedAt    string   `json:"fhProcesamiento"`
	Message        string   `json:"descripcionMsg"`
	Observations   []string `json:"observaciones"`
}

// Accepted true si el estado pertenece al conjunto aceptado (PROCESADO, RECIBIDO).
func (r *SubmissionResult) Accepted() bool {
	return r != nil && pkgdte.IsAccepted(r.Status)
}

// Detail mensaje legible del resultado: observaciones y luego el mensaje principal.
func (r *SubmissionResult) Detail() string {
	if r == nil {
		return ""
	}
	parts := nonBlank(r.Observations)
	if m := strings.TrimSpace(r.Message); m != "" {
		parts = append(parts, m)
	}
	if len(parts) == 0 {
		return "estado " + r.Status
	}
	return strings.Join(parts, "; ")
}

// SubmitDocument envía el DTE a la ruta de recepción de su tipo.
func (c *Client) SubmitDocument(ctx context.Context, doc *domdte.TaxDocument, cred Credentials) (*SubmissionResult, error) {
	if doc == nil {
		return nil, errors.New("dte: documento nulo")
	}
	return c.sendForResult(ctx, SubmitPath(doc.Identificacion.TipoDte), doc, cred)
}

// Invalidate envía el evento de invalidación.
func (c *Client) Invalidate(ctx context.Context, doc *domdte.InvalidationDocument, cred Credentials) (*SubmissionResult, error) {
	return c.sendForResult(ctx, PathInvalidation, doc, cred)
}

// ReportContingency envía el evento de contingencia.
func (c *Client) ReportContingency(ctx context.Context, report *domdte.ContingencyReport, cred Credentials) (*SubmissionResult, error) {
	return c.sendForResult(ctx, PathContingency, report, cred)
}

func (c *Client) sendForResult(ctx context.Context, path string, body any, cred Credentials) (*SubmissionResult, error) {
	raw, err := c.Send(ctx, http.MethodPost, path, body, cred.Headers())
	if err != nil {
		return nil, err
	}
	var res SubmissionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("dte: respuesta inválida de %s: %w", path, err)
	}
	return &res, nil
}

type attachmentRequest struct {
	CodigoGeneracion string `json:"codigoGeneracion"`
	TipoArchivo      string `json:"tipoArchivo"`
	Archivo          []byte `json:"archivo"`
}

// UploadAttachment sube la representación gráfica (PDF) de un DTE aceptado.
func (c *Client) UploadAttachment(ctx context.Context, generationCode string, pdf []byte, cred Credentials) error {
	if len(pdf) == 0 {
		return errors.New("dte: representación gráfica vacía")
	}
	body := attachmentRequest{CodigoGeneracion: generationCode, TipoArchivo: "application/pdf", Archivo: pdf}
	_, err := c.Send(ctx, http.MethodPost, PathAttachment, body, cred.Headers())
	return err
}

type validationResponse struct {
	Valido *bool  `json:"valido"`
	Estado string `json:"estado"`
}

func (v validationResponse) ok() bool {
	if v.Valido != nil {
		return *v.Valido
	}
	return pkgdte.IsAccepted(v.Estado) || strings.EqualFold(v.Estado, "VALIDO")
}

// ValidateCertificate verifica el certificado del emisor. Sin clave de certificado o sin NIT
// devuelve (false, nil) sin llamar al servicio.
func (c *Client) ValidateCertificate(ctx context.Context, cred Credentials) (bool, error) {
	if strings.TrimSpace(cred.CertificateKey) == "" || strings.TrimSpace(cred.NIT) == "" {
		return false, nil
	}
	return c.validate(ctx, PathValidateCertificate, cred)
}

// ValidateCredentials verifica NIT y clave secreta del emisor.
func (c *Client) ValidateCredentials(ctx context.Context, cred Credentials) (bool, error) {
	if strings.TrimSpace(cred.Secret) == "" || strings.TrimSpace(cred.NIT) == "" {
		return false, nil
	}
	return c.validate(ctx, PathValidateCredentials, cred)
}

// validate interpreta un rechazo del servicio (401/403/422 u observaciones) como inválido.
func (c *Client) validate(ctx context.Context, path string, cred Credentials) (bool, error) {
	raw, err := c.Send(ctx, http.MethodPost, path, nil, cred.Headers())
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) ||
			errors.Is(err, ErrValidation) || errors.Is(err, ErrDTE) {
			return false, nil
		}
		return false, err
	}
	var v validationResponse
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("dte: respuesta inválida de %s: %w", path, err)
	}
	return v.ok(), nil
}

// DeactivateAccount desactiva la cuenta del emisor en el servicio.
func (c *Client) DeactivateAccount(ctx context.Context, cred Credentials) error {
	_, err := c.Send(ctx, http.MethodPost, PathDeactivateAccount, nil, cred.Headers())
	return err
}

// DeleteAccount elimina la cuenta del emisor en el servicio.
func (c *Client) DeleteAccount(ctx context.Context, cred Credentials) error {
	_, err := c.Send(ctx, http.MethodDelete, PathDeleteAccount, nil, cred.Headers())
	return err
}
