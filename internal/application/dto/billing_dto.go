package dto

import "time"

// StartDTERequest body para POST /api/invoices/:id/dte.
// Attachment es la representación gráfica ya renderizada (base64); si falta y
// RenderAttachment es true, el servidor genera el PDF tras la aceptación.
type StartDTERequest struct {
	Attachment       []byte `json:"attachment,omitempty"`
	RenderAttachment bool   `json:"render_attachment"`
}

// DTEStatusResponse estado del envío de una factura.
type DTEStatusResponse struct {
	InvoiceID      string    `json:"invoice_id"`
	State          string    `json:"state"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message,omitempty"`
	Attempt        int       `json:"attempt"`
	ControlNumber  string    `json:"control_number,omitempty"`
	GenerationCode string    `json:"generation_code,omitempty"`
	ReceptionSeal  string    `json:"reception_seal,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InvalidationRequest body para POST /api/invoices/:id/dte/invalidation.
type InvalidationRequest struct {
	Type                 int    `json:"type"` // CAT-024: 1 error, 2 rescindir, 3 otro
	Reason               string `json:"reason,omitempty"`
	ResponsibleName      string `json:"responsible_name"`
	ResponsibleDocType   string `json:"responsible_doc_type,omitempty"`
	ResponsibleDocNumber string `json:"responsible_doc_number,omitempty"`
	ReplacementCode      string `json:"replacement_generation_code,omitempty"`
}

// ContingencyRequest body para POST /api/dte/contingency.
type ContingencyRequest struct {
	InvoiceIDs           []string  `json:"invoice_ids"`
	Type                 int       `json:"type"` // CAT-005
	Reason               string    `json:"reason,omitempty"`
	ResponsibleName      string    `json:"responsible_name"`
	ResponsibleDocType   string    `json:"responsible_doc_type,omitempty"`
	ResponsibleDocNumber string    `json:"responsible_doc_number,omitempty"`
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
}

// DTEResultResponse respuesta del MH a un evento (invalidación o contingencia).
type DTEResultResponse struct {
	Status         string   `json:"status"`
	GenerationCode string   `json:"generation_code,omitempty"`
	ReceptionSeal  string   `json:"reception_seal,omitempty"`
	ProcessedAt    string   `json:"processed_at,omitempty"`
	Message        string   `json:"message,omitempty"`
	Observations   []string `json:"observations,omitempty"`
}

// CredentialsValidationResponse resultado de POST /api/dte/credentials/validate.
type CredentialsValidationResponse struct {
	Valid bool `json:"valid"`
}
