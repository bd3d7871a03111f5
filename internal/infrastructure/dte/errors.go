package dte

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Clasificación de errores del servicio de recepción.
var (
	ErrNetwork          = errors.New("dte: servicio no disponible")
	ErrTimeout          = errors.New("dte: tiempo de espera agotado")
	ErrUnauthorized     = errors.New("dte: credenciales no autorizadas")
	ErrForbidden        = errors.New("dte: acceso denegado")
	ErrNotFound         = errors.New("dte: recurso no encontrado")
	ErrValidation       = errors.New("dte: error de validación")
	ErrServer           = errors.New("dte: error del servidor")
	ErrDTE              = errors.New("dte: documento rechazado")
	ErrUnexpectedStatus = errors.New("dte: respuesta inesperada")
)

// APIError error clasificado de una llamada al servicio.
// Kind es uno de los Err* de este paquete; errors.Is funciona contra él.
type APIError struct {
	Kind         error
	StatusCode   int
	Message      string
	Observations []string
	Cause        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Retryable indica si la llamada puede repetirse.
func (e *APIError) Retryable() bool {
	switch {
	case errors.Is(e.Kind, ErrNetwork), errors.Is(e.Kind, ErrTimeout):
		return true
	case errors.Is(e.Kind, ErrServer):
		return e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

// errorBody forma común de las respuestas de error del servicio.
type errorBody struct {
	Message       string   `json:"message"`
	Mensaje       string   `json:"mensaje"`
	DescripcionMs string   `json:"descripcionMsg"`
	Error         string   `json:"error"`
	Observaciones []string `json:"observaciones"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Message, b.Mensaje, b.DescripcionMs, b.Error} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// classify convierte una respuesta no exitosa en *APIError.
// Un cuerpo con observaciones produce ErrDTE sin importar el código HTTP.
func classify(status int, body []byte) *APIError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.text()

	if obs := nonBlank(eb.Observaciones); len(obs) > 0 {
		parts := slices.Clone(obs)
		if msg != "" {
			parts = append(parts, msg)
		}
		return &APIError{Kind: ErrDTE, StatusCode: status, Message: strings.Join(parts, "; "), Observations: obs}
	}

	if msg == "" {
		msg = http.StatusText(status)
	}
	e := &APIError{StatusCode: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = ErrUnauthorized
	case status == http.StatusForbidden:
		e.Kind = ErrForbidden
	case status == http.StatusNotFound:
		e.Kind = ErrNotFound
	case status == http.StatusUnprocessableEntity:
		e.Kind = ErrValidation
	case status >= 500:
		e.Kind = ErrServer
	default:
		e.Kind = ErrUnexpectedStatus
	}
	return e
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
