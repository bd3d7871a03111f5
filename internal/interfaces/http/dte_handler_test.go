package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	"github.com/jhoicas/facturacion-dte/internal/domain"
	domdte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
	apphttp "github.com/jhoicas/facturacion-dte/internal/interfaces/http"
)

const testInvoiceID = "00000000-0000-0000-0000-0000000000aa"

// fakeDTEService registra las llamadas y devuelve errores configurables por operación.
type fakeDTEService struct {
	errs       map[string]error
	submitted  billing.SubmitOptions
	invalidReq domdte.InvalidationRequest
	companyIDs []string
}

func (f *fakeDTEService) err(op, companyID string) error {
	f.companyIDs = append(f.companyIDs, companyID)
	return f.errs[op]
}

func snapshot(state billing.State) billing.Snapshot {
	return billing.Snapshot{
		InvoiceID: testInvoiceID,
		State:     state,
		Progress:  state.Progress(),
		Attempt:   1,
		UpdatedAt: time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
	}
}

func (f *fakeDTEService) Submit(_ context.Context, companyID, _ string, opts billing.SubmitOptions) (billing.Snapshot, error) {
	f.submitted = opts
	return snapshot(billing.StateValidatingCertificate), f.err("submit", companyID)
}

func (f *fakeDTEService) Retry(_ context.Context, companyID, _ string) (billing.Snapshot, error) {
	return snapshot(billing.StateValidatingCertificate), f.err("retry", companyID)
}

func (f *fakeDTEService) Status(companyID, _ string) (billing.Snapshot, error) {
	snap := snapshot(billing.StateCompleted)
	snap.ReceptionSeal = "2026ABCDEF"
	return snap, f.err("status", companyID)
}

func (f *fakeDTEService) Subscribe(companyID, _ string) (<-chan billing.Snapshot, func(), error) {
	if err := f.err("subscribe", companyID); err != nil {
		return nil, nil, err
	}
	ch := make(chan billing.Snapshot, 2)
	ch <- snapshot(billing.StateSubmittingDocument)
	ch <- snapshot(billing.StateCompleted)
	close(ch)
	return ch, func() {}, nil
}

func (f *fakeDTEService) Close(companyID, _ string) error {
	return f.err("close", companyID)
}

func (f *fakeDTEService) Invalidate(_ context.Context, companyID, _ string, req domdte.InvalidationRequest) (*infradte.SubmissionResult, error) {
	f.invalidReq = req
	if err := f.err("invalidate", companyID); err != nil {
		return nil, err
	}
	return &infradte.SubmissionResult{Status: "PROCESADO", ReceptionSeal: "SELLO-ANULACION"}, nil
}

func (f *fakeDTEService) ReportContingency(_ context.Context, companyID string, _ []string, _ domdte.ContingencyRequest) (*infradte.SubmissionResult, error) {
	if err := f.err("contingency", companyID); err != nil {
		return nil, err
	}
	return &infradte.SubmissionResult{Status: "RECIBIDO"}, nil
}

func (f *fakeDTEService) ValidateCredentials(_ context.Context, companyID string) (bool, error) {
	return true, f.err("credentials", companyID)
}

func (f *fakeDTEService) DeactivateAccount(_ context.Context, companyID string) error {
	return f.err("deactivate", companyID)
}

func (f *fakeDTEService) DeleteAccount(_ context.Context, companyID string) error {
	return f.err("delete", companyID)
}

func newDTEApp(svc *fakeDTEService, metrics prometheus.Gatherer) *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{DTE: svc, JWTSecret: testJWTSecret, Metrics: metrics})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(raw)
}

func dtePath(suffix string) string {
	return "/api/invoices/" + testInvoiceID + "/dte" + suffix
}

func TestDTEHandler_StartDevuelveEstado(t *testing.T) {
	svc := &fakeDTEService{}
	app := newDTEApp(svc, nil)

	resp, body := call(t, app, http.MethodPost, dtePath(""), "facturador", `{"render_attachment":true,"attachment":"JVBERg=="}`)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out dto.DTEStatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "validating-certificate", out.State)
	assert.Equal(t, 20, out.Progress)
	assert.True(t, svc.submitted.RenderAttachment)
	assert.Equal(t, []byte("%PDF"), svc.submitted.Attachment)
	assert.Equal(t, []string{testCompanyID}, svc.companyIDs)
}

func TestDTEHandler_StartSinCuerpo(t *testing.T) {
	svc := &fakeDTEService{}
	resp, _ := call(t, newDTEApp(svc, nil), http.MethodPost, dtePath(""), "admin", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.False(t, svc.submitted.RenderAttachment)
}

func TestDTEHandler_MapeoDeErrores(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ya en curso", billing.ErrAlreadySubmitting, http.StatusConflict, "CONFLICT"},
		{"terminado", fmt.Errorf("%w: completed", domain.ErrConflict), http.StatusConflict, "CONFLICT"},
		{"no existe", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"sin emisor", domain.ErrMissingIssuer, http.StatusNotFound, "NOT_FOUND"},
		{"sin totales", domain.ErrMissingTotals, http.StatusBadRequest, "VALIDATION"},
		{"rechazado", fmt.Errorf("%w: RECHAZADO", billing.ErrNotAccepted), http.StatusUnprocessableEntity, "REJECTED"},
		{"red", &infradte.APIError{Kind: infradte.ErrNetwork, Message: "dial"}, http.StatusBadGateway, "UPSTREAM"},
		{"credenciales", &infradte.APIError{Kind: infradte.ErrUnauthorized, StatusCode: 401}, http.StatusBadGateway, "UNAUTHORIZED"},
		{"interno", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeDTEService{errs: map[string]error{"submit": tt.err}}
			resp, body := call(t, newDTEApp(svc, nil), http.MethodPost, dtePath(""), "admin", "")

			assert.Equal(t, tt.status, resp.StatusCode)
			var out dto.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Equal(t, tt.code, out.Code)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestDTEHandler_RetryNoPermitido(t *testing.T) {
	svc := &fakeDTEService{errs: map[string]error{"retry": billing.ErrRetryNotAllowed}}
	resp, _ := call(t, newDTEApp(svc, nil), http.MethodPost, dtePath("/retry"), "facturador", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDTEHandler_StatusYClose(t *testing.T) {
	svc := &fakeDTEService{}
	app := newDTEApp(svc, nil)

	resp, body := call(t, app, http.MethodGet, dtePath(""), "auditor", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"reception_seal":"2026ABCDEF"`)

	resp, _ = call(t, app, http.MethodDelete, dtePath(""), "facturador", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDTEHandler_AuditorNoTransmite(t *testing.T) {
	svc := &fakeDTEService{}
	resp, _ := call(t, newDTEApp(svc, nil), http.MethodPost, dtePath(""), "auditor", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, svc.companyIDs)
}

func TestDTEHandler_SinToken(t *testing.T) {
	resp, _ := call(t, newDTEApp(&fakeDTEService{}, nil), http.MethodGet, dtePath(""), "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDTEHandler_Events(t *testing.T) {
	resp, body := call(t, newDTEApp(&fakeDTEService{}, nil), http.MethodGet, dtePath("/events"), "auditor", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, 2, strings.Count(body, "event: state"))
	assert.Contains(t, body, `"state":"completed"`)
}

func TestDTEHandler_Invalidate(t *testing.T) {
	svc := &fakeDTEService{}
	app := newDTEApp(svc, nil)

	resp, _ := call(t, app, http.MethodPost, dtePath("/invalidation"), "admin", `{"reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "type y responsable son requeridos")

	resp, body := call(t, app, http.MethodPost, dtePath("/invalidation"), "admin",
		`{"type":2,"reason":"Cliente canceló","responsible_name":"Ana Pérez","responsible_doc_type":"13","responsible_doc_number":"012345678"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"reception_seal":"SELLO-ANULACION"`)
	assert.Equal(t, domdte.InvalidationRescind, svc.invalidReq.Type)
	assert.Equal(t, "012345678", svc.invalidReq.ResponsibleDocNum)

	resp, _ = call(t, app, http.MethodPost, dtePath("/invalidation"), "facturador", `{"type":2,"responsible_name":"Ana"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDTEHandler_ContingenciaYCuenta(t *testing.T) {
	svc := &fakeDTEService{}
	app := newDTEApp(svc, nil)

	resp, body := call(t, app, http.MethodPost, "/api/dte/contingency", "facturador",
		`{"invoice_ids":["a"],"type":3,"responsible_name":"Ana","start":"2026-03-15T14:00:00Z","end":"2026-03-15T16:00:00Z"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"RECIBIDO"`)

	resp, body = call(t, app, http.MethodPost, "/api/dte/credentials/validate", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"valid":true}`, body)

	resp, _ = call(t, app, http.MethodPost, "/api/dte/account/deactivate", "admin", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = call(t, app, http.MethodDelete, "/api/dte/account", "admin", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dte_test_total", Help: "prueba"})
	reg.MustRegister(counter)
	counter.Inc()

	resp, body := call(t, newDTEApp(&fakeDTEService{}, reg), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "dte_test_total 1")

	resp, _ = call(t, newDTEApp(&fakeDTEService{}, nil), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
