// Package dte implementa el cliente HTTP del servicio de recepción de DTE del
// Ministerio de Hacienda: reintentos, clasificación de errores y operaciones tipadas.
package dte

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

const (
	// DefaultTimeout tiempo máximo por petición; el MH puede tardar bastante en sellar.
	DefaultTimeout = 90 * time.Second
	// DefaultMaxRetries reintentos tras el primer intento.
	DefaultMaxRetries = 3

	baseBackoff      = time.Second
	maxBackoff       = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// HTTPDoer abstrae *http.Client para inyectar transportes en tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestObserver recibe la latencia y los reintentos de cada llamada (métricas).
type RequestObserver interface {
	ObserveRequest(path string, status int, elapsed time.Duration)
	ObserveRetry(path string)
}

// Config parámetros del cliente.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client cliente del servicio de recepción. Seguro para uso concurrente.
type Client struct {
	baseURL    string
	apiKey     string
	http       HTTPDoer
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	log        *logger.Logger
	observer   RequestObserver
}

// Option configura el cliente.
type Option func(*Client)

// WithHTTPClient reemplaza el cliente HTTP.
func WithHTTPClient(h HTTPDoer) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger asigna el logger estructurado.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithObserver registra un observador de peticiones.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithSleep reemplaza la espera entre reintentos.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient construye el cliente. Timeout y MaxRetries en cero toman los valores por defecto;
// MaxRetries negativo desactiva los reintentos.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultMaxRetries
	case retries < 0:
		retries = 0
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: timeout},
		maxRetries: retries,
		sleep:      sleepContext,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff espera antes del reintento n (n >= 1): 1s, 2s, 4s... con tope de 10s.
func Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	if n > 4 {
		return maxBackoff
	}
	return min(baseBackoff<<(n-1), maxBackoff)
}

// Send ejecuta la petición y devuelve el cuerpo JSON de la respuesta exitosa.
// Solo se reintentan fallas de red, timeouts y 502/503/504; el resto falla de inmediato
// con un *APIError.
func (c *Client) Send(ctx context.Context, method, path string, body any, headers map[string]string) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("dte: serializar cuerpo: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt)
			c.log.Warn().Str("path", path).Int("attempt", attempt+1).Int("max_attempts", c.maxRetries+1).
				Dur("retry_delay", delay).Msg("dte: reintentando petición")
			if c.observer != nil {
				c.observer.ObserveRetry(path)
			}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("dte: contexto cancelado durante reintento: %w", err)
			}
		}

		raw, err := c.do(ctx, method, path, payload, headers)
		if err == nil {
			return raw, nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() || attempt >= c.maxRetries || ctx.Err() != nil {
			c.log.Error().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("dte: petición fallida")
			return nil, err
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) (json.RawMessage, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("dte: construir petición: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, 0, time.Since(start))
		kind := ErrNetwork
		if isTimeout(err) {
			kind = ErrTimeout
		}
		return nil, &APIError{Kind: kind, Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &APIError{Kind: ErrNetwork, StatusCode: resp.StatusCode, Message: "leer respuesta: " + err.Error(), Cause: err}
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("dte: respuesta recibida")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classify(resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

func (c *Client) observe(path string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(path, status, elapsed)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
