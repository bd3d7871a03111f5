package dte

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

const controlSuffixDigits = 15

// IdentifierGenerator produce números de control y códigos de generación.
// No verifica unicidad contra registros existentes.
type IdentifierGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewIdentifierGenerator usa entropy como fuente aleatoria; nil = crypto/rand.
func NewIdentifierGenerator(entropy io.Reader) *IdentifierGenerator {
	if entropy == nil {
		entropy = rand.Reader
	}
	return &IdentifierGenerator{entropy: entropy}
}

// ControlNumber devuelve DTE-{code}-{estab}{pos}-{15 dígitos}. Si la factura ya
// tiene un número de control con prefijo DTE-{code} se reutiliza tal cual.
func (g *IdentifierGenerator) ControlNumber(inv *entity.Invoice, code string, company *entity.Company) (string, error) {
	if inv != nil && inv.HasDTEPrefix(code) {
		return inv.ControlNumber, nil
	}
	estab := pkgdte.DefaultEstablishmentCode
	pos := pkgdte.DefaultPOSCode
	if company != nil {
		estab = nonEmpty(pkgdte.FirstNonEmpty(company.EstablishmentCodeMH, company.EstablishmentCode), estab)
		pos = nonEmpty(pkgdte.FirstNonEmpty(company.POSCodeMH, company.POSCode), pos)
	}
	suffix, err := g.digits(controlSuffixDigits)
	if err != nil {
		return "", fmt.Errorf("numero de control: %w", err)
	}
	return fmt.Sprintf("DTE-%s-%s%s-%s", code, estab, pos, suffix), nil
}

// GenerationCode reutiliza el código de la factura o genera un UUID v4 en mayúsculas.
func (g *IdentifierGenerator) GenerationCode(inv *entity.Invoice) (string, error) {
	if inv != nil && strings.TrimSpace(inv.GenerationCode) != "" {
		return inv.GenerationCode, nil
	}
	g.mu.Lock()
	id, err := uuid.NewRandomFromReader(g.entropy)
	g.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("codigo de generacion: %w", err)
	}
	return strings.ToUpper(id.String()), nil
}

// digits lee n dígitos decimales uniformes (descarta bytes >= 250).
func (g *IdentifierGenerator) digits(n int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var sb strings.Builder
	buf := make([]byte, n)
	for sb.Len() < n {
		if _, err := io.ReadFull(g.entropy, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			sb.WriteByte('0' + b%10)
			if sb.Len() == n {
				break
			}
		}
	}
	return sb.String(), nil
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
