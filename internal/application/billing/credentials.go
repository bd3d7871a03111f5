package billing

import (
	"context"
	"strings"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
)

// CompanyCredentials toma NIT, secreto y clave de certificado de la empresa.
// Si la empresa no tiene clave registrada se usa la del certificado cargado al arrancar (DTE_CERT_PATH).
type CompanyCredentials struct {
	fallback *infradte.Certificate
}

func NewCompanyCredentials(fallback *infradte.Certificate) *CompanyCredentials {
	return &CompanyCredentials{fallback: fallback}
}

func (p *CompanyCredentials) Credentials(_ context.Context, company *entity.Company, inv *entity.Invoice) (infradte.Credentials, error) {
	cred := infradte.Credentials{
		NIT:            strings.TrimSpace(company.NIT),
		Secret:         company.APISecret,
		CertificateKey: strings.TrimSpace(company.CertificateKey),
	}
	if cred.CertificateKey == "" && p.fallback != nil {
		cred.CertificateKey = p.fallback.Key
	}
	if inv != nil {
		cred.InvoiceNumber = inv.Number
	}
	return cred, nil
}
