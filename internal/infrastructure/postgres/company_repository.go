package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación de CompanyRepository con PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByID obtiene el emisor con sus códigos MH y secretos de transmisión.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, nit, nrc, name, COALESCE(trade_name, ''), activity_code, COALESCE(activity_description, ''),
		       establishment_type, COALESCE(establishment_code, ''), COALESCE(pos_code, ''),
		       COALESCE(establishment_code_mh, ''), COALESCE(pos_code_mh, ''),
		       department, municipality, address_complement, COALESCE(phone, ''), COALESCE(email, ''),
		       COALESCE(certificate_key, ''), COALESCE(api_secret, ''), created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.NIT, &c.NRC, &c.Name, &c.TradeName, &c.ActivityCode, &c.ActivityDescription,
		&c.EstablishmentType, &c.EstablishmentCode, &c.POSCode,
		&c.EstablishmentCodeMH, &c.POSCodeMH,
		&c.Department, &c.Municipality, &c.AddressComplement, &c.Phone, &c.Email,
		&c.CertificateKey, &c.APISecret, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// UpdateCertificateKey registra la llave del certificado validado para la empresa.
func (r *CompanyRepo) UpdateCertificateKey(ctx context.Context, id, key string) error {
	tag, err := r.q.Exec(ctx, `UPDATE companies SET certificate_key = $2, updated_at = NOW() WHERE id = $1`, id, nullIfEmpty(key))
	if err != nil {
		return fmt.Errorf("update certificate key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update certificate key: empresa %s no existe", id)
	}
	return nil
}
