package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, company_id, is_business, COALESCE(name, ''), COALESCE(trade_name, ''),
		       COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(dui, ''), COALESCE(nit, ''),
		       COALESCE(nrc, ''), COALESCE(activity_code, ''), COALESCE(activity_description, ''),
		       COALESCE(department, ''), COALESCE(municipality, ''), COALESCE(address_complement, ''),
		       COALESCE(phone, ''), COALESCE(email, ''), withholds_vat,
		       COALESCE(document_type_code, ''), COALESCE(document_number, ''),
		       COALESCE(country_code, ''), COALESCE(country_name, ''), COALESCE(person_type, 0),
		       created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.IsBusiness, &c.Name, &c.TradeName,
		&c.FirstName, &c.LastName, &c.DUI, &c.NIT,
		&c.NRC, &c.ActivityCode, &c.ActivityDescription,
		&c.Department, &c.Municipality, &c.AddressComplement,
		&c.Phone, &c.Email, &c.WithholdsVAT,
		&c.DocumentTypeCode, &c.DocumentNumber,
		&c.CountryCode, &c.CountryName, &c.PersonType,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}
