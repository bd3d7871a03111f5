package repository

import (
	"context"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// CompanyRepository define el puerto de lectura del emisor (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}
