package repository

import (
	"context"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

// ProductRepository define el puerto de lectura de productos (enriquecimiento de líneas).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
