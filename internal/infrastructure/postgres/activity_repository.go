package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
)

var _ repository.ActivityCatalogRepository = (*ActivityRepo)(nil)

// ActivityRepo catálogo CAT-019 cargado por cmd/seed_catalogs.
type ActivityRepo struct {
	q Querier
}

// NewActivityRepository construye el adaptador.
func NewActivityRepository(q Querier) *ActivityRepo {
	return &ActivityRepo{q: q}
}

// Describe devuelve la descripción de la actividad o "" si el código no existe.
func (r *ActivityRepo) Describe(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", nil
	}
	var desc string
	err := r.q.QueryRow(ctx, `SELECT description FROM economic_activities WHERE code = $1`, code).Scan(&desc)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("describe activity %s: %w", code, err)
	}
	return desc, nil
}
