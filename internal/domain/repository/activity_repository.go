package repository

import "context"

// ActivityCatalogRepository catálogo CAT-019 de actividades económicas.
type ActivityCatalogRepository interface {
	// Describe devuelve la descripción del código o "" si no existe.
	Describe(ctx context.Context, code string) (string, error)
}
