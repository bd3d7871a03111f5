package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o servicio del catálogo del emisor.
type Product struct {
	ID          string
	CompanyID   string
	Code        string // código interno (campo codigo del DTE)
	Name        string
	UnitMeasure int // CAT-014
	Price       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
