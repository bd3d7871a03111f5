package entity

import "time"

// Customer representa al receptor del documento.
type Customer struct {
	ID                  string
	CompanyID           string
	IsBusiness          bool
	Name                string // razón social o nombre completo
	TradeName           string
	FirstName           string
	LastName            string
	DUI                 string
	NIT                 string
	NRC                 string
	ActivityCode        string
	ActivityDescription string
	Department          string
	Municipality        string
	AddressComplement   string
	Phone               string
	Email               string
	WithholdsVAT        bool // agente de retención de IVA

	// Solo exportación.
	DocumentTypeCode string // CAT-022 explícito
	DocumentNumber   string
	CountryCode      string
	CountryName      string
	PersonType       int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName devuelve la razón social o, si falta, nombre y apellido.
func (c *Customer) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	}
	return c.LastName
}
