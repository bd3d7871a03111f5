package entity

import "time"

// Company representa al emisor (contribuyente inscrito en el MH).
type Company struct {
	ID                  string
	NIT                 string
	NRC                 string
	Name                string
	TradeName           string
	ActivityCode        string // CAT-019
	ActivityDescription string
	EstablishmentType   string // CAT-009
	EstablishmentCode   string
	POSCode             string
	EstablishmentCodeMH string
	POSCodeMH           string
	Department          string // CAT-012
	Municipality        string // CAT-013
	AddressComplement   string
	Phone               string
	Email               string

	// Secretos de transmisión; nunca se exponen por la API.
	CertificateKey string // llave derivada del certificado registrado
	APISecret      string // secreto compartido con el servicio de recepción

	CreatedAt time.Time
	UpdatedAt time.Time
}
