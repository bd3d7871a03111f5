package dte

import (
	"strings"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

// Tipos de contingencia (CAT-005).
const (
	ContingencyMHUnavailable     = 1 // No disponibilidad de sistema del MH
	ContingencyIssuerUnavailable = 2 // No disponibilidad de sistema del emisor
	ContingencyInternetOutage    = 3 // Falla en el suministro de internet del emisor
	ContingencyPowerOutage       = 4 // Falla en el suministro de energía eléctrica
	ContingencyOther             = 5 // Otro (requiere motivo)
)

// ContingencyRequest datos del evento de contingencia.
type ContingencyRequest struct {
	Type               int
	Reason             string
	ResponsibleName    string
	ResponsibleDocType string
	ResponsibleDocNum  string
	Start              time.Time
	End                time.Time
}

// ContingencyReport evento de contingencia con los DTE emitidos durante la falla.
type ContingencyReport struct {
	Identificacion ContingencyIdentification `json:"identificacion"`
	Emisor         ContingencyIssuer         `json:"emisor"`
	DetalleDTE     []ContingencyDetail       `json:"detalleDTE"`
	Motivo         ContingencyReason         `json:"motivo"`
}

type ContingencyIdentification struct {
	Version          int    `json:"version"`
	Ambiente         string `json:"ambiente"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	FTransmision     string `json:"fTransmision"`
	HTransmision     string `json:"hTransmision"`
}

type ContingencyIssuer struct {
	Nit                  string  `json:"nit"`
	Nombre               string  `json:"nombre"`
	NombreResponsable    string  `json:"nombreResponsable"`
	TipoDocResponsable   string  `json:"tipoDocResponsable"`
	NumeroDocResponsable string  `json:"numeroDocResponsable"`
	TipoEstablecimiento  string  `json:"tipoEstablecimiento"`
	CodEstableMH         *string `json:"codEstableMH"`
	CodPuntoVenta        *string `json:"codPuntoVenta"`
	Telefono             string  `json:"telefono"`
	Correo               string  `json:"correo"`
}

type ContingencyDetail struct {
	NoItem           int    `json:"noItem"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	TipoDoc          string `json:"tipoDoc"`
}

type ContingencyReason struct {
	FInicio            string  `json:"fInicio"`
	FFin               string  `json:"fFin"`
	HInicio            string  `json:"hInicio"`
	HFin               string  `json:"hFin"`
	TipoContingencia   int     `json:"tipoContingencia"`
	MotivoContingencia *string `json:"motivoContingencia"`
}

// AssembleContingency construye el reporte para las facturas emitidas sin conexión.
// Cada factura debe tener código de generación asignado.
func (a *Assembler) AssembleContingency(company *entity.Company, invoices []*entity.Invoice, req ContingencyRequest) (*ContingencyReport, error) {
	if company == nil {
		return nil, domain.ErrMissingIssuer
	}
	if len(invoices) == 0 || req.Type < ContingencyMHUnavailable || req.Type > ContingencyOther || req.End.Before(req.Start) {
		return nil, domain.ErrInvalidInput
	}
	if req.Type == ContingencyOther && strings.TrimSpace(req.Reason) == "" {
		return nil, domain.ErrInvalidInput
	}

	details := make([]ContingencyDetail, 0, len(invoices))
	for i, inv := range invoices {
		if inv == nil || inv.GenerationCode == "" {
			return nil, domain.ErrInvalidInput
		}
		details = append(details, ContingencyDetail{
			NoItem:           i + 1,
			CodigoGeneracion: inv.GenerationCode,
			TipoDoc:          TypeInfoFor(inv.Type).Code,
		})
	}

	eventCode, err := a.ids.GenerationCode(nil)
	if err != nil {
		return nil, err
	}
	now := a.now().In(ElSalvador)
	start, end := req.Start.In(ElSalvador), req.End.In(ElSalvador)

	return &ContingencyReport{
		Identificacion: ContingencyIdentification{
			Version:          pkgdte.ContingencySchema,
			Ambiente:         a.ambiente,
			CodigoGeneracion: eventCode,
			FTransmision:     now.Format("2006-01-02"),
			HTransmision:     now.Format("15:04:05"),
		},
		Emisor: ContingencyIssuer{
			Nit:                  pkgdte.DigitsOnly(company.NIT),
			Nombre:               pkgdte.Clean(company.Name),
			NombreResponsable:    pkgdte.Clean(req.ResponsibleName),
			TipoDocResponsable:   strings.TrimSpace(req.ResponsibleDocType),
			NumeroDocResponsable: strings.TrimSpace(req.ResponsibleDocNum),
			TipoEstablecimiento:  nonEmpty(strings.TrimSpace(company.EstablishmentType), pkgdte.EstablishmentCasa),
			CodEstableMH:         pkgdte.OptionalString(company.EstablishmentCodeMH),
			CodPuntoVenta:        pkgdte.OptionalString(company.POSCode),
			Telefono:             pkgdte.Clean(company.Phone),
			Correo:               pkgdte.Clean(company.Email),
		},
		DetalleDTE: details,
		Motivo: ContingencyReason{
			FInicio:            start.Format("2006-01-02"),
			FFin:               end.Format("2006-01-02"),
			HInicio:            start.Format("15:04:05"),
			HFin:               end.Format("15:04:05"),
			TipoContingencia:   req.Type,
			MotivoContingencia: pkgdte.OptionalString(req.Reason),
		},
	}, nil
}
