package dte

import (
	"strings"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

// Tipos de invalidación (CAT-024).
const (
	InvalidationErrorInfo   = 1 // Error en la información del DTE
	InvalidationRescind     = 2 // Rescindir de la operación
	InvalidationOtherReason = 3 // Otro
)

// InvalidationRequest datos que aporta el usuario para anular un DTE aceptado.
type InvalidationRequest struct {
	Type               int
	Reason             string
	ResponsibleName    string
	ResponsibleDocType string
	ResponsibleDocNum  string
	ReplacementCode    string // código de generación del documento que reemplaza (tipos 1 y 3)
}

// InvalidationDocument evento de invalidación.
type InvalidationDocument struct {
	Identificacion InvalidationIdentification `json:"identificacion"`
	Emisor         InvalidationIssuer         `json:"emisor"`
	Documento      InvalidatedDocument        `json:"documento"`
	Motivo         InvalidationReason         `json:"motivo"`
}

type InvalidationIdentification struct {
	Version          int    `json:"version"`
	Ambiente         string `json:"ambiente"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	FecAnula         string `json:"fecAnula"`
	HorAnula         string `json:"horAnula"`
}

type InvalidationIssuer struct {
	Nit                 string  `json:"nit"`
	Nombre              string  `json:"nombre"`
	TipoEstablecimiento string  `json:"tipoEstablecimiento"`
	NomEstablecimiento  *string `json:"nomEstablecimiento"`
	CodEstableMH        *string `json:"codEstableMH"`
	CodPuntoVentaMH     *string `json:"codPuntoVentaMH"`
	Telefono            string  `json:"telefono"`
	Correo              string  `json:"correo"`
}

type InvalidatedDocument struct {
	TipoDte           string  `json:"tipoDte"`
	CodigoGeneracion  string  `json:"codigoGeneracion"`
	SelloRecibido     string  `json:"selloRecibido"`
	NumeroControl     string  `json:"numeroControl"`
	FecEmi            string  `json:"fecEmi"`
	MontoIva          *Amount `json:"montoIva"`
	CodigoGeneracionR *string `json:"codigoGeneracionR"`
}

type InvalidationReason struct {
	TipoAnulacion     int     `json:"tipoAnulacion"`
	MotivoAnulacion   *string `json:"motivoAnulacion"`
	NombreResponsable string  `json:"nombreResponsable"`
	TipDocResponsable string  `json:"tipDocResponsable"`
	NumDocResponsable string  `json:"numDocResponsable"`
}

// AssembleInvalidation construye el evento de invalidación de una factura ya aceptada.
func (a *Assembler) AssembleInvalidation(inv *entity.Invoice, company *entity.Company, req InvalidationRequest) (*InvalidationDocument, error) {
	if inv == nil || inv.ReceptionSeal == "" || inv.GenerationCode == "" {
		return nil, domain.ErrConflict
	}
	if company == nil {
		return nil, domain.ErrMissingIssuer
	}
	if req.Type < InvalidationErrorInfo || req.Type > InvalidationOtherReason || strings.TrimSpace(req.ResponsibleName) == "" {
		return nil, domain.ErrInvalidInput
	}
	// Los tipos 1 y 3 exigen el documento que reemplaza; el 2 no lo admite.
	replacement := pkgdte.OptionalString(req.ReplacementCode)
	if req.Type == InvalidationRescind {
		replacement = nil
	} else if replacement == nil {
		return nil, domain.ErrInvalidInput
	}

	eventCode, err := a.ids.GenerationCode(nil)
	if err != nil {
		return nil, err
	}
	now := a.now().In(ElSalvador)
	issued := inv.IssuedAt
	if inv.ProcessedAt != nil {
		issued = *inv.ProcessedAt
	}

	doc := &InvalidationDocument{
		Identificacion: InvalidationIdentification{
			Version:          pkgdte.InvalidationSchema,
			Ambiente:         a.ambiente,
			CodigoGeneracion: eventCode,
			FecAnula:         now.Format("2006-01-02"),
			HorAnula:         now.Format("15:04:05"),
		},
		Emisor: InvalidationIssuer{
			Nit:                 pkgdte.DigitsOnly(company.NIT),
			Nombre:              pkgdte.Clean(company.Name),
			TipoEstablecimiento: nonEmpty(strings.TrimSpace(company.EstablishmentType), pkgdte.EstablishmentCasa),
			NomEstablecimiento:  pkgdte.OptionalString(company.TradeName),
			CodEstableMH:        pkgdte.OptionalString(company.EstablishmentCodeMH),
			CodPuntoVentaMH:     pkgdte.OptionalString(company.POSCodeMH),
			Telefono:            pkgdte.Clean(company.Phone),
			Correo:              pkgdte.Clean(company.Email),
		},
		Documento: InvalidatedDocument{
			TipoDte:           TypeInfoFor(inv.Type).Code,
			CodigoGeneracion:  inv.GenerationCode,
			SelloRecibido:     inv.ReceptionSeal,
			NumeroControl:     inv.ControlNumber,
			FecEmi:            issued.In(ElSalvador).Format("2006-01-02"),
			CodigoGeneracionR: replacement,
		},
		Motivo: InvalidationReason{
			TipoAnulacion:     req.Type,
			MotivoAnulacion:   pkgdte.OptionalString(req.Reason),
			NombreResponsable: pkgdte.Clean(req.ResponsibleName),
			TipDocResponsable: strings.TrimSpace(req.ResponsibleDocType),
			NumDocResponsable: strings.TrimSpace(req.ResponsibleDocNum),
		},
	}
	if inv.Totals != nil {
		iva := NewAmount(pkgdte.Round(inv.Totals.Tax, 2))
		doc.Documento.MontoIva = &iva
	}
	return doc, nil
}
