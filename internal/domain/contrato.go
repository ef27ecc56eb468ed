package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Plano is the health & safety service plan attached to a contract.
type Plano string

const (
	PlanoBasico        Plano = "basico"
	PlanoIntermediario Plano = "intermediario"
	PlanoCompleto      Plano = "completo"
)

func (p Plano) IsValid() bool {
	switch p {
	case PlanoBasico, PlanoIntermediario, PlanoCompleto:
		return true
	}
	return false
}

// Contrato is the core domain entity: a client company's service contract.
type Contrato struct {
	ID         string     `json:"id"`
	Empresa    string     `json:"empresa"`
	CNPJ       string     `json:"cnpj"`
	Plano      Plano      `json:"plano"`
	Vidas      int        `json:"vidas"`
	CreatedBy  string     `json:"created_by,omitempty"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CreateContratoRequest is the inbound payload for a new contract.
type CreateContratoRequest struct {
	Empresa   string `json:"empresa"`
	CNPJ      string `json:"cnpj"`
	Plano     Plano  `json:"plano"`
	Vidas     int    `json:"vidas"`
	CreatedBy string `json:"created_by,omitempty"`
}

const (
	maxEmpresaLen = 200
	maxVidas      = 100000
)

// Validate checks the request and normalizes the CNPJ to bare digits in place.
func (r *CreateContratoRequest) Validate() error {
	r.Empresa = strings.TrimSpace(r.Empresa)
	if r.Empresa == "" || utf8.RuneCountInString(r.Empresa) > maxEmpresaLen {
		return ErrInvalidEmpresa
	}
	cnpj, ok := NormalizeCNPJ(r.CNPJ)
	if !ok {
		return ErrInvalidCNPJ
	}
	r.CNPJ = cnpj
	if !r.Plano.IsValid() {
		return ErrInvalidPlano
	}
	if r.Vidas < 1 || r.Vidas > maxVidas {
		return ErrInvalidVidas
	}
	return nil
}

// ListFilter holds query parameters for paginated contract listing.
type ListFilter struct {
	Plano *Plano
	From  *time.Time
	To    *time.Time
	Page  int
	Limit int
}
