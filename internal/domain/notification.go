package domain

import "fmt"

// ContratoCriado is the payload published to dashboards when a contract is created.
type ContratoCriado struct {
	ContratoID string `json:"contrato_id"`
	Empresa    string `json:"empresa"`
	Plano      Plano  `json:"plano"`
	Vidas      int    `json:"vidas"`
	CreatedBy  string `json:"created_by,omitempty"`
	Message    string `json:"message"`
}

// NewContratoCriado builds the toast payload for c.
func NewContratoCriado(c *Contrato) ContratoCriado {
	return ContratoCriado{
		ContratoID: c.ID,
		Empresa:    c.Empresa,
		Plano:      c.Plano,
		Vidas:      c.Vidas,
		CreatedBy:  c.CreatedBy,
		Message:    fmt.Sprintf("Novo contrato: %s (%s, %d vidas)", c.Empresa, c.Plano, c.Vidas),
	}
}
