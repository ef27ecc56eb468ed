package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict: a contract with this CNPJ already exists")
	ErrInvalidEmpresa = errors.New("empresa must be between 1 and 200 characters")
	ErrInvalidCNPJ    = errors.New("cnpj must contain 14 digits with valid check digits")
	ErrInvalidPlano   = errors.New("invalid plano: must be basico, intermediario, or completo")
	ErrInvalidVidas   = errors.New("vidas must be between 1 and 100000")
	ErrOutboxFull     = errors.New("forwarding outbox is at capacity")
	ErrRateLimited    = errors.New("too many requests, try again later")
)
