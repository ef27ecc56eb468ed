package repository

import (
	"context"
	"time"

	"github.com/plbrasil/hs-notify/internal/domain"
)

// ContratoRepository defines all persistence operations for contracts.
// PostgreSQL and SQLite implementations live alongside; tests use a
// hand-written mock (mock_contrato_repo.go).
type ContratoRepository interface {
	Create(ctx context.Context, c *domain.Contrato) error
	GetByID(ctx context.Context, id string) (*domain.Contrato, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Contrato, int, error)
	MarkNotified(ctx context.Context, id string, at time.Time) error
	// FindUnnotified returns contracts created at or after since whose
	// notification was never published, oldest first.
	FindUnnotified(ctx context.Context, since time.Time, limit int) ([]*domain.Contrato, error)
}
