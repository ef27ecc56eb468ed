package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/plbrasil/hs-notify/internal/domain"
)

// MockContratoRepository is a hand-written, in-memory implementation of
// ContratoRepository used in unit tests.
type MockContratoRepository struct {
	mu        sync.RWMutex
	contratos map[string]*domain.Contrato

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr         error
	GetByIDErr        error
	MarkNotifiedErr   error
	FindUnnotifiedErr error
}

func NewMockContratoRepository() *MockContratoRepository {
	return &MockContratoRepository{contratos: make(map[string]*domain.Contrato)}
}

func (m *MockContratoRepository) Create(_ context.Context, c *domain.Contrato) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contratos {
		if existing.CNPJ == c.CNPJ {
			return domain.ErrConflict
		}
	}
	clone := *c
	m.contratos[c.ID] = &clone
	return nil
}

func (m *MockContratoRepository) GetByID(_ context.Context, id string) (*domain.Contrato, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contratos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MockContratoRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Contrato, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Contrato, 0, len(m.contratos))
	for _, c := range m.contratos {
		if f.Plano != nil && c.Plano != *f.Plano {
			continue
		}
		clone := *c
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, len(result), nil
}

func (m *MockContratoRepository) MarkNotified(_ context.Context, id string, at time.Time) error {
	if m.MarkNotifiedErr != nil {
		return m.MarkNotifiedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contratos[id]; ok {
		c.NotifiedAt = &at
		c.UpdatedAt = at
	}
	return nil
}

func (m *MockContratoRepository) FindUnnotified(_ context.Context, since time.Time, limit int) ([]*domain.Contrato, error) {
	if m.FindUnnotifiedErr != nil {
		return nil, m.FindUnnotifiedErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Contrato
	for _, c := range m.contratos {
		if c.NotifiedAt == nil && !c.CreatedAt.Before(since) {
			clone := *c
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
