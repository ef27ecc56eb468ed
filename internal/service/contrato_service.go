package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/repository"
)

// ContratoService coordinates the repository and the notification publisher.
// All business rules for contract creation live here; HTTP handlers and the
// relay worker depend on this service, not on each other.
type ContratoService struct {
	repo      repository.ContratoRepository
	notifier  *NotificationService
	logger    *zap.Logger
	onCreated func(domain.Plano)
}

// NewContratoService builds the service. onCreated is optional (nil = no-op).
func NewContratoService(
	repo repository.ContratoRepository,
	notifier *NotificationService,
	logger *zap.Logger,
	onCreated func(domain.Plano),
) *ContratoService {
	if onCreated == nil {
		onCreated = func(domain.Plano) {}
	}
	return &ContratoService{repo: repo, notifier: notifier, logger: logger, onCreated: onCreated}
}

// Create validates and persists a contract, then publishes its toast.
// The toast is best-effort: once the row is committed the call succeeds.
func (s *ContratoService) Create(ctx context.Context, req domain.CreateContratoRequest) (*domain.Contrato, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Contrato{
		ID:        uuid.New().String(),
		Empresa:   req.Empresa,
		CNPJ:      req.CNPJ,
		Plano:     req.Plano,
		Vidas:     req.Vidas,
		CreatedBy: req.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("persist contrato: %w", err)
	}
	s.onCreated(c.Plano)

	notificationID := s.notifier.Publish(ctx, c)
	s.logger.Info("contrato created",
		zap.String("contrato_id", c.ID),
		zap.String("plano", string(c.Plano)),
		zap.String("notification_id", notificationID),
	)
	return c, nil
}

func (s *ContratoService) GetByID(ctx context.Context, id string) (*domain.Contrato, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ContratoService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Contrato, int, error) {
	return s.repo.List(ctx, filter)
}
