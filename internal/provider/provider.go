package provider

import (
	"context"
	"time"

	"github.com/plbrasil/hs-notify/internal/domain"
)

// Delivery is a published notification handed to an external push transport.
type Delivery struct {
	NotificationID string                `json:"notification_id"`
	Payload        domain.ContratoCriado `json:"payload"`
	CreatedAt      time.Time             `json:"created_at"`
}

// SendResponse is the provider's acknowledgement.
type SendResponse struct {
	MessageID string `json:"messageId"`
}

// Provider abstracts delivery to an external push transport.
// Mocking this interface in tests gives full control over provider behaviour
// without making real network calls.
type Provider interface {
	Name() string
	Send(ctx context.Context, d Delivery) (*SendResponse, error)
}

// NopProvider acknowledges every delivery without sending anything.
// Used when forwarding is disabled.
type NopProvider struct{}

func (NopProvider) Name() string { return "none" }

func (NopProvider) Send(context.Context, Delivery) (*SendResponse, error) {
	return &SendResponse{}, nil
}

var _ Provider = NopProvider{}
