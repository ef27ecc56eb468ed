package provider

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// MessagingClient is the subset of *messaging.Client used here.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMProvider pushes notifications to a Firebase Cloud Messaging topic that
// the dashboard's mobile and web clients subscribe to.
type FCMProvider struct {
	client MessagingClient
	topic  string
}

// NewFCMProvider initialises a Firebase app from a service-account file.
// An empty credentialsFile falls back to Application Default Credentials.
func NewFCMProvider(ctx context.Context, credentialsFile, topic string) (*FCMProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	return NewFCMProviderWithClient(client, topic), nil
}

func NewFCMProviderWithClient(client MessagingClient, topic string) *FCMProvider {
	return &FCMProvider{client: client, topic: topic}
}

func (p *FCMProvider) Name() string { return "fcm" }

func (p *FCMProvider) Send(ctx context.Context, d Delivery) (*SendResponse, error) {
	msg := &messaging.Message{
		Topic: p.topic,
		Notification: &messaging.Notification{
			Title: "Novo contrato",
			Body:  d.Payload.Message,
		},
		Data: map[string]string{
			"notification_id": d.NotificationID,
			"contrato_id":     d.Payload.ContratoID,
			"empresa":         d.Payload.Empresa,
			"plano":           string(d.Payload.Plano),
			"vidas":           strconv.Itoa(d.Payload.Vidas),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	id, err := p.client.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send fcm message: %w", err)
	}
	return &SendResponse{MessageID: id}, nil
}

var _ Provider = (*FCMProvider)(nil)
