package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	js "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mdaamer248/Athelete/internal/adapter"
	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/logger"
	"github.com/mdaamer248/Athelete/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
}

// NewPublisher creates a new NATS JetStream publisher. The attestation
// stream is created if it does not exist yet so the oracle can start
// before the bridge.
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, jsCtx, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := jsCtx.CreateStream(ctx, js.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{SubjectPattern},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create attestation stream: %w", err)
	}

	return &publisher{
		nc:         nc,
		js:         jsCtx,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
	}, nil
}

// PublishAttestation publishes an attestation event to NATS JetStream
func (p *publisher) PublishAttestation(ctx context.Context, event *domain.AttestationEvent) error {
	logger.Debug("Publishing attestation event", zap.Any("event", event))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.js.Publish(ctx, buildSubject(event), data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// SubjectPattern matches every attestation subject
const SubjectPattern = "attestations.>"

// buildSubject constructs the NATS subject based on the event.
// Format: attestations.{class_id}.{instance_id}
func buildSubject(event *domain.AttestationEvent) string {
	return fmt.Sprintf("attestations.%d.%d", event.ClassID, event.InstanceID)
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
