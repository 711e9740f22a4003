package messaging

import (
	"context"

	"github.com/mdaamer248/Athelete/internal/domain"
)

// Publisher defines the interface for publishing attestation events to the
// message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishAttestation publishes an attestation event to the message broker
	PublishAttestation(ctx context.Context, event *domain.AttestationEvent) error
	// Close closes the connection
	Close()
}
