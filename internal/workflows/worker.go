package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/mdaamer248/Athelete/internal/domain"
)

// AttestationWorker defines the interface for processing attestation events
//
//go:generate mockgen -source=worker.go -destination=../mocks/worker.go -package=mocks -mock_names=AttestationWorker=MockAttestationWorker
type AttestationWorker interface {
	// RecordAttestation verifies and records one oracle attestation
	RecordAttestation(ctx workflow.Context, event *domain.AttestationEvent) error
}

// attestationWorker is the concrete implementation of AttestationWorker
type attestationWorker struct {
	executor Executor
}

// NewAttestationWorker creates a new attestation worker instance
func NewAttestationWorker(executor Executor) AttestationWorker {
	return &attestationWorker{
		executor: executor,
	}
}
