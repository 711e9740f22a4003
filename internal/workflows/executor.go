package workflows

import (
	"context"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/mdaamer248/Athelete/internal/cards"
	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/logger"
	"github.com/mdaamer248/Athelete/internal/oracle"
)

// BadSignatureErrorType is the application error type used for signature
// mismatches so the retry policy can mark them non-retryable.
const BadSignatureErrorType = "BadAttestationSignature"

// Executor defines the interface for executing activities
//
//go:generate mockgen -source=executor.go -destination=../mocks/executor.go -package=mocks -mock_names=Executor=MockExecutor
type Executor interface {
	// VerifyAttestation checks the event's HMAC signature against the
	// shared oracle secret. A mismatch is permanent: retrying cannot fix
	// a forged or corrupted payload.
	VerifyAttestation(ctx context.Context, event *domain.AttestationEvent) error

	// RecordAttestationSignal writes the event's views and votes through
	// the attestation intake
	RecordAttestationSignal(ctx context.Context, event *domain.AttestationEvent) error
}

type executor struct {
	service *cards.Service
	signer  *oracle.Signer
}

// NewExecutor creates a new activities executor
func NewExecutor(service *cards.Service, signer *oracle.Signer) Executor {
	return &executor{
		service: service,
		signer:  signer,
	}
}

func (e *executor) VerifyAttestation(ctx context.Context, event *domain.AttestationEvent) error {
	if err := e.signer.Verify(event); err != nil {
		logger.WarnCtx(ctx, "Rejected attestation with bad signature",
			zap.String("event_id", event.EventID),
			zap.Uint64("class_id", uint64(event.ClassID)),
			zap.Uint32("instance_id", uint32(event.InstanceID)))
		return temporal.NewNonRetryableApplicationError("attestation signature mismatch", BadSignatureErrorType, err)
	}
	return nil
}

func (e *executor) RecordAttestationSignal(ctx context.Context, event *domain.AttestationEvent) error {
	return e.service.RecordSignal(ctx, event.ClassID, event.InstanceID, event.Views, event.Votes)
}
