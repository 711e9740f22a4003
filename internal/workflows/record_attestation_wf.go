package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/logger"
)

// RecordAttestation verifies the event's signature and writes its signal
// through the attestation intake. Verification failures are terminal; the
// intake write retries on transient database errors.
func (w *attestationWorker) RecordAttestation(ctx workflow.Context, event *domain.AttestationEvent) error {
	logger.InfoWf(ctx, "Starting attestation recording",
		zap.String("event_id", event.EventID),
		zap.Uint64("class_id", uint64(event.ClassID)),
		zap.Uint32("instance_id", uint32(event.InstanceID)))

	// Signature check first: nothing touches the intake until the payload
	// proves it came from the oracle.
	verifyOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        2,
			InitialInterval:        time.Second,
			NonRetryableErrorTypes: []string{BadSignatureErrorType},
		},
	}
	verifyCtx := workflow.WithActivityOptions(ctx, verifyOptions)
	if err := workflow.ExecuteActivity(verifyCtx, w.executor.VerifyAttestation, event).Get(verifyCtx, nil); err != nil {
		logger.WarnWf(ctx, "Attestation verification failed",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return err
	}

	recordOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	recordCtx := workflow.WithActivityOptions(ctx, recordOptions)
	if err := workflow.ExecuteActivity(recordCtx, w.executor.RecordAttestationSignal, event).Get(recordCtx, nil); err != nil {
		return err
	}

	logger.InfoWf(ctx, "Attestation recorded",
		zap.String("event_id", event.EventID),
		zap.Uint32("views", event.Views),
		zap.Uint32("votes", event.Votes))
	return nil
}
