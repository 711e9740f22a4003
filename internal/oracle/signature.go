package oracle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mdaamer248/Athelete/internal/domain"
)

// ErrBadSignature is returned when an attestation's signature does not
// match its payload.
var ErrBadSignature = errors.New("attestation signature mismatch")

// Signer signs and verifies attestation events with a shared secret.
// The oracle signs on submission; the worker verifies before the event is
// allowed anywhere near the intake.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given shared secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// signaturePayload is the canonical byte string covered by the signature:
// {timestamp}.{event_id}.{class_id}.{instance_id}.{views}.{votes}
// The timestamp guards against replay, the event id against duplication,
// and the remaining fields bind the signal to one card.
func signaturePayload(event *domain.AttestationEvent) string {
	return fmt.Sprintf("%d.%s.%d.%d.%d.%d",
		event.Timestamp.Unix(),
		event.EventID,
		event.ClassID,
		event.InstanceID,
		event.Views,
		event.Votes,
	)
}

// Sign computes the event's HMAC-SHA256 signature.
// Format: "sha256=<hex_signature>"
func (s *Signer) Sign(event *domain.AttestationEvent) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(signaturePayload(event)))
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks the event's signature against its payload. Returns
// ErrBadSignature on any mismatch.
func (s *Signer) Verify(event *domain.AttestationEvent) error {
	expected := s.Sign(event)
	if !hmac.Equal([]byte(expected), []byte(event.Signature)) {
		return ErrBadSignature
	}
	return nil
}
