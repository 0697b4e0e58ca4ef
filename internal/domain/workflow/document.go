package workflow

import (
	"context"
	"sync"
)

// documentLifecycle is built on first use. Building it during package
// initialization would run before validStates is populated.
var documentLifecycle = sync.OnceValue(newDocumentLifecycle)

type encodingSkippedKey struct{}

// WithEncodingSkipped marks ctx for a document whose interchange encoding
// failed. Only such a document may commit straight from EXTRACTED.
func WithEncodingSkipped(ctx context.Context) context.Context {
	return context.WithValue(ctx, encodingSkippedKey{}, true)
}

func encodingSkipped(ctx context.Context) bool {
	skipped, _ := ctx.Value(encodingSkippedKey{}).(bool)
	return skipped
}

func newDocumentLifecycle() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateReceived).
		Permit(TriggerExtract, StateExtracted).
		Permit(TriggerMarkDuplicate, StateDuplicate).
		Permit(TriggerFail, StateFailed)

	b.Configure(StateExtracted).
		Permit(TriggerEncode, StateEncoded).
		PermitIf(TriggerCommitPrimary, StatePrimaryCommitted, encodingSkipped).
		Permit(TriggerMarkDuplicate, StateDuplicate).
		Permit(TriggerFail, StateFailed)

	b.Configure(StateEncoded).
		Permit(TriggerCommitPrimary, StatePrimaryCommitted).
		Permit(TriggerMarkDuplicate, StateDuplicate).
		Permit(TriggerFail, StateFailed)

	// no FAIL once the primary store holds the document
	b.Configure(StatePrimaryCommitted).
		Permit(TriggerCommitSecondary, StateSecondaryCommitted).
		Permit(TriggerDeferSecondary, StateSecondaryDeferred)

	b.Configure(StateSecondaryCommitted).
		Permit(TriggerFinish, StateDone)

	b.Configure(StateSecondaryDeferred).
		Permit(TriggerFinish, StateDone)

	return b
}

// NewDocumentMachine returns a lifecycle machine for one submitted document,
// starting in RECEIVED
func NewDocumentMachine() StateMachine {
	return documentLifecycle().Build(StateReceived)
}
