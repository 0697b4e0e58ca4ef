package workflow_test

import (
	"context"
	"testing"

	"github.com/isnex/invoice-loader/internal/domain/workflow"
)

func TestNewDocumentMachine_FromImportingPackage(t *testing.T) {
	machine := workflow.NewDocumentMachine()

	if machine.State() != workflow.StateReceived {
		t.Fatalf("State = %v, want %v", machine.State(), workflow.StateReceived)
	}
	if !machine.CanFire(context.Background(), workflow.TriggerExtract) {
		t.Error("a fresh document should accept EXTRACT")
	}
}
