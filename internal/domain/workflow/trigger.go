package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerExtract         Trigger = "EXTRACT"
	TriggerEncode          Trigger = "ENCODE"
	TriggerCommitPrimary   Trigger = "COMMIT_PRIMARY"
	TriggerCommitSecondary Trigger = "COMMIT_SECONDARY"
	TriggerDeferSecondary  Trigger = "DEFER_SECONDARY"
	TriggerFinish          Trigger = "FINISH"
	TriggerMarkDuplicate   Trigger = "MARK_DUPLICATE"
	TriggerFail            Trigger = "FAIL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
