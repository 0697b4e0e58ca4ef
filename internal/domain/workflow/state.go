package workflow

// State represents a stage in the lifecycle of one submitted document
type State string

const (
	StateReceived           State = "RECEIVED"
	StateExtracted          State = "EXTRACTED"
	StateEncoded            State = "ENCODED"
	StatePrimaryCommitted   State = "PRIMARY_COMMITTED"
	StateSecondaryCommitted State = "SECONDARY_COMMITTED"
	StateSecondaryDeferred  State = "SECONDARY_DEFERRED"
	StateDone               State = "DONE"
	StateDuplicate          State = "DUPLICATE"
	StateFailed             State = "FAILED"
)

var validStates = map[State]bool{
	StateReceived:           true,
	StateExtracted:          true,
	StateEncoded:            true,
	StatePrimaryCommitted:   true,
	StateSecondaryCommitted: true,
	StateSecondaryDeferred:  true,
	StateDone:               true,
	StateDuplicate:          true,
	StateFailed:             true,
}

var terminalStates = map[State]bool{
	StateDone:      true,
	StateDuplicate: true,
	StateFailed:    true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsDurable returns true once the primary store holds the document.
// Later failures never roll a durable document back.
func (s State) IsDurable() bool {
	switch s {
	case StatePrimaryCommitted, StateSecondaryCommitted, StateSecondaryDeferred, StateDone:
		return true
	}
	return false
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
