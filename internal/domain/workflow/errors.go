package workflow

import "errors"

var (
	// ErrInvalidTransition means the current state has no edge for the trigger.
	ErrInvalidTransition = errors.New("lifecycle: transition not allowed")

	// ErrInvalidState is the panic value for an unknown state in the lifecycle table.
	ErrInvalidState = errors.New("lifecycle: unknown state")

	// ErrGuardFailed means edges exist for the trigger but every guard refused.
	ErrGuardFailed = errors.New("lifecycle: guard refused transition")
)
