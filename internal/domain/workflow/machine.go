package workflow

import "context"

// StateMachine tracks one document through its lifecycle.
// Instances are request-local and not safe for concurrent use.
type StateMachine interface {
	State() State

	// CanFire reports whether Fire would succeed, guards included.
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire takes the first edge for trigger whose guard passes. On error
	// the state is unchanged.
	Fire(ctx context.Context, trigger Trigger) error

	PermittedTriggers() []Trigger

	// Path returns every state visited so far, starting with the initial state
	Path() []State
}
