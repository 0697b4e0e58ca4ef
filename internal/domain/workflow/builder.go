package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether an edge may be taken. It sees the context passed
// to Fire or CanFire.
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects the lifecycle table. Build freezes a snapshot
// of it, so later Configure calls never leak into machines already handed out.
type StateMachineBuilder interface {
	Configure(state State) StateConfiguration
	Build(initialState State) StateMachine
}

// StateConfiguration adds outgoing edges to one state.
type StateConfiguration interface {
	Permit(trigger Trigger, toState State) StateConfiguration
	// PermitIf adds a guarded edge. Edges for the same trigger are tried in
	// the order they were added.
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type edge struct {
	to    State
	guard GuardFunc
}

func (e edge) open(ctx context.Context) bool {
	return e.guard == nil || e.guard(ctx)
}

// table maps a state and trigger to candidate edges
type table map[State]map[Trigger][]edge

func (t table) clone() table {
	out := make(table, len(t))
	for from, byTrigger := range t {
		row := make(map[Trigger][]edge, len(byTrigger))
		for trigger, edges := range byTrigger {
			row[trigger] = append([]edge(nil), edges...)
		}
		out[from] = row
	}
	return out
}

type builder struct {
	edges table
	rules map[State]*stateRules
}

type stateRules struct {
	from State
	row  map[Trigger][]edge
}

// NewBuilder returns an empty lifecycle builder.
func NewBuilder() StateMachineBuilder {
	return &builder{edges: make(table), rules: make(map[State]*stateRules)}
}

func (b *builder) Configure(state State) StateConfiguration {
	mustBeValid(state)
	if r, ok := b.rules[state]; ok {
		return r
	}
	row := make(map[Trigger][]edge)
	b.edges[state] = row
	r := &stateRules{from: state, row: row}
	b.rules[state] = r
	return r
}

func (b *builder) Build(initialState State) StateMachine {
	mustBeValid(initialState)
	return &machine{
		current: initialState,
		path:    []State{initialState},
		edges:   b.edges.clone(),
	}
}

func (r *stateRules) Permit(trigger Trigger, toState State) StateConfiguration {
	return r.PermitIf(trigger, toState, nil)
}

func (r *stateRules) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	mustBeValid(toState)
	if r.from.IsTerminal() {
		panic(fmt.Sprintf("terminal state %s cannot have transitions", r.from))
	}
	r.row[trigger] = append(r.row[trigger], edge{to: toState, guard: guard})
	return r
}

func mustBeValid(s State) {
	if !s.IsValid() {
		panic(fmt.Errorf("%w: %q", ErrInvalidState, s))
	}
}

type machine struct {
	current State
	path    []State
	edges   table
}

func (m *machine) State() State {
	return m.current
}

// pick returns the first open edge for trigger
func (m *machine) pick(ctx context.Context, trigger Trigger) (edge, error) {
	edges := m.edges[m.current][trigger]
	if len(edges) == 0 {
		return edge{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	for _, e := range edges {
		if e.open(ctx) {
			return e, nil
		}
	}
	return edge{}, fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) CanFire(ctx context.Context, trigger Trigger) bool {
	_, err := m.pick(ctx, trigger)
	return err == nil
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	e, err := m.pick(ctx, trigger)
	if err != nil {
		return err
	}
	m.current = e.to
	m.path = append(m.path, e.to)
	return nil
}

// PermittedTriggers lists configured triggers out of the current state,
// sorted, without evaluating guards.
func (m *machine) PermittedTriggers() []Trigger {
	row := m.edges[m.current]
	triggers := make([]Trigger, 0, len(row))
	for trigger := range row {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

func (m *machine) Path() []State {
	return append([]State(nil), m.path...)
}
