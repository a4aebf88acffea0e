package onboarding

import "fmt"

type State string

const (
	StateStarted          State = "started"
	StateIdentityResolved State = "identity_resolved"
	StateLocalUserCreated State = "local_user_created"
	StateProfileCreated   State = "profile_created"
	StateCredentialStored State = "credential_stored"
	StateCompleted        State = "completed"
	StateRejected         State = "rejected"
	StateCompensating     State = "compensating"
	StateCompensationDone State = "compensation_done"
)

type Event string

const (
	EventIdentityResolved Event = "identity_resolved"
	EventRejected         Event = "rejected"
	EventUserCreated      Event = "user_created"
	EventProfileCreated   Event = "profile_created"
	EventCredentialStored Event = "credential_stored"
	EventFinished         Event = "finished"
	// EventAlreadyOnboarded: a concurrent run for the same identity created
	// the local user first.
	EventAlreadyOnboarded Event = "already_onboarded"
	EventStepFailed       Event = "step_failed"
	EventCompensated      Event = "compensated"
)

// Compensation names an undo action.
type Compensation string

const (
	CompensateProfile  Compensation = "delete_profile"
	CompensateUser     Compensation = "delete_user"
	CompensateIdentity Compensation = "delete_external_identity"
)

type transitionKey struct {
	from State
	on   Event
}

type transition struct {
	next State
	// undo runs in slice order: reverse creation order, identity last.
	undo []Compensation
}

var transitions = map[transitionKey]transition{
	{StateStarted, EventIdentityResolved}: {next: StateIdentityResolved},
	{StateStarted, EventRejected}:         {next: StateRejected},

	{StateIdentityResolved, EventUserCreated}:      {next: StateLocalUserCreated},
	{StateIdentityResolved, EventAlreadyOnboarded}: {next: StateCompleted},
	{StateIdentityResolved, EventStepFailed}: {
		next: StateCompensating,
		undo: []Compensation{CompensateIdentity},
	},

	{StateLocalUserCreated, EventProfileCreated}: {next: StateProfileCreated},
	{StateLocalUserCreated, EventStepFailed}: {
		next: StateCompensating,
		undo: []Compensation{CompensateUser, CompensateIdentity},
	},

	{StateProfileCreated, EventCredentialStored}: {next: StateCredentialStored},
	{StateProfileCreated, EventFinished}:         {next: StateCompleted},
	{StateProfileCreated, EventStepFailed}: {
		next: StateCompensating,
		undo: []Compensation{CompensateProfile, CompensateUser, CompensateIdentity},
	},

	{StateCredentialStored, EventFinished}: {next: StateCompleted},

	{StateCompensating, EventCompensated}: {next: StateCompensationDone},
}

// IsTerminal reports whether no further event is accepted in s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateRejected, StateCompensationDone:
		return true
	}
	return false
}

// saga tracks one onboarding run.
type saga struct {
	identityID string
	state      State
	history    []State
	undo       []Compensation
}

func newSaga(identityID string) *saga {
	return &saga{identityID: identityID, state: StateStarted, history: []State{StateStarted}}
}

// fire applies ev to the current state.
func (s *saga) fire(ev Event) error {
	t, ok := transitions[transitionKey{from: s.state, on: ev}]
	if !ok {
		return fmt.Errorf("onboarding: no transition from %s on %s", s.state, ev)
	}
	if t.undo != nil {
		s.undo = append([]Compensation(nil), t.undo...)
	}
	s.state = t.next
	s.history = append(s.history, t.next)
	return nil
}
