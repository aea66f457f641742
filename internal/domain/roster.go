package domain

import "context"

// RosterState is the (filled, capacity) pair for one role of an event.
// swagger:model RosterState
type RosterState struct {
	Role     string `json:"role"`
	Filled   int    `json:"filled"`
	Capacity int    `json:"capacity"`
}

// RegistrationService enforces the slot-capacity and single-claim invariants
// when participants claim or release roles. Join and Leave are idempotent
// from the caller's perspective on retry: a retried Join that lost its first
// attempt surfaces ErrAlreadyRegistered, a retried Leave ErrNotRegistered.
type RegistrationService interface {
	// Join adds the participant to the role's roster. Fails with
	// ErrUnknownRole, ErrAlreadyRegistered, or ErrRoleFull.
	Join(ctx context.Context, communityID, eventID, role, participantID string) (RosterState, error)
	// Leave removes the participant from the role's roster. Fails with
	// ErrUnknownRole or ErrNotRegistered.
	Leave(ctx context.Context, communityID, eventID, role, participantID string) (RosterState, error)
	// Counts returns per-role occupancy for the event, derived from roster
	// sizes and the snapshotted schema.
	Counts(ctx context.Context, communityID, eventID string) ([]RosterState, error)
}
