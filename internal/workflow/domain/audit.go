package domain

import "time"

// AuditEntry records one applied transition in an entity's append-only history.
//
// The ordered sequence of entries for an entity, replayed from the initial
// status, reproduces its current status exactly; ResultingVersion is unique
// per entity and totals-orders the trail.
type AuditEntry struct {
	EntityID   string
	FromStatus Status
	ToStatus   Status
	// Action is the transition name the caller requested (approve, block, ...).
	Action  string
	ActorID string
	// RequestedBy preserves the original requester when a confirmer applied
	// an escalated transition. Empty for direct transitions.
	RequestedBy      string
	Reason           string
	Notes            string
	OccurredAt       time.Time
	ResultingVersion int64
}
