package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EscalationStatus tracks the lifecycle of an escalation request.
type EscalationStatus string

const (
	// EscalationPending awaits a qualified confirmer.
	EscalationPending EscalationStatus = "pending"
	// EscalationConfirmed means the underlying transition was applied.
	EscalationConfirmed EscalationStatus = "confirmed"
	// EscalationDismissed means the request was declined without a transition.
	EscalationDismissed EscalationStatus = "dismissed"
)

// ParseEscalationStatus canonicalizes an escalation status label.
func ParseEscalationStatus(value string) (EscalationStatus, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch EscalationStatus(trimmed) {
	case EscalationPending, EscalationConfirmed, EscalationDismissed:
		return EscalationStatus(trimmed), true
	default:
		return "", false
	}
}

// EscalationRequest holds a transition that a principal could request but not
// finalize. The entity status stays untouched until a qualified confirmer
// resolves the request.
type EscalationRequest struct {
	ID         string
	EntityID   string
	EntityType EntityType
	// Action and TargetStatus capture the proposed transition.
	Action       string
	TargetStatus Status
	// PayloadJSON is the original request payload, replayed on confirm.
	PayloadJSON json.RawMessage
	Reason      string
	Notes       string
	RequestedBy string
	RequestedAt time.Time
	Status      EscalationStatus
	// ResolvedBy, ResolvedAt and ResolutionReason are set on confirm/dismiss.
	ResolvedBy       string
	ResolvedAt       time.Time
	ResolutionReason string
}
