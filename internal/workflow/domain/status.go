package domain

import "strings"

// Status describes an entity lifecycle label used by transition decisions.
type Status string

const (
	StatusUnspecified Status = ""
	// Seller and product statuses.
	StatusDraft               Status = "draft"
	StatusPendingVerification Status = "pending_verification"
	StatusUnderReview         Status = "under_review"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusSuspended           Status = "suspended"
	StatusBlocked             Status = "blocked"
	// Return request statuses. Approved and rejected are shared labels.
	StatusRequested       Status = "requested"
	StatusPickupScheduled Status = "pickup_scheduled"
	StatusPickedUp        Status = "picked_up"
	StatusRefunded        Status = "refunded"
	StatusReplaced        Status = "replaced"
	StatusCompleted       Status = "completed"
)

// ParseStatus canonicalizes a status label.
func ParseStatus(value string) (Status, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return StatusUnspecified, false
	}
	switch Status(trimmed) {
	case StatusDraft, StatusPendingVerification, StatusUnderReview, StatusApproved,
		StatusRejected, StatusSuspended, StatusBlocked, StatusRequested,
		StatusPickupScheduled, StatusPickedUp, StatusRefunded, StatusReplaced,
		StatusCompleted:
		return Status(trimmed), true
	default:
		return StatusUnspecified, false
	}
}
