package engine

import (
	"fmt"

	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// Replay folds an entity's audit trail over its initial status and verifies
// the chain is intact: each entry must start where the previous one ended and
// versions must advance by exactly one.
//
// The audit trail is the entity's authoritative history; replaying it must
// reproduce the stored status exactly, so an integrity check can compare the
// fold result against the live record.
func Replay(initial domain.Status, entries []domain.AuditEntry) (domain.Status, error) {
	current := initial
	version := int64(1)
	for i, entry := range entries {
		if entry.FromStatus != current {
			return "", fmt.Errorf("entry %d starts at %q, trail is at %q", i, entry.FromStatus, current)
		}
		if entry.ResultingVersion != version+1 {
			return "", fmt.Errorf("entry %d has version %d, want %d", i, entry.ResultingVersion, version+1)
		}
		current = entry.ToStatus
		version = entry.ResultingVersion
	}
	return current, nil
}
