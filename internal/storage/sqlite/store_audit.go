package sqlite

import (
	"context"
	"fmt"

	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// ListAuditEntries returns the entity's trail ordered by resulting version.
// A non-positive limit returns the full trail.
func (s *Store) ListAuditEntries(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	query := `SELECT entity_id, from_status, to_status, action, actor_id, requested_by, reason, notes, occurred_at, resulting_version
		FROM audit_entries WHERE entity_id = ? ORDER BY resulting_version ASC`
	args := []any{entityID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var fromStatus, toStatus string
		var occurredAt int64
		err := rows.Scan(&entry.EntityID, &fromStatus, &toStatus, &entry.Action, &entry.ActorID,
			&entry.RequestedBy, &entry.Reason, &entry.Notes, &occurredAt, &entry.ResultingVersion)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.FromStatus = domain.Status(fromStatus)
		entry.ToStatus = domain.Status(toStatus)
		entry.OccurredAt = fromMillis(occurredAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
