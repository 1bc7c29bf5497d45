package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

const escalationColumns = "id, entity_id, entity_type, action, target_status, payload_json, reason, notes, requested_by, requested_at, status, resolved_by, resolved_at, resolution_reason"

func scanEscalation(row interface{ Scan(...any) error }) (domain.EscalationRequest, error) {
	var request domain.EscalationRequest
	var entityType, targetStatus, status, payloadJSON string
	var requestedAt, resolvedAt int64
	err := row.Scan(&request.ID, &request.EntityID, &entityType, &request.Action, &targetStatus,
		&payloadJSON, &request.Reason, &request.Notes, &request.RequestedBy, &requestedAt,
		&status, &request.ResolvedBy, &resolvedAt, &request.ResolutionReason)
	if err != nil {
		return domain.EscalationRequest{}, err
	}
	request.EntityType = domain.EntityType(entityType)
	request.TargetStatus = domain.Status(targetStatus)
	request.PayloadJSON = json.RawMessage(payloadJSON)
	request.Status = domain.EscalationStatus(status)
	request.RequestedAt = fromMillis(requestedAt)
	if resolvedAt > 0 {
		request.ResolvedAt = fromMillis(resolvedAt)
	}
	return request, nil
}

// CreateEscalation records a deferred transition awaiting confirmation.
func (s *Store) CreateEscalation(ctx context.Context, request domain.EscalationRequest) error {
	payload := "{}"
	if len(request.PayloadJSON) > 0 {
		payload = string(request.PayloadJSON)
	}
	var resolvedAt int64
	if !request.ResolvedAt.IsZero() {
		resolvedAt = toMillis(request.ResolvedAt)
	}
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO escalations (`+escalationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID, request.EntityID, string(request.EntityType), request.Action, string(request.TargetStatus),
		payload, request.Reason, request.Notes, request.RequestedBy, toMillis(request.RequestedAt),
		string(request.Status), request.ResolvedBy, resolvedAt, request.ResolutionReason)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

// GetEscalation returns one escalation request by id.
func (s *Store) GetEscalation(ctx context.Context, escalationID string) (domain.EscalationRequest, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+escalationColumns+` FROM escalations WHERE id = ?`, escalationID)
	request, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EscalationRequest{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.EscalationRequest{}, fmt.Errorf("select escalation: %w", err)
	}
	return request, nil
}

// ListEscalations returns requests newest first, optionally filtered by status.
func (s *Store) ListEscalations(ctx context.Context, status domain.EscalationStatus, limit int) ([]domain.EscalationRequest, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY requested_at DESC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query escalations: %w", err)
	}
	defer rows.Close()

	var requests []domain.EscalationRequest
	for rows.Next() {
		request, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escalations: %w", err)
	}
	return requests, nil
}

// ResolveEscalation flips a pending request to confirmed or dismissed.
//
// The UPDATE guards on the pending status so two resolvers cannot both win;
// the loser sees ErrEscalationResolved (or ErrNotFound when the id is
// unknown).
func (s *Store) ResolveEscalation(ctx context.Context, escalationID string, status domain.EscalationStatus, resolvedBy, reason string, resolvedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE escalations
		SET status = ?, resolved_by = ?, resolved_at = ?, resolution_reason = ?
		WHERE id = ? AND status = ?`,
		string(status), resolvedBy, toMillis(resolvedAt), reason,
		escalationID, string(domain.EscalationPending))
	if err != nil {
		return fmt.Errorf("resolve escalation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resolution rows: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM escalations WHERE id = ?`, escalationID).Scan(&exists); err != nil {
			return fmt.Errorf("check escalation existence: %w", err)
		}
		if exists == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrEscalationResolved
	}
	return nil
}

// ConfirmEscalation confirms a pending request and applies its entity
// transition in one transaction.
//
// The escalation flips first: a dismiss that already landed surfaces
// ErrEscalationResolved before the entity is touched. A failing entity guard
// rolls the whole transaction back, so the request stays pending and the
// confirmer can retry against fresh state.
func (s *Store) ConfirmEscalation(ctx context.Context, params storage.ConfirmEscalationParams) (domain.Entity, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("begin confirmation tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE escalations
		SET status = ?, resolved_by = ?, resolved_at = ?, resolution_reason = ?
		WHERE id = ? AND status = ?`,
		string(domain.EscalationConfirmed), params.ResolvedBy, toMillis(params.ResolvedAt), params.ResolutionReason,
		params.EscalationID, string(domain.EscalationPending))
	if err != nil {
		return domain.Entity{}, fmt.Errorf("confirm escalation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("check confirmation rows: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM escalations WHERE id = ?`, params.EscalationID).Scan(&exists); err != nil {
			return domain.Entity{}, fmt.Errorf("check escalation existence: %w", err)
		}
		if exists == 0 {
			return domain.Entity{}, storage.ErrNotFound
		}
		return domain.Entity{}, storage.ErrEscalationResolved
	}

	entity, err := applyTransitionTx(ctx, tx, params.Transition)
	if err != nil {
		return domain.Entity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Entity{}, fmt.Errorf("commit confirmation: %w", err)
	}
	return entity, nil
}
