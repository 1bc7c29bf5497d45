package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

const entityColumns = "id, entity_type, status, name, category, domain_json, version, created_at, updated_at"

func scanEntity(row interface{ Scan(...any) error }) (domain.Entity, error) {
	var entity domain.Entity
	var entityType, status, domainJSON string
	var createdAt, updatedAt int64
	err := row.Scan(&entity.ID, &entityType, &status, &entity.Name, &entity.Category, &domainJSON, &entity.Version, &createdAt, &updatedAt)
	if err != nil {
		return domain.Entity{}, err
	}
	entity.Type = domain.EntityType(entityType)
	entity.Status = domain.Status(status)
	entity.Domain = json.RawMessage(domainJSON)
	entity.CreatedAt = fromMillis(createdAt)
	entity.UpdatedAt = fromMillis(updatedAt)
	return entity, nil
}

// CreateEntity inserts a new entity row. The caller sets the initial status
// and version 1.
func (s *Store) CreateEntity(ctx context.Context, entity domain.Entity) error {
	if strings.TrimSpace(entity.ID) == "" {
		return fmt.Errorf("entity id is required")
	}
	domainJSON := "{}"
	if len(entity.Domain) > 0 {
		domainJSON = string(entity.Domain)
	}
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, string(entity.Type), string(entity.Status), entity.Name, entity.Category,
		domainJSON, entity.Version, toMillis(entity.CreatedAt), toMillis(entity.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// GetEntity returns one entity by id.
func (s *Store) GetEntity(ctx context.Context, entityID string) (domain.Entity, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, entityID)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entity{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Entity{}, fmt.Errorf("select entity: %w", err)
	}
	return entity, nil
}

// ApplyTransition commits the status change and its audit entry atomically.
//
// The UPDATE guards on both the expected version and the expected status so a
// concurrent writer cannot slip between validation and commit. Zero affected
// rows means either the entity vanished or the guard lost the race.
func (s *Store) ApplyTransition(ctx context.Context, params storage.ApplyTransitionParams) (domain.Entity, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	entity, err := applyTransitionTx(ctx, tx, params)
	if err != nil {
		return domain.Entity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Entity{}, fmt.Errorf("commit transition: %w", err)
	}
	return entity, nil
}

// applyTransitionTx runs the guarded status update, audit insert, and reload
// inside the caller's transaction.
func applyTransitionTx(ctx context.Context, tx *sql.Tx, params storage.ApplyTransitionParams) (domain.Entity, error) {
	occurred := toMillis(params.OccurredAt)
	result, err := tx.ExecContext(ctx, `UPDATE entities
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?`,
		string(params.ToStatus), occurred,
		params.EntityID, params.ExpectedVersion, string(params.ExpectedStatus))
	if err != nil {
		return domain.Entity{}, fmt.Errorf("update entity status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("check transition rows: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM entities WHERE id = ?`, params.EntityID).Scan(&exists)
		if err != nil {
			return domain.Entity{}, fmt.Errorf("check entity existence: %w", err)
		}
		if exists == 0 {
			return domain.Entity{}, storage.ErrNotFound
		}
		return domain.Entity{}, storage.ErrVersionConflict
	}

	resultingVersion := params.ExpectedVersion + 1
	_, err = tx.ExecContext(ctx, `INSERT INTO audit_entries
		(entity_id, from_status, to_status, action, actor_id, requested_by, reason, notes, occurred_at, resulting_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.EntityID, string(params.ExpectedStatus), string(params.ToStatus), params.Action,
		params.ActorID, params.RequestedBy, params.Reason, params.Notes, occurred, resultingVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Entity{}, storage.ErrVersionConflict
		}
		return domain.Entity{}, fmt.Errorf("insert audit entry: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, params.EntityID)
	entity, err := scanEntity(row)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("reload entity: %w", err)
	}
	return entity, nil
}

// QueryEntities returns one page of entities and the unpaged total count.
func (s *Store) QueryEntities(ctx context.Context, entityType domain.EntityType, filters storage.QueryFilters, offset, limit int) ([]domain.Entity, int64, error) {
	where := []string{"entity_type = ?"}
	args := []any{string(entityType)}
	if filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filters.Status))
	}
	if filters.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filters.Category)
	}
	if filters.Search != "" {
		where = append(where, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filters.Search)+"%")
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM entities WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities
		WHERE `+clause+` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, total, nil
}

// ListEntityIDs returns all entity ids of one type, ordered by id.
func (s *Store) ListEntityIDs(ctx context.Context, entityType domain.EntityType) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM entities WHERE entity_type = ? ORDER BY id ASC`, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("list entity ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity ids: %w", err)
	}
	return ids, nil
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
