// Package storage defines persistence contracts for the approval engine.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// ErrNotFound indicates the record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a create collided with an existing record.
var ErrAlreadyExists = errors.New("record already exists")

// ErrVersionConflict indicates a compare-and-swap write lost to a concurrent
// update: the stored version/status no longer matches the expected value.
var ErrVersionConflict = errors.New("version conflict")

// ErrEscalationResolved indicates the escalation request is no longer
// pending: a concurrent resolver confirmed or dismissed it first.
var ErrEscalationResolved = errors.New("escalation resolved")

// ApplyTransitionParams carries one atomic status change and its audit entry.
//
// ExpectedStatus and ExpectedVersion are the values read before validation;
// the write commits only if both still match.
type ApplyTransitionParams struct {
	EntityID        string
	ExpectedStatus  domain.Status
	ExpectedVersion int64
	ToStatus        domain.Status
	Action          string
	ActorID         string
	RequestedBy     string
	Reason          string
	Notes           string
	OccurredAt      time.Time
}

// ConfirmEscalationParams joins an escalation resolution with the entity
// transition it releases. Both commit in one transaction or not at all.
type ConfirmEscalationParams struct {
	EscalationID     string
	ResolvedBy       string
	ResolutionReason string
	ResolvedAt       time.Time
	Transition       ApplyTransitionParams
}

// QueryFilters narrows entity listings. Empty fields match everything.
type QueryFilters struct {
	Status   domain.Status
	Category string
	// Search matches entity names case-insensitively.
	Search string
}

// EntityStore persists governed entities and their compare-and-swap updates.
type EntityStore interface {
	// CreateEntity inserts a new entity in its initial state with version 1.
	CreateEntity(ctx context.Context, entity domain.Entity) error
	// GetEntity returns one entity by id.
	GetEntity(ctx context.Context, entityID string) (domain.Entity, error)
	// ApplyTransition performs the compare-and-swap status update and appends
	// the audit entry in one transaction. Returns the updated entity, or
	// ErrVersionConflict when the expected version/status no longer holds.
	ApplyTransition(ctx context.Context, params ApplyTransitionParams) (domain.Entity, error)
	// QueryEntities returns one page of entities plus the unpaged total.
	QueryEntities(ctx context.Context, entityType domain.EntityType, filters QueryFilters, offset, limit int) ([]domain.Entity, int64, error)
	// ListEntityIDs returns every entity id for one type, ordered by id.
	ListEntityIDs(ctx context.Context, entityType domain.EntityType) ([]string, error)
}

// AuditStore reads the append-only audit trail. Appends happen only inside
// ApplyTransition; no update or delete operation exists.
type AuditStore interface {
	// ListAuditEntries returns the entity's trail ordered by resulting
	// version. A non-positive limit returns the full trail.
	ListAuditEntries(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error)
}

// EscalationStore persists deferred transitions awaiting confirmation.
type EscalationStore interface {
	CreateEscalation(ctx context.Context, request domain.EscalationRequest) error
	GetEscalation(ctx context.Context, escalationID string) (domain.EscalationRequest, error)
	// ListEscalations returns requests filtered by status (empty matches all),
	// newest first.
	ListEscalations(ctx context.Context, status domain.EscalationStatus, limit int) ([]domain.EscalationRequest, error)
	// ResolveEscalation marks a pending request confirmed or dismissed.
	// Returns ErrEscalationResolved when the request is no longer pending,
	// so a second resolver cannot act on it twice.
	ResolveEscalation(ctx context.Context, escalationID string, status domain.EscalationStatus, resolvedBy, reason string, resolvedAt time.Time) error
	// ConfirmEscalation marks a pending request confirmed and applies its
	// entity transition in the same transaction. A dismiss that lands first
	// surfaces ErrEscalationResolved with the entity untouched; a stale
	// transition guard surfaces ErrVersionConflict with the request still
	// pending.
	ConfirmEscalation(ctx context.Context, params ConfirmEscalationParams) (domain.Entity, error)
}

// Store is the composite contract the engine and API surface depend on.
type Store interface {
	EntityStore
	AuditStore
	EscalationStore
	Close() error
}
