// Package engine executes lifecycle transitions: it validates a request
// against the registry, the permission gate, and the rule's guard, then
// commits the change through the store's compare-and-swap path or defers it
// to the escalation queue.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/platform/id"
	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
	"github.com/sellerdesk/approvals/internal/workflow/gate"
	"github.com/sellerdesk/approvals/internal/workflow/registry"
)

// Disposition names the outcome class of an execution.
type Disposition string

const (
	// DispositionApplied means the entity status changed (or already held the
	// requested target, resolved as idempotent success).
	DispositionApplied Disposition = "applied"
	// DispositionEscalated means the transition was recorded for a
	// higher-privileged confirmer and the entity status is untouched.
	DispositionEscalated Disposition = "escalated"
)

// Result reports a finished execution.
type Result struct {
	Disposition Disposition
	// Status and Version describe the entity after an applied transition.
	Status  domain.Status
	Version int64
	// Escalation is set when Disposition is DispositionEscalated.
	Escalation *domain.EscalationRequest
}

// Request is one transition request against one entity.
type Request struct {
	EntityID string
	// EntityType scopes the lookup when set: a request addressed to the
	// wrong type resolves as not found, never as a cross-type transition.
	EntityType domain.EntityType
	Action     string
	Actor      domain.Actor
	// Payload carries guard input (commission percentage, refund amount, ...).
	Payload json.RawMessage
	Reason  string
	Notes   string
	// requestedBy preserves the original requester identity when a confirmer
	// replays an escalated transition. Empty for direct requests.
	requestedBy string
}

// Engine coordinates transition execution against one store and rule set.
type Engine struct {
	store storage.Store
	rules *registry.Registry
	now   func() time.Time
	newID func() string
}

// New builds an engine over the given store and transition registry.
func New(store storage.Store, rules *registry.Registry) *Engine {
	return &Engine{
		store: store,
		rules: rules,
		now:   func() time.Time { return time.Now().UTC() },
		newID: id.NewID,
	}
}

// Execute validates and applies one transition.
//
// Outcomes are always typed: the entity either moves to the action's target
// status, the request is parked as an escalation, or a coded error explains
// the rejection. Nothing is retried internally.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	return e.execute(ctx, req, true, e.store.ApplyTransition)
}

// commitFunc commits a validated transition. Confirm swaps in a variant that
// resolves the escalation in the same transaction.
type commitFunc func(ctx context.Context, params storage.ApplyTransitionParams) (domain.Entity, error)

func (e *Engine) execute(ctx context.Context, req Request, allowEscalation bool, commit commitFunc) (Result, error) {
	entity, err := e.store.GetEntity(ctx, req.EntityID)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, apperrors.WithMetadata(apperrors.CodeNotFound, "entity not found",
			map[string]string{"EntityID": req.EntityID})
	}
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "load entity", err)
	}
	if req.EntityType != "" && entity.Type != req.EntityType {
		return Result{}, apperrors.WithMetadata(apperrors.CodeNotFound, "entity not found",
			map[string]string{"EntityID": req.EntityID, "EntityType": string(req.EntityType)})
	}

	target, ok := e.rules.Target(entity.Type, req.Action)
	if !ok {
		return Result{}, apperrors.WithMetadata(apperrors.CodeInvalidTransition, "unknown action",
			map[string]string{"Action": req.Action, "EntityType": string(entity.Type)})
	}

	rule, ok := e.rules.Rule(entity.Type, entity.Status, target)
	if !ok {
		// A duplicate submission lands here: no edge exists from the target
		// to itself, so an entity already in the requested status resolves
		// as idempotent success with the current version.
		if entity.Status == target {
			return Result{Disposition: DispositionApplied, Status: entity.Status, Version: entity.Version}, nil
		}
		return Result{}, apperrors.WithMetadata(apperrors.CodeInvalidTransition, "transition not allowed",
			map[string]string{"From": string(entity.Status), "To": string(target)})
	}

	if err := gate.Authorize(req.Actor, rule); err != nil {
		return Result{}, err
	}

	if rule.Guard != nil {
		if err := rule.Guard(entity, req.Payload, req.Actor); err != nil {
			return Result{}, err
		}
	}

	if rule.EscalateFor != nil && rule.EscalateFor(req.Actor) {
		if !allowEscalation {
			return Result{}, apperrors.WithMetadata(apperrors.CodePermissionDenied,
				"confirmer does not outrank the escalation",
				map[string]string{"Action": req.Action})
		}
		return e.park(ctx, entity, rule, req)
	}

	params := storage.ApplyTransitionParams{
		EntityID:        entity.ID,
		ExpectedStatus:  entity.Status,
		ExpectedVersion: entity.Version,
		ToStatus:        rule.To,
		Action:          req.Action,
		ActorID:         req.Actor.ID,
		RequestedBy:     req.requestedBy,
		Reason:          req.Reason,
		Notes:           req.Notes,
		OccurredAt:      e.now(),
	}
	updated, err := commit(ctx, params)
	if errors.Is(err, storage.ErrEscalationResolved) {
		return Result{}, apperrors.New(apperrors.CodeAlreadyResolved, "escalation already resolved")
	}
	if errors.Is(err, storage.ErrVersionConflict) {
		// The write lost a race. When the winner applied the same target the
		// outcome is identical state, so both callers observe success.
		current, loadErr := e.store.GetEntity(ctx, req.EntityID)
		if loadErr == nil && current.Status == rule.To {
			return Result{Disposition: DispositionApplied, Status: current.Status, Version: current.Version}, nil
		}
		return Result{}, apperrors.WithMetadata(apperrors.CodeConcurrentModification,
			"entity changed since it was read",
			map[string]string{"EntityID": req.EntityID})
	}
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, apperrors.WithMetadata(apperrors.CodeNotFound, "entity not found",
			map[string]string{"EntityID": req.EntityID})
	}
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "apply transition", err)
	}

	return Result{Disposition: DispositionApplied, Status: updated.Status, Version: updated.Version}, nil
}

// park records the validated transition for confirmation without touching the
// entity.
func (e *Engine) park(ctx context.Context, entity domain.Entity, rule registry.Rule, req Request) (Result, error) {
	request := domain.EscalationRequest{
		ID:           e.newID(),
		EntityID:     entity.ID,
		EntityType:   entity.Type,
		Action:       req.Action,
		TargetStatus: rule.To,
		PayloadJSON:  req.Payload,
		Reason:       req.Reason,
		Notes:        req.Notes,
		RequestedBy:  req.Actor.ID,
		RequestedAt:  e.now(),
		Status:       domain.EscalationPending,
	}
	if err := e.store.CreateEscalation(ctx, request); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "record escalation", err)
	}
	return Result{Disposition: DispositionEscalated, Escalation: &request}, nil
}
