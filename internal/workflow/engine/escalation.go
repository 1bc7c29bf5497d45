package engine

import (
	"context"
	"errors"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
	"github.com/sellerdesk/approvals/internal/workflow/gate"
)

// Confirm applies a pending escalated transition on behalf of a qualified
// confirmer.
//
// The original payload replays through the full validation path, so a guard
// that would reject the request today rejects the confirmation too. The
// escalation flips to confirmed and the entity transition commits in one
// store transaction: a dismiss racing the confirmation leaves the entity
// untouched, and a lost entity write leaves the request pending. The audit
// entry records the confirmer as the acting principal and keeps the original
// requester alongside.
func (e *Engine) Confirm(ctx context.Context, escalationID string, confirmer domain.Actor, reason string) (Result, error) {
	escalation, err := e.loadPending(ctx, escalationID)
	if err != nil {
		return Result{}, err
	}

	req := Request{
		EntityID:    escalation.EntityID,
		EntityType:  escalation.EntityType,
		Action:      escalation.Action,
		Actor:       confirmer,
		Payload:     escalation.PayloadJSON,
		Reason:      escalation.Reason,
		Notes:       escalation.Notes,
		requestedBy: escalation.RequestedBy,
	}
	resolved := false
	commit := func(ctx context.Context, params storage.ApplyTransitionParams) (domain.Entity, error) {
		entity, err := e.store.ConfirmEscalation(ctx, storage.ConfirmEscalationParams{
			EscalationID:     escalation.ID,
			ResolvedBy:       confirmer.ID,
			ResolutionReason: reason,
			ResolvedAt:       e.now(),
			Transition:       params,
		})
		if err == nil {
			resolved = true
		}
		return entity, err
	}
	result, err := e.execute(ctx, req, false, commit)
	if err != nil {
		return Result{}, err
	}

	// The idempotent and same-target-race paths succeed without committing a
	// transition, so the escalation still needs its own resolution.
	if !resolved {
		resolveErr := e.store.ResolveEscalation(ctx, escalation.ID, domain.EscalationConfirmed, confirmer.ID, reason, e.now())
		if errors.Is(resolveErr, storage.ErrEscalationResolved) {
			return Result{}, apperrors.New(apperrors.CodeAlreadyResolved, "escalation already resolved")
		}
		if resolveErr != nil {
			return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "resolve escalation", resolveErr)
		}
	}
	return result, nil
}

// Dismiss declines a pending escalation without touching the entity.
//
// Dismissal demands the same rank confirmation does: when the escalated edge
// is still legal from the entity's current status, the confirmer must clear
// the permission gate and must not trip the escalate predicate themselves.
// When the entity has since moved and the edge no longer applies, only a
// super admin may clean the request up.
func (e *Engine) Dismiss(ctx context.Context, escalationID string, confirmer domain.Actor, reason string) error {
	escalation, err := e.loadPending(ctx, escalationID)
	if err != nil {
		return err
	}

	if err := e.authorizeResolution(ctx, escalation, confirmer); err != nil {
		return err
	}

	resolveErr := e.store.ResolveEscalation(ctx, escalation.ID, domain.EscalationDismissed, confirmer.ID, reason, e.now())
	if errors.Is(resolveErr, storage.ErrEscalationResolved) {
		return apperrors.New(apperrors.CodeAlreadyResolved, "escalation already resolved")
	}
	if resolveErr != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "resolve escalation", resolveErr)
	}
	return nil
}

func (e *Engine) loadPending(ctx context.Context, escalationID string) (domain.EscalationRequest, error) {
	escalation, err := e.store.GetEscalation(ctx, escalationID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.EscalationRequest{}, apperrors.WithMetadata(apperrors.CodeNotFound, "escalation not found",
			map[string]string{"EscalationID": escalationID})
	}
	if err != nil {
		return domain.EscalationRequest{}, apperrors.Wrap(apperrors.CodeUnknown, "load escalation", err)
	}
	if escalation.Status != domain.EscalationPending {
		return domain.EscalationRequest{}, apperrors.New(apperrors.CodeAlreadyResolved, "escalation already resolved")
	}
	return escalation, nil
}

func (e *Engine) authorizeResolution(ctx context.Context, escalation domain.EscalationRequest, confirmer domain.Actor) error {
	if confirmer.Role == domain.RoleSuperAdmin {
		return nil
	}
	entity, err := e.store.GetEntity(ctx, escalation.EntityID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "entity not found",
			map[string]string{"EntityID": escalation.EntityID})
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "load entity", err)
	}
	rule, ok := e.rules.Rule(entity.Type, entity.Status, escalation.TargetStatus)
	if !ok {
		return apperrors.New(apperrors.CodePermissionDenied, "only a super admin may resolve a stale escalation")
	}
	if err := gate.Authorize(confirmer, rule); err != nil {
		return err
	}
	if rule.EscalateFor != nil && rule.EscalateFor(confirmer) {
		return apperrors.WithMetadata(apperrors.CodePermissionDenied,
			"confirmer does not outrank the escalation",
			map[string]string{"Action": escalation.Action})
	}
	return nil
}
