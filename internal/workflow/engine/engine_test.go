package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/storage/sqlite"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
	"github.com/sellerdesk/approvals/internal/workflow/registry"
)

var (
	superAdmin = domain.Actor{ID: "root-1", Role: domain.RoleSuperAdmin}
	sellerOps  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin,
		Permissions: map[domain.PermissionKey]bool{domain.PermissionSellers: true}}
	productOps = domain.Actor{ID: "admin-2", Role: domain.RoleAdmin,
		Permissions: map[domain.PermissionKey]bool{domain.PermissionProducts: true}}
	returnsOps = domain.Actor{ID: "admin-3", Role: domain.RoleAdmin,
		Permissions: map[domain.PermissionKey]bool{domain.PermissionReturns: true}}
)

func TestExecuteAppliesLegalTransition(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "s-1", domain.EntityTypeSeller, domain.StatusPendingVerification, nil)

	result, err := eng.Execute(context.Background(), Request{
		EntityID: "s-1",
		Action:   registry.ActionStartReview,
		Actor:    sellerOps,
		Reason:   "weekly onboarding sweep",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Disposition != DispositionApplied {
		t.Fatalf("disposition = %q, want applied", result.Disposition)
	}
	if result.Status != domain.StatusUnderReview {
		t.Fatalf("status = %q, want under_review", result.Status)
	}
	if result.Version != 2 {
		t.Fatalf("version = %d, want 2", result.Version)
	}

	entries, err := store.ListAuditEntries(context.Background(), "s-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].ActorID != sellerOps.ID {
		t.Fatalf("actor_id = %q, want %q", entries[0].ActorID, sellerOps.ID)
	}
	if entries[0].Reason != "weekly onboarding sweep" {
		t.Fatalf("reason = %q", entries[0].Reason)
	}
}

func TestExecuteRejectsUnknownEntity(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)

	_, err := eng.Execute(context.Background(), Request{
		EntityID: "missing", Action: registry.ActionApprove, Actor: superAdmin,
	})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestExecuteRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "s-1", domain.EntityTypeSeller, domain.StatusDraft, nil)

	_, err := eng.Execute(context.Background(), Request{
		EntityID: "s-1", Action: "incinerate", Actor: superAdmin,
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("err = %v, want INVALID_TRANSITION", err)
	}
}

func TestExecuteRejectsIllegalEdge(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "s-1", domain.EntityTypeSeller, domain.StatusDraft, nil)

	// Draft sellers cannot be approved directly.
	_, err := eng.Execute(context.Background(), Request{
		EntityID: "s-1", Action: registry.ActionApprove, Actor: superAdmin,
		Payload: json.RawMessage(`{"commissionPercentage":10}`),
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("err = %v, want INVALID_TRANSITION", err)
	}
	meta := apperrors.GetMetadata(err)
	if meta["From"] != "draft" || meta["To"] != "approved" {
		t.Fatalf("metadata = %v", meta)
	}
}

func TestExecuteRejectsMissingPermission(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "p-1", domain.EntityTypeProduct, domain.StatusUnderReview, nil)

	_, err := eng.Execute(context.Background(), Request{
		EntityID: "p-1", Action: registry.ActionApprove, Actor: sellerOps,
	})
	if !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}

	entity, err := store.GetEntity(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if entity.Status != domain.StatusUnderReview || entity.Version != 1 {
		t.Fatalf("entity mutated: %q v%d", entity.Status, entity.Version)
	}
}

func TestExecuteRejectsGuardFailure(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "s-1", domain.EntityTypeSeller, domain.StatusUnderReview, nil)

	_, err := eng.Execute(context.Background(), Request{
		EntityID: "s-1", Action: registry.ActionApprove, Actor: sellerOps,
		Payload: json.RawMessage(`{"commissionPercentage":250}`),
	})
	if !apperrors.IsCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestExecuteIsIdempotentForDuplicateTarget(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "p-1", domain.EntityTypeProduct, domain.StatusUnderReview, nil)

	req := Request{EntityID: "p-1", Action: registry.ActionApprove, Actor: productOps}
	first, err := eng.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	second, err := eng.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("duplicate approve: %v", err)
	}
	if second.Disposition != DispositionApplied {
		t.Fatalf("disposition = %q, want applied", second.Disposition)
	}
	if second.Version != first.Version {
		t.Fatalf("versions differ: %d vs %d", first.Version, second.Version)
	}

	// The duplicate leaves no second audit entry.
	entries, err := store.ListAuditEntries(context.Background(), "p-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
}

func TestExecuteReturnsConcurrentModificationOnDivergentRace(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "p-1", domain.EntityTypeProduct, domain.StatusUnderReview, nil)

	// Another request rejects the product after this request read it.
	raced := false
	eng.now = func() time.Time {
		if !raced {
			raced = true
			_, err := store.ApplyTransition(context.Background(), storage.ApplyTransitionParams{
				EntityID:        "p-1",
				ExpectedStatus:  domain.StatusUnderReview,
				ExpectedVersion: 1,
				ToStatus:        domain.StatusRejected,
				Action:          registry.ActionReject,
				ActorID:         "admin-9",
				OccurredAt:      time.Now().UTC(),
			})
			if err != nil {
				t.Fatalf("racing transition: %v", err)
			}
		}
		return time.Now().UTC()
	}

	_, err := eng.Execute(context.Background(), Request{
		EntityID: "p-1", Action: registry.ActionApprove, Actor: productOps,
	})
	if !apperrors.IsCode(err, apperrors.CodeConcurrentModification) {
		t.Fatalf("err = %v, want CONCURRENT_MODIFICATION", err)
	}
}

func TestExecuteResolvesSameTargetRaceAsSuccess(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "p-1", domain.EntityTypeProduct, domain.StatusUnderReview, nil)

	// A concurrent approve wins the compare-and-swap between this request's
	// read and write. Both callers must observe the same applied version.
	raced := false
	eng.now = func() time.Time {
		if !raced {
			raced = true
			_, err := store.ApplyTransition(context.Background(), storage.ApplyTransitionParams{
				EntityID:        "p-1",
				ExpectedStatus:  domain.StatusUnderReview,
				ExpectedVersion: 1,
				ToStatus:        domain.StatusApproved,
				Action:          registry.ActionApprove,
				ActorID:         "admin-9",
				OccurredAt:      time.Now().UTC(),
			})
			if err != nil {
				t.Fatalf("racing transition: %v", err)
			}
		}
		return time.Now().UTC()
	}

	result, err := eng.Execute(context.Background(), Request{
		EntityID: "p-1", Action: registry.ActionApprove, Actor: productOps,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != domain.StatusApproved || result.Version != 2 {
		t.Fatalf("result = %q v%d, want approved v2", result.Status, result.Version)
	}

	entries, err := store.ListAuditEntries(context.Background(), "p-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want exactly 1", len(entries))
	}
}

func TestExecuteEscalatesRefundForAdmin(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	result, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1",
		Action:   registry.ActionRefund,
		Actor:    returnsOps,
		Payload:  json.RawMessage(`{"refundAmount":500}`),
		Reason:   "damaged on arrival",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Disposition != DispositionEscalated {
		t.Fatalf("disposition = %q, want escalated", result.Disposition)
	}
	if result.Escalation == nil || result.Escalation.Status != domain.EscalationPending {
		t.Fatalf("escalation = %+v", result.Escalation)
	}

	// The entity stays untouched until a confirmer acts.
	entity, err := store.GetEntity(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if entity.Status != domain.StatusPickedUp || entity.Version != 1 {
		t.Fatalf("entity = %q v%d, want picked_up v1", entity.Status, entity.Version)
	}
	entries, err := store.ListAuditEntries(context.Background(), "r-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("audit entries = %d, want 0 before confirmation", len(entries))
	}
}

func TestExecuteAppliesRefundDirectlyForSuperAdmin(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	result, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1",
		Action:   registry.ActionRefund,
		Actor:    superAdmin,
		Payload:  json.RawMessage(`{"refundAmount":500}`),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Disposition != DispositionApplied || result.Status != domain.StatusRefunded {
		t.Fatalf("result = %+v", result)
	}

	pending, err := store.ListEscalations(context.Background(), domain.EscalationPending, 0)
	if err != nil {
		t.Fatalf("list escalations: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending escalations = %d, want 0", len(pending))
	}
}

func TestConfirmAppliesEscalatedRefund(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	escalated, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1",
		Action:   registry.ActionRefund,
		Actor:    returnsOps,
		Payload:  json.RawMessage(`{"refundAmount":500}`),
		Reason:   "damaged on arrival",
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	result, err := eng.Confirm(context.Background(), escalated.Escalation.ID, superAdmin, "verified damage photos")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Status != domain.StatusRefunded || result.Version != 2 {
		t.Fatalf("result = %q v%d, want refunded v2", result.Status, result.Version)
	}

	// Both identities survive in the audit entry.
	entries, err := store.ListAuditEntries(context.Background(), "r-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].ActorID != superAdmin.ID {
		t.Fatalf("actor_id = %q, want confirmer", entries[0].ActorID)
	}
	if entries[0].RequestedBy != returnsOps.ID {
		t.Fatalf("requested_by = %q, want original requester", entries[0].RequestedBy)
	}

	got, err := store.GetEscalation(context.Background(), escalated.Escalation.ID)
	if err != nil {
		t.Fatalf("get escalation: %v", err)
	}
	if got.Status != domain.EscalationConfirmed || got.ResolvedBy != superAdmin.ID {
		t.Fatalf("escalation = %+v", got)
	}
}

func TestConfirmRejectsUnderprivilegedConfirmer(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	escalated, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1", Action: registry.ActionRefund, Actor: returnsOps,
		Payload: json.RawMessage(`{"refundAmount":500}`),
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	_, err = eng.Confirm(context.Background(), escalated.Escalation.ID, returnsOps, "")
	if !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}

	got, err := store.GetEscalation(context.Background(), escalated.Escalation.ID)
	if err != nil {
		t.Fatalf("get escalation: %v", err)
	}
	if got.Status != domain.EscalationPending {
		t.Fatalf("status = %q, want still pending", got.Status)
	}
}

func TestConfirmLosesToConcurrentDismiss(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	escalated, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1", Action: registry.ActionRefund, Actor: returnsOps,
		Payload: json.RawMessage(`{"refundAmount":500}`),
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	// A dismiss lands after the confirmer loads the pending request but
	// before the transition commits. The confirmation must lose whole: a
	// dismissed escalation never releases its refund.
	raced := false
	eng.now = func() time.Time {
		if !raced {
			raced = true
			err := store.ResolveEscalation(context.Background(), escalated.Escalation.ID,
				domain.EscalationDismissed, superAdmin.ID, "customer withdrew", time.Now().UTC())
			if err != nil {
				t.Fatalf("racing dismiss: %v", err)
			}
		}
		return time.Now().UTC()
	}

	_, err = eng.Confirm(context.Background(), escalated.Escalation.ID, superAdmin, "")
	if !apperrors.IsCode(err, apperrors.CodeAlreadyResolved) {
		t.Fatalf("err = %v, want ALREADY_RESOLVED", err)
	}

	entity, err := store.GetEntity(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if entity.Status != domain.StatusPickedUp || entity.Version != 1 {
		t.Fatalf("entity = %q v%d, want untouched picked_up v1", entity.Status, entity.Version)
	}
	entries, err := store.ListAuditEntries(context.Background(), "r-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("audit entries = %d, want 0", len(entries))
	}
	got, err := store.GetEscalation(context.Background(), escalated.Escalation.ID)
	if err != nil {
		t.Fatalf("get escalation: %v", err)
	}
	if got.Status != domain.EscalationDismissed {
		t.Fatalf("escalation status = %q, want dismissed", got.Status)
	}
}

func TestConfirmRejectsResolvedEscalation(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	escalated, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1", Action: registry.ActionRefund, Actor: returnsOps,
		Payload: json.RawMessage(`{"refundAmount":500}`),
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if err := eng.Dismiss(context.Background(), escalated.Escalation.ID, superAdmin, "customer withdrew"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	_, err = eng.Confirm(context.Background(), escalated.Escalation.ID, superAdmin, "")
	if !apperrors.IsCode(err, apperrors.CodeAlreadyResolved) {
		t.Fatalf("err = %v, want ALREADY_RESOLVED", err)
	}
}

func TestDismissLeavesEntityUntouched(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	escalated, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1", Action: registry.ActionRefund, Actor: returnsOps,
		Payload: json.RawMessage(`{"refundAmount":500}`),
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	if err := eng.Dismiss(context.Background(), escalated.Escalation.ID, superAdmin, "duplicate request"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	entity, err := store.GetEntity(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if entity.Status != domain.StatusPickedUp || entity.Version != 1 {
		t.Fatalf("entity = %q v%d, want untouched", entity.Status, entity.Version)
	}
	got, err := store.GetEscalation(context.Background(), escalated.Escalation.ID)
	if err != nil {
		t.Fatalf("get escalation: %v", err)
	}
	if got.Status != domain.EscalationDismissed || got.ResolutionReason != "duplicate request" {
		t.Fatalf("escalation = %+v", got)
	}
}

func TestDismissRejectsUnderprivilegedConfirmer(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "r-1", domain.EntityTypeReturn, domain.StatusPickedUp,
		json.RawMessage(`{"itemPrice":600}`))

	escalated, err := eng.Execute(context.Background(), Request{
		EntityID: "r-1", Action: registry.ActionRefund, Actor: returnsOps,
		Payload: json.RawMessage(`{"refundAmount":500}`),
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}

	err = eng.Dismiss(context.Background(), escalated.Escalation.ID, returnsOps, "")
	if !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
}

func TestExecuteBulkIsolatesFailures(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	ids := make([]string, 0, 5)
	for i := 0; i < 4; i++ {
		entityID := fmt.Sprintf("p-%d", i)
		seedEntity(t, store, entityID, domain.EntityTypeProduct, domain.StatusUnderReview, nil)
		ids = append(ids, entityID)
	}
	// A blocked product is terminal; no edge can leave it.
	seedEntity(t, store, "p-blocked", domain.EntityTypeProduct, domain.StatusBlocked, nil)
	ids = append(ids, "p-blocked")

	result := eng.ExecuteBulk(context.Background(), ids, Request{
		Action: registry.ActionApprove, Actor: productOps,
	})
	if len(result.Succeeded) != 4 {
		t.Fatalf("succeeded = %v, want 4 ids", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %v, want 1 id", result.Failed)
	}
	if code := result.Failed["p-blocked"]; code != apperrors.CodeInvalidTransition {
		t.Fatalf("failed code = %q, want INVALID_TRANSITION", code)
	}
	if result.Disposition() != BulkPartiallySucceeded {
		t.Fatalf("disposition = %q, want partially_succeeded", result.Disposition())
	}

	for _, entityID := range result.Succeeded {
		entity, err := store.GetEntity(context.Background(), entityID)
		if err != nil {
			t.Fatalf("get %s: %v", entityID, err)
		}
		if entity.Status != domain.StatusApproved {
			t.Fatalf("%s status = %q, want approved", entityID, entity.Status)
		}
	}
}

func TestExecuteBulkDispositions(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "ok-1", domain.EntityTypeProduct, domain.StatusUnderReview, nil)
	seedEntity(t, store, "bad-1", domain.EntityTypeProduct, domain.StatusBlocked, nil)

	full := eng.ExecuteBulk(context.Background(), []string{"ok-1"}, Request{
		Action: registry.ActionApprove, Actor: productOps,
	})
	if full.Disposition() != BulkFullySucceeded {
		t.Fatalf("disposition = %q, want fully_succeeded", full.Disposition())
	}

	failed := eng.ExecuteBulk(context.Background(), []string{"bad-1"}, Request{
		Action: registry.ActionApprove, Actor: productOps,
	})
	if failed.Disposition() != BulkFullyFailed {
		t.Fatalf("disposition = %q, want fully_failed", failed.Disposition())
	}
}

func TestExecuteBulkRunsMembersDespiteCancelledContext(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	ids := []string{"p-0", "p-1", "p-2"}
	for _, entityID := range ids {
		seedEntity(t, store, entityID, domain.EntityTypeProduct, domain.StatusUnderReview, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation abandons the wait, never an accepted member: every
	// entity still transitions even though the caller gave up.
	result := eng.ExecuteBulk(ctx, ids, Request{
		Action: registry.ActionApprove, Actor: productOps,
	})
	if len(result.Failed) != 0 {
		t.Fatalf("failed = %v, want none", result.Failed)
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, entityID := range ids {
		for {
			entity, err := store.GetEntity(context.Background(), entityID)
			if err != nil {
				t.Fatalf("get %s: %v", entityID, err)
			}
			if entity.Status == domain.StatusApproved {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("%s status = %q, want approved", entityID, entity.Status)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestExecuteRejectsTypeScopeMismatch(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "s-1", domain.EntityTypeSeller, domain.StatusUnderReview, nil)

	// A seller addressed as a product resolves as not found, never as a
	// cross-type transition.
	_, err := eng.Execute(context.Background(), Request{
		EntityID:   "s-1",
		EntityType: domain.EntityTypeProduct,
		Action:     registry.ActionApprove,
		Actor:      superAdmin,
		Payload:    json.RawMessage(`{"commissionPercentage":10}`),
	})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}

	entity, err := store.GetEntity(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if entity.Status != domain.StatusUnderReview || entity.Version != 1 {
		t.Fatalf("entity mutated: %q v%d", entity.Status, entity.Version)
	}
}

func TestExecuteBulkSkipsDuplicateIDs(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "p-1", domain.EntityTypeProduct, domain.StatusUnderReview, nil)

	result := eng.ExecuteBulk(context.Background(), []string{"p-1", "p-1", ""}, Request{
		Action: registry.ActionApprove, Actor: productOps,
	})
	if len(result.Succeeded) != 1 || len(result.Failed) != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestReplayReproducesCurrentStatus(t *testing.T) {
	t.Parallel()

	eng, store := newTestEngine(t)
	seedEntity(t, store, "s-1", domain.EntityTypeSeller, domain.StatusDraft, nil)

	steps := []string{registry.ActionSubmit, registry.ActionStartReview, registry.ActionApprove, registry.ActionSuspend}
	for _, action := range steps {
		req := Request{EntityID: "s-1", Action: action, Actor: sellerOps}
		if action == registry.ActionApprove {
			req.Payload = json.RawMessage(`{"commissionPercentage":10}`)
		}
		if _, err := eng.Execute(context.Background(), req); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}

	entries, err := store.ListAuditEntries(context.Background(), "s-1", 0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	replayed, err := Replay(domain.StatusDraft, entries)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	entity, err := store.GetEntity(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if replayed != entity.Status {
		t.Fatalf("replayed = %q, stored = %q", replayed, entity.Status)
	}
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	t.Parallel()

	entries := []domain.AuditEntry{
		{FromStatus: domain.StatusDraft, ToStatus: domain.StatusUnderReview, ResultingVersion: 2},
		{FromStatus: domain.StatusApproved, ToStatus: domain.StatusBlocked, ResultingVersion: 3},
	}
	if _, err := Replay(domain.StatusDraft, entries); err == nil {
		t.Fatal("expected broken chain error")
	}

	gap := []domain.AuditEntry{
		{FromStatus: domain.StatusDraft, ToStatus: domain.StatusUnderReview, ResultingVersion: 2},
		{FromStatus: domain.StatusUnderReview, ToStatus: domain.StatusApproved, ResultingVersion: 4},
	}
	if _, err := Replay(domain.StatusDraft, gap); err == nil {
		t.Fatal("expected version gap error")
	}
}

func seedEntity(t *testing.T, store *sqlite.Store, id string, entityType domain.EntityType, status domain.Status, domainJSON json.RawMessage) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	err := store.CreateEntity(context.Background(), domain.Entity{
		ID:        id,
		Type:      entityType,
		Status:    status,
		Name:      "Entity " + id,
		Domain:    domainJSON,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed entity %s: %v", id, err)
	}
}

func newTestEngine(t *testing.T) (*Engine, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "approvals.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return New(store, registry.Default()), store
}
