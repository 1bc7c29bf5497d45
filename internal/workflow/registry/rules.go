package registry

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// Marketplace action names.
const (
	ActionSubmit         = "submit"
	ActionStartReview    = "start-review"
	ActionApprove        = "approve"
	ActionReject         = "reject"
	ActionSuspend        = "suspend"
	ActionReinstate      = "reinstate"
	ActionBlock          = "block"
	ActionUnblock        = "unblock"
	ActionResubmit       = "resubmit"
	ActionSchedulePickup = "schedule-pickup"
	ActionMarkPickedUp   = "mark-picked-up"
	ActionRefund         = "refund"
	ActionReplace        = "replace"
	ActionComplete       = "complete"
)

// Default returns the marketplace approval registry: seller onboarding,
// product listing moderation, and return/refund handling.
func Default() *Registry {
	r, err := New(marketplaceDefinitions(), marketplaceRules())
	if err != nil {
		// The built-in rule set is validated by tests; a failure here is a
		// programmer error.
		panic(fmt.Sprintf("build default registry: %v", err))
	}
	return r
}

func marketplaceDefinitions() map[domain.EntityType]StateDefinition {
	return map[domain.EntityType]StateDefinition{
		domain.EntityTypeSeller: {
			States: []domain.Status{
				domain.StatusDraft, domain.StatusPendingVerification, domain.StatusUnderReview,
				domain.StatusApproved, domain.StatusRejected, domain.StatusSuspended, domain.StatusBlocked,
			},
			Initial:  domain.StatusDraft,
			Terminal: []domain.Status{domain.StatusRejected},
		},
		domain.EntityTypeProduct: {
			States: []domain.Status{
				domain.StatusDraft, domain.StatusUnderReview, domain.StatusApproved,
				domain.StatusRejected, domain.StatusBlocked,
			},
			Initial:  domain.StatusDraft,
			Terminal: []domain.Status{domain.StatusBlocked},
		},
		domain.EntityTypeReturn: {
			States: []domain.Status{
				domain.StatusRequested, domain.StatusApproved, domain.StatusRejected,
				domain.StatusPickupScheduled, domain.StatusPickedUp, domain.StatusRefunded,
				domain.StatusReplaced, domain.StatusCompleted,
			},
			Initial:  domain.StatusRequested,
			Terminal: []domain.Status{domain.StatusRejected, domain.StatusCompleted},
		},
	}
}

func marketplaceRules() []Rule {
	seller := domain.EntityTypeSeller
	product := domain.EntityTypeProduct
	ret := domain.EntityTypeReturn

	return []Rule{
		// Seller onboarding and lifecycle.
		{EntityType: seller, From: domain.StatusDraft, To: domain.StatusPendingVerification, Action: ActionSubmit, RequiredPermission: domain.PermissionSellers},
		{EntityType: seller, From: domain.StatusPendingVerification, To: domain.StatusUnderReview, Action: ActionStartReview, RequiredPermission: domain.PermissionSellers},
		{EntityType: seller, From: domain.StatusUnderReview, To: domain.StatusApproved, Action: ActionApprove, RequiredPermission: domain.PermissionSellers, Guard: commissionGuard},
		{EntityType: seller, From: domain.StatusUnderReview, To: domain.StatusRejected, Action: ActionReject, RequiredPermission: domain.PermissionSellers},
		{EntityType: seller, From: domain.StatusApproved, To: domain.StatusSuspended, Action: ActionSuspend, RequiredPermission: domain.PermissionSellers},
		{EntityType: seller, From: domain.StatusSuspended, To: domain.StatusApproved, Action: ActionReinstate, RequiredPermission: domain.PermissionSellers},
		{EntityType: seller, From: domain.StatusSuspended, To: domain.StatusBlocked, Action: ActionBlock, RequiredPermission: domain.PermissionSellers},
		// Unblocking requires the users permission, which the gate reserves
		// for super admins.
		{EntityType: seller, From: domain.StatusBlocked, To: domain.StatusApproved, Action: ActionUnblock, RequiredPermission: domain.PermissionUsers},

		// Product listing moderation.
		{EntityType: product, From: domain.StatusDraft, To: domain.StatusUnderReview, Action: ActionSubmit, RequiredPermission: domain.PermissionProducts},
		{EntityType: product, From: domain.StatusUnderReview, To: domain.StatusApproved, Action: ActionApprove, RequiredPermission: domain.PermissionProducts},
		{EntityType: product, From: domain.StatusUnderReview, To: domain.StatusRejected, Action: ActionReject, RequiredPermission: domain.PermissionProducts},
		{EntityType: product, From: domain.StatusRejected, To: domain.StatusUnderReview, Action: ActionResubmit, RequiredPermission: domain.PermissionProducts},
		{EntityType: product, From: domain.StatusApproved, To: domain.StatusBlocked, Action: ActionBlock, RequiredPermission: domain.PermissionProducts},

		// Return and refund handling.
		{EntityType: ret, From: domain.StatusRequested, To: domain.StatusApproved, Action: ActionApprove, RequiredPermission: domain.PermissionReturns},
		{EntityType: ret, From: domain.StatusRequested, To: domain.StatusRejected, Action: ActionReject, RequiredPermission: domain.PermissionReturns},
		{EntityType: ret, From: domain.StatusApproved, To: domain.StatusPickupScheduled, Action: ActionSchedulePickup, RequiredPermission: domain.PermissionReturns},
		{EntityType: ret, From: domain.StatusPickupScheduled, To: domain.StatusPickedUp, Action: ActionMarkPickedUp, RequiredPermission: domain.PermissionReturns},
		{EntityType: ret, From: domain.StatusPickedUp, To: domain.StatusRefunded, Action: ActionRefund, RequiredPermission: domain.PermissionReturns, Guard: refundGuard, EscalateFor: escalateBelowSuperAdmin},
		{EntityType: ret, From: domain.StatusPickedUp, To: domain.StatusReplaced, Action: ActionReplace, RequiredPermission: domain.PermissionReturns},
		{EntityType: ret, From: domain.StatusRefunded, To: domain.StatusCompleted, Action: ActionComplete, RequiredPermission: domain.PermissionReturns},
		{EntityType: ret, From: domain.StatusReplaced, To: domain.StatusCompleted, Action: ActionComplete, RequiredPermission: domain.PermissionReturns},
	}
}

// commissionGuard requires an approval payload to set a commission percentage
// within (0, 100].
func commissionGuard(_ domain.Entity, payload json.RawMessage, _ domain.Actor) error {
	var body struct {
		CommissionPercentage *float64 `json:"commissionPercentage"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			return apperrors.WithMetadata(apperrors.CodeValidationFailed,
				"approval payload is not valid JSON",
				map[string]string{"Detail": "malformed payload"})
		}
	}
	if body.CommissionPercentage == nil {
		return apperrors.WithMetadata(apperrors.CodeValidationFailed,
			"commission percentage is required",
			map[string]string{"Detail": "commissionPercentage is required"})
	}
	if *body.CommissionPercentage <= 0 || *body.CommissionPercentage > 100 {
		return apperrors.WithMetadata(apperrors.CodeValidationFailed,
			"commission percentage out of range",
			map[string]string{"Detail": "commissionPercentage must be in (0, 100]"})
	}
	return nil
}

// refundGuard requires a positive refund amount no greater than the item
// price recorded on the return request.
func refundGuard(entity domain.Entity, payload json.RawMessage, _ domain.Actor) error {
	var body struct {
		RefundAmount *float64 `json:"refundAmount"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			return apperrors.WithMetadata(apperrors.CodeValidationFailed,
				"refund payload is not valid JSON",
				map[string]string{"Detail": "malformed payload"})
		}
	}
	if body.RefundAmount == nil || *body.RefundAmount <= 0 {
		return apperrors.WithMetadata(apperrors.CodeValidationFailed,
			"refund amount must be positive",
			map[string]string{"Detail": "refundAmount must be greater than zero"})
	}
	if itemPrice, ok := entity.DomainField("itemPrice"); ok && *body.RefundAmount > itemPrice {
		return apperrors.WithMetadata(apperrors.CodeValidationFailed,
			"refund amount exceeds item price",
			map[string]string{"Detail": "refundAmount exceeds the original item price"})
	}
	return nil
}

// escalateBelowSuperAdmin defers execution to a super admin for everyone else.
func escalateBelowSuperAdmin(actor domain.Actor) bool {
	return actor.Role != domain.RoleSuperAdmin
}
