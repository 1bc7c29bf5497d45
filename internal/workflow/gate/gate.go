// Package gate resolves whether an acting principal may execute a transition
// rule. Authorization is derived here, server-side, from the actor's role and
// grants; client-side rendering of allowed actions is advisory only.
package gate

import (
	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
	"github.com/sellerdesk/approvals/internal/workflow/registry"
)

// Authorize checks the actor against the rule's required permission.
//
// Super admins always pass. Admins pass when their grant map holds the
// required key, except for the users permission, which stays super-admin
// only no matter what the stored map claims — a forged grant map submitted
// by a client cannot widen it. Every other role is denied.
func Authorize(actor domain.Actor, rule registry.Rule) error {
	if actor.Role == domain.RoleSuperAdmin {
		return nil
	}

	if actor.Role == domain.RoleAdmin {
		if rule.RequiredPermission == domain.PermissionUsers {
			return denied(actor, rule)
		}
		if actor.HasPermission(rule.RequiredPermission) {
			return nil
		}
	}

	return denied(actor, rule)
}

func denied(actor domain.Actor, rule registry.Rule) error {
	return apperrors.WithMetadata(apperrors.CodePermissionDenied,
		"actor "+actor.ID+" lacks permission "+string(rule.RequiredPermission)+" for "+rule.Action,
		map[string]string{
			"Permission": string(rule.RequiredPermission),
			"Action":     rule.Action,
		})
}
