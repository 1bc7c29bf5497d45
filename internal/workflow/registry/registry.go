// Package registry declares, per entity type, the legal lifecycle states and
// the permission-gated edges between them. Lookups are pure and fail closed:
// any edge not explicitly registered is illegal.
package registry

import (
	"encoding/json"
	"fmt"

	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// Guard is a predicate a transition must satisfy beyond state and permission
// checks. A nil return allows the transition; guards return typed
// VALIDATION_FAILED errors otherwise.
type Guard func(entity domain.Entity, payload json.RawMessage, actor domain.Actor) error

// EscalatePredicate reports whether the acting principal may only request the
// transition, deferring execution to a higher-privileged confirmer.
type EscalatePredicate func(actor domain.Actor) bool

// Rule describes one legal lifecycle edge.
type Rule struct {
	EntityType         domain.EntityType
	From               domain.Status
	To                 domain.Status
	Action             string
	RequiredPermission domain.PermissionKey
	Guard              Guard
	EscalateFor        EscalatePredicate
}

// StateDefinition describes the state space of one entity type.
type StateDefinition struct {
	States   []domain.Status
	Initial  domain.Status
	Terminal []domain.Status
}

// Contains reports whether status belongs to the definition.
func (d StateDefinition) Contains(status domain.Status) bool {
	for _, s := range d.States {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status ends the lifecycle.
func (d StateDefinition) IsTerminal(status domain.Status) bool {
	for _, s := range d.Terminal {
		if s == status {
			return true
		}
	}
	return false
}

// Registry resolves transition rules and action names per entity type.
type Registry struct {
	defs    map[domain.EntityType]StateDefinition
	edges   map[domain.EntityType]map[domain.Status]map[domain.Status]Rule
	actions map[domain.EntityType]map[string]domain.Status
}

// New validates the definitions and rules and builds a registry.
//
// Construction fails on edges referencing unknown states, duplicate
// (from, to) pairs, edges leaving a terminal state, or an action name bound
// to more than one target status within a type.
func New(defs map[domain.EntityType]StateDefinition, rules []Rule) (*Registry, error) {
	r := &Registry{
		defs:    make(map[domain.EntityType]StateDefinition, len(defs)),
		edges:   make(map[domain.EntityType]map[domain.Status]map[domain.Status]Rule, len(defs)),
		actions: make(map[domain.EntityType]map[string]domain.Status, len(defs)),
	}

	for entityType, def := range defs {
		if !def.Contains(def.Initial) {
			return nil, fmt.Errorf("%s: initial status %q is not a declared state", entityType, def.Initial)
		}
		for _, terminal := range def.Terminal {
			if !def.Contains(terminal) {
				return nil, fmt.Errorf("%s: terminal status %q is not a declared state", entityType, terminal)
			}
		}
		r.defs[entityType] = def
		r.edges[entityType] = make(map[domain.Status]map[domain.Status]Rule)
		r.actions[entityType] = make(map[string]domain.Status)
	}

	for _, rule := range rules {
		def, ok := r.defs[rule.EntityType]
		if !ok {
			return nil, fmt.Errorf("rule %s: unknown entity type %q", rule.Action, rule.EntityType)
		}
		if !def.Contains(rule.From) {
			return nil, fmt.Errorf("%s %s: unknown from status %q", rule.EntityType, rule.Action, rule.From)
		}
		if !def.Contains(rule.To) {
			return nil, fmt.Errorf("%s %s: unknown to status %q", rule.EntityType, rule.Action, rule.To)
		}
		if def.IsTerminal(rule.From) {
			return nil, fmt.Errorf("%s %s: terminal status %q cannot have outgoing edges", rule.EntityType, rule.Action, rule.From)
		}
		if rule.Action == "" {
			return nil, fmt.Errorf("%s %s->%s: action name is required", rule.EntityType, rule.From, rule.To)
		}
		if rule.RequiredPermission == "" {
			return nil, fmt.Errorf("%s %s: required permission is missing", rule.EntityType, rule.Action)
		}

		byFrom := r.edges[rule.EntityType][rule.From]
		if byFrom == nil {
			byFrom = make(map[domain.Status]Rule)
			r.edges[rule.EntityType][rule.From] = byFrom
		}
		if _, exists := byFrom[rule.To]; exists {
			return nil, fmt.Errorf("%s: duplicate rule %s->%s", rule.EntityType, rule.From, rule.To)
		}
		byFrom[rule.To] = rule

		if target, exists := r.actions[rule.EntityType][rule.Action]; exists {
			if target != rule.To {
				return nil, fmt.Errorf("%s: action %q targets both %q and %q", rule.EntityType, rule.Action, target, rule.To)
			}
		} else {
			r.actions[rule.EntityType][rule.Action] = rule.To
		}
	}

	return r, nil
}

// Definition returns the state definition for an entity type.
func (r *Registry) Definition(entityType domain.EntityType) (StateDefinition, bool) {
	def, ok := r.defs[entityType]
	return def, ok
}

// Initial returns the initial status for an entity type.
func (r *Registry) Initial(entityType domain.EntityType) (domain.Status, bool) {
	def, ok := r.defs[entityType]
	if !ok {
		return domain.StatusUnspecified, false
	}
	return def.Initial, true
}

// Rule returns the rule for the (from, to) edge, failing closed when the
// edge is not registered.
func (r *Registry) Rule(entityType domain.EntityType, from, to domain.Status) (Rule, bool) {
	byFrom, ok := r.edges[entityType]
	if !ok {
		return Rule{}, false
	}
	byTo, ok := byFrom[from]
	if !ok {
		return Rule{}, false
	}
	rule, ok := byTo[to]
	return rule, ok
}

// Target resolves an action name to its target status for an entity type.
func (r *Registry) Target(entityType domain.EntityType, action string) (domain.Status, bool) {
	byAction, ok := r.actions[entityType]
	if !ok {
		return domain.StatusUnspecified, false
	}
	target, ok := byAction[action]
	return target, ok
}
