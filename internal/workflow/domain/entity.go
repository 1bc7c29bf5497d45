package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EntityType identifies the kind of governed business record.
type EntityType string

const (
	EntityTypeUnspecified EntityType = ""
	// EntityTypeSeller is a seller account awaiting onboarding approval.
	EntityTypeSeller EntityType = "seller"
	// EntityTypeProduct is a product listing under moderation.
	EntityTypeProduct EntityType = "product"
	// EntityTypeReturn is a return/refund request.
	EntityTypeReturn EntityType = "return"
)

// ParseEntityType canonicalizes an entity type label.
func ParseEntityType(value string) (EntityType, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch EntityType(trimmed) {
	case EntityTypeSeller, EntityTypeProduct, EntityTypeReturn:
		return EntityType(trimmed), true
	default:
		return EntityTypeUnspecified, false
	}
}

// Entity is a governed business record with a lifecycle status.
//
// Version increments on every applied transition and anchors the
// compare-and-swap write path; two requests racing on the same entity cannot
// both commit against the same version.
type Entity struct {
	ID       string
	Type     EntityType
	Status   Status
	Name     string
	Category string
	// Domain holds type-specific fields (commission, item price, SKU, ...)
	// that the engine passes through to guards but does not interpret.
	Domain    json.RawMessage
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DomainField extracts a single numeric field from the entity's domain
// document. Guards use this for price and amount checks.
func (e Entity) DomainField(name string) (float64, bool) {
	if len(e.Domain) == 0 {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.Domain, &fields); err != nil {
		return 0, false
	}
	raw, ok := fields[name]
	if !ok {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	return value, true
}
