// Package domain defines the core records governed by the approval engine:
// entities with lifecycle statuses, the actors that move them, the
// append-only audit entries that record every applied transition, and the
// escalation requests that defer privileged transitions to a confirmer.
package domain
