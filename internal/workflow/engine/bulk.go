package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/alitto/pond/v2"
	apperrors "github.com/sellerdesk/approvals/internal/errors"
)

// defaultBulkWorkers bounds concurrent per-entity executions in a bulk call.
const defaultBulkWorkers = 8

// BulkDisposition summarizes an aggregate outcome.
type BulkDisposition string

const (
	BulkFullySucceeded     BulkDisposition = "fully_succeeded"
	BulkPartiallySucceeded BulkDisposition = "partially_succeeded"
	BulkFullyFailed        BulkDisposition = "fully_failed"
)

// BulkResult reports per-entity outcomes of one fan-out request.
type BulkResult struct {
	// Succeeded lists ids whose transition applied, sorted.
	Succeeded []string
	// Escalated lists ids whose transition was parked for confirmation.
	Escalated []string
	// Failed maps each failing id to its error code.
	Failed map[string]apperrors.Code
}

// Disposition classifies the aggregate outcome so callers can report which
// entities need manual follow-up.
func (r BulkResult) Disposition() BulkDisposition {
	applied := len(r.Succeeded) + len(r.Escalated)
	switch {
	case len(r.Failed) == 0:
		return BulkFullySucceeded
	case applied == 0:
		return BulkFullyFailed
	default:
		return BulkPartiallySucceeded
	}
}

// ExecuteBulk fans one transition request out over a set of entity ids.
//
// Each id runs through Execute independently on a bounded worker pool; one
// id's failure never aborts the others, and there is no cross-entity
// rollback because each per-entity transition is itself atomic. A cancelled
// context abandons the wait and returns the outcomes collected so far, but
// accepted members still run to completion: no id is silently dropped from
// the store's point of view.
func (e *Engine) ExecuteBulk(ctx context.Context, entityIDs []string, req Request) BulkResult {
	if len(entityIDs) == 0 {
		return BulkResult{Failed: make(map[string]apperrors.Code)}
	}

	var mu sync.Mutex
	collected := BulkResult{Failed: make(map[string]apperrors.Code)}
	memberCtx := context.WithoutCancel(ctx)
	pool := pond.NewPool(defaultBulkWorkers)
	group := pool.NewGroup()

	seen := make(map[string]bool, len(entityIDs))
	for _, entityID := range entityIDs {
		if entityID == "" || seen[entityID] {
			continue
		}
		seen[entityID] = true

		perEntity := req
		perEntity.EntityID = entityID
		group.Submit(func() {
			outcome, err := e.Execute(memberCtx, perEntity)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				collected.Failed[entityID] = apperrors.GetCode(err)
				return
			}
			if outcome.Disposition == DispositionEscalated {
				collected.Escalated = append(collected.Escalated, entityID)
				return
			}
			collected.Succeeded = append(collected.Succeeded, entityID)
		})
	}

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		pool.StopAndWait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	result := BulkResult{
		Succeeded: append([]string(nil), collected.Succeeded...),
		Escalated: append([]string(nil), collected.Escalated...),
		Failed:    make(map[string]apperrors.Code, len(collected.Failed)),
	}
	for entityID, code := range collected.Failed {
		result.Failed[entityID] = code
	}
	mu.Unlock()

	sort.Strings(result.Succeeded)
	sort.Strings(result.Escalated)
	return result
}
