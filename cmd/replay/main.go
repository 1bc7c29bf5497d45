// Package main verifies audit-trail integrity offline: it replays every
// entity's trail from its initial status and reports divergence from the
// stored status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sellerdesk/approvals/internal/platform/config"
	"github.com/sellerdesk/approvals/internal/storage/sqlite"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
	"github.com/sellerdesk/approvals/internal/workflow/engine"
	"github.com/sellerdesk/approvals/internal/workflow/registry"
)

func main() {
	var dbPath string
	var entityID string
	flag.StringVar(&dbPath, "db", filepath.Join("data", "approvals.db"), "path to the approvals database")
	flag.StringVar(&entityID, "entity", "", "check a single entity id (default: all)")
	flag.Parse()

	log.SetPrefix("[REPLAY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, dbPath, entityID); err != nil {
		config.Exitf("replay check failed: %v", err)
	}
}

func run(ctx context.Context, dbPath, entityID string) error {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	rules := registry.Default()

	var ids []string
	if entityID != "" {
		ids = []string{entityID}
	} else {
		for _, entityType := range []domain.EntityType{domain.EntityTypeSeller, domain.EntityTypeProduct, domain.EntityTypeReturn} {
			typeIDs, err := store.ListEntityIDs(ctx, entityType)
			if err != nil {
				return err
			}
			ids = append(ids, typeIDs...)
		}
	}

	divergent := 0
	for _, id := range ids {
		entity, err := store.GetEntity(ctx, id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		initial, ok := rules.Initial(entity.Type)
		if !ok {
			return fmt.Errorf("%s: no rule set for type %q", id, entity.Type)
		}
		entries, err := store.ListAuditEntries(ctx, id, 0)
		if err != nil {
			return fmt.Errorf("load trail for %s: %w", id, err)
		}
		replayed, err := engine.Replay(initial, entries)
		if err != nil {
			divergent++
			log.Printf("%s: broken trail: %v", id, err)
			continue
		}
		if replayed != entity.Status {
			divergent++
			log.Printf("%s: replayed %q, stored %q", id, replayed, entity.Status)
		}
	}

	if divergent > 0 {
		return fmt.Errorf("%d of %d entities diverged", divergent, len(ids))
	}
	log.Printf("%d entities verified", len(ids))
	return nil
}
