// Package main seeds a local approvals database with demo sellers, products,
// and returns in their initial lifecycle states. It stands in for the
// external onboarding flow during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sellerdesk/approvals/internal/platform/config"
	"github.com/sellerdesk/approvals/internal/platform/id"
	"github.com/sellerdesk/approvals/internal/storage/sqlite"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

type fixture struct {
	entityType domain.EntityType
	status     domain.Status
	name       string
	category   string
	domainJSON string
}

var fixtures = []fixture{
	{domain.EntityTypeSeller, domain.StatusDraft, "Acme Outdoors", "sporting-goods", `{"commissionPercentage":12.5}`},
	{domain.EntityTypeSeller, domain.StatusDraft, "Bloom & Branch", "home-garden", `{}`},
	{domain.EntityTypeSeller, domain.StatusDraft, "Corner Electronics", "electronics", `{}`},
	{domain.EntityTypeProduct, domain.StatusDraft, "Trail Tent 2P", "camping", `{"sku":"TT-2P-01","itemPrice":189.99}`},
	{domain.EntityTypeProduct, domain.StatusDraft, "Ceramic Planter", "home-garden", `{"sku":"CP-12","itemPrice":24.5}`},
	{domain.EntityTypeProduct, domain.StatusDraft, "Wireless Earbuds", "electronics", `{"sku":"WE-77","itemPrice":59.0}`},
	{domain.EntityTypeReturn, domain.StatusRequested, "Return: Trail Tent 2P", "camping", `{"itemPrice":189.99,"orderId":"ord-1001"}`},
	{domain.EntityTypeReturn, domain.StatusRequested, "Return: Wireless Earbuds", "electronics", `{"itemPrice":59.0,"orderId":"ord-1002"}`},
}

func main() {
	var dbPath string
	flag.StringVar(&dbPath, "db", filepath.Join("data", "approvals.db"), "path to the approvals database")
	flag.Parse()

	log.SetPrefix("[SEED] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, dbPath); err != nil {
		config.Exitf("seed failed: %v", err)
	}
}

func run(ctx context.Context, dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	now := time.Now().UTC()
	for _, f := range fixtures {
		entity := domain.Entity{
			ID:        id.NewID(),
			Type:      f.entityType,
			Status:    f.status,
			Name:      f.name,
			Category:  f.category,
			Domain:    json.RawMessage(f.domainJSON),
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateEntity(ctx, entity); err != nil {
			return fmt.Errorf("create %q: %w", f.name, err)
		}
		log.Printf("created %s %s (%s)", entity.Type, entity.ID, entity.Name)
	}
	log.Printf("seeded %d entities", len(fixtures))
	return nil
}
