package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"media-subscription-platform/internal/config"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/repository"
	pg "media-subscription-platform/internal/infra/db/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)

	// If plans already exist, do nothing
	plans, err := planRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (%d %s, price=%d)\n", p.Name, p.IntervalValue, p.IntervalUnit, p.Price)
		}
		return
	}

	seed := []struct {
		Name  string
		Value int
		Unit  model.IntervalUnit
		Price int64
	}{
		{"Monthly", 1, model.IntervalMonth, 39_900},
		{"Quarterly", 3, model.IntervalMonth, 99_900},
		{"Annual", 1, model.IntervalYear, 349_900},
	}

	for _, s := range seed {
		p, err := model.NewPlan(uuid.NewString(), s.Name, "", s.Price, s.Value, s.Unit)
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, %d %s, price=%d)\n", p.Name, p.ID, p.IntervalValue, p.IntervalUnit, p.Price)
	}

	fmt.Println("Seeding complete.")
}
