package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/fixora/servicebay/internal/adapter/persistence"
	"github.com/fixora/servicebay/internal/config"
	"github.com/fixora/servicebay/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	names := envList("SEED_SERVICE_TYPES", domain.DefaultServiceTypes)
	productNames := envList("SEED_PRODUCTS", domain.DefaultProducts)

	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	ids, err := persistence.SeedServiceTypes(context.Background(), db, names)
	if err != nil {
		log.Fatalf("failed to seed service types: %v", err)
	}

	for name, id := range ids {
		fmt.Printf("Seeded service type: name=%s id=%s\n", name, id)
	}

	productIDs, err := persistence.SeedProducts(context.Background(), db, productNames)
	if err != nil {
		log.Fatalf("failed to seed products: %v", err)
	}

	for name, id := range productIDs {
		fmt.Printf("Seeded product: name=%s id=%s\n", name, id)
	}
}

// envList reads a comma-separated list from key, falling back to def
func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return def
}
