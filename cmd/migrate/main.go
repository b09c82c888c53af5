package main

import (
	"database/sql"
	"flag"
	"log"
	"strings"

	_ "github.com/lib/pq"

	"github.com/fixora/servicebay/internal/adapter/persistence"
	"github.com/fixora/servicebay/internal/config"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	switch strings.ToLower(*mode) {
	case "up":
		version, err := persistence.RunMigrations(db)
		if err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		log.Printf("Migration up completed successfully (version %d)", version)
	case "down":
		if err := persistence.RollbackMigrations(db); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		log.Println("Migration down completed successfully")
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}
