package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/staysync/booking-backend/internal/config"
	"github.com/staysync/booking-backend/internal/database"
)

// One-shot stay-completion sweep. Normally the in-process scheduler handles
// this; the CLI exists for backfills and for running the sweep from an
// external job runner.
func main() {
	var dbURLFlag string
	var cutoffFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&cutoffFlag, "cutoff", "", "complete stays checked out before this RFC3339 time (default: now)")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	cutoff := time.Now().UTC()
	if cutoffFlag != "" {
		parsed, err := time.Parse(time.RFC3339, cutoffFlag)
		if err != nil {
			log.Fatalf("invalid -cutoff value: %v", err)
		}
		cutoff = parsed.UTC()
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	bookingRepo := database.NewBookingRepository(db)

	completed, err := bookingRepo.CompletePastStays(cutoff)
	if err != nil {
		log.Fatalf("failed to complete past stays: %v", err)
	}

	fmt.Printf("Completed %d past stay(s) with check-out before %s\n", completed, cutoff.Format(time.RFC3339))
}
