// seed inserts development sample data for local testing.
// Idempotent: skips when the marker override (seed.applied) already exists.
package main

import (
	"context"
	"log"
	"os"

	"directory-console/backend/internal/config"
	"directory-console/backend/internal/db"
	"directory-console/backend/internal/sysconfig"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DB_URL is not set; create a .env from .env.example or set DB_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	store := sysconfig.NewStore(conn)
	ctx := context.Background()

	applied, err := store.Get(ctx, "seed.applied")
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if applied != nil {
		log.Println("Seed already applied. Skipping.")
		os.Exit(0)
	}

	overrides := map[string]any{
		"password_expiry.enable":     true,
		"password_expiry.days":       "7,3,1",
		"sms.send_interval_seconds":  60,
		"sms.auto_retry":             true,
		"login.max_fails":            5,
		"login.lock_minutes":         10,
		"otp.action_ttl_minutes":     10,
		"announcement.login_message": "Development environment",
	}
	if err := store.SetMany(ctx, overrides); err != nil {
		log.Fatalf("seed overrides: %v", err)
	}
	if err := store.Set(ctx, "seed.applied", true); err != nil {
		log.Fatalf("seed marker: %v", err)
	}

	log.Println("Seed completed successfully.")
}
