// migrate runs DB migrations from embedded SQL; use go run ./cmd/migrate.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"directory-console/backend/internal/config"
	"directory-console/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DB_URL is not set; create a .env from .env.example or set DB_URL")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// Already at target version; success.
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
