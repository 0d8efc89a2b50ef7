// Command seed provisions the pages table from a JSON dump. Run once after
// migrations; re-running skips pages that are already present.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/itu-devops/whoknows/internal/config"
	"github.com/itu-devops/whoknows/internal/store"
)

func main() {
	cfg := config.Load()
	file := flag.String("file", cfg.PagesFile, "path to the pages JSON dump")
	flag.Parse()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("postgres migrate", "error", err)
		os.Exit(1)
	}

	inserted, err := store.New(pool).SeedPages(ctx, *file)
	if err != nil {
		logger.Error("seed pages", "file", *file, "error", err)
		os.Exit(1)
	}
	logger.Info("seeded pages", "file", *file, "inserted", inserted)
}
