// Command seed is the operator tool for the entropy stream and the shared
// catalogs. It extends the entropy stream deterministically from a fixed
// seed and installs template characters from the asset catalog. Safe to run
// repeatedly: existing entropy entries are never rewritten.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"wayfarer/internal/assets"
	"wayfarer/internal/config"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/entropy"
	"wayfarer/internal/repository/file"
	"wayfarer/internal/repository/sqlite"
)

func main() {
	_ = godotenv.Load()

	targetLength := flag.Int("entropy", 1000, "minimum entropy stream length to ensure")
	seedCharacters := flag.Bool("characters", true, "install template characters from the asset catalog")
	flag.Parse()

	cfg := config.Load()
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var store repositories.Storage
	var err error
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		store, err = sqlite.Open(cfg.DatabaseURL, logger)
	default:
		store, err = file.New(cfg.DataRoot, logger)
	}
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	source := entropy.NewSource(store)

	length, err := source.Length(ctx)
	if err != nil {
		logger.Error("entropy length read failed", "error", err)
		os.Exit(1)
	}
	if length < *targetLength {
		newLength, err := source.Extend(ctx, cfg.EntropySeed, *targetLength-length)
		if err != nil {
			logger.Error("entropy extension failed", "error", err)
			os.Exit(1)
		}
		logger.Info("entropy stream extended", "from", length, "to", newLength, "seed", cfg.EntropySeed)
	} else {
		logger.Info("entropy stream already long enough", "length", length)
	}

	if *seedCharacters {
		catalog, err := assets.Load(cfg.AssetsDir)
		if err != nil {
			logger.Error("asset catalog load failed", "error", err)
			os.Exit(1)
		}
		for _, world := range catalog.Worlds() {
			if world.Character == nil {
				continue
			}
			rec := &models.CharacterRecord{
				Slug:      world.Name,
				Sheet:     world.Character,
				UpdatedAt: time.Now().UTC(),
			}
			if err := store.SaveSharedCharacter(ctx, rec); err != nil {
				logger.Error("template character install failed", "world", world.Name, "error", err)
				os.Exit(1)
			}
			logger.Info("template character installed", "world", world.Name)
		}
	}
}
