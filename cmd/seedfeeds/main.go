// The seedfeeds binary registers feed sources from a YAML seed file. It is
// an administrative one-shot tool; the worker never creates sources itself.
//
// Seed file format:
//
//	feeds:
//	  - name: Example Wire
//	    url: https://example.com/rss
//	    region: na
//	    quirks:
//	      description_is_html: true
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/infra/adapter/persistence/postgres"
	"pressfeed/internal/infra/adapter/persistence/sqlite"
	"pressfeed/internal/infra/db"
	"pressfeed/internal/observability/logging"
	"pressfeed/internal/repository"
)

type seedFile struct {
	Feeds []seedFeed `yaml:"feeds"`
}

type seedFeed struct {
	Name   string             `yaml:"name"`
	URL    string             `yaml:"url"`
	Region string             `yaml:"region"`
	Active *bool              `yaml:"active"`
	Quirks *entity.FeedQuirks `yaml:"quirks"`
}

func main() {
	path := flag.String("file", "feeds.yaml", "path to the YAML seed file")
	flag.Parse()

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	seeds, err := loadSeedFile(*path)
	if err != nil {
		logger.Error("failed to load seed file", slog.String("path", *path), slog.Any("error", err))
		os.Exit(1)
	}
	if len(seeds.Feeds) == 0 {
		logger.Error("seed file contains no feeds", slog.String("path", *path))
		os.Exit(1)
	}

	database, repo := openFeedRepo(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created := 0
	for _, seed := range seeds.Feeds {
		source := &entity.FeedSource{
			Name:   seed.Name,
			URL:    seed.URL,
			Region: seed.Region,
			Active: seed.Active == nil || *seed.Active,
			Quirks: seed.Quirks,
		}
		if err := source.Validate(); err != nil {
			logger.Error("invalid feed source in seed file",
				slog.String("name", seed.Name),
				slog.Any("error", err))
			os.Exit(1)
		}
		if err := repo.Create(ctx, source); err != nil {
			logger.Error("failed to create feed source",
				slog.String("name", source.Name),
				slog.Any("error", err))
			os.Exit(1)
		}
		created++
		logger.Info("feed source created",
			slog.Int64("id", source.ID),
			slog.String("name", source.Name),
			slog.String("region", source.Region))
	}

	logger.Info("seeding completed", slog.Int("created", created))
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}
	return &seeds, nil
}

func openFeedRepo(logger *slog.Logger) (database interface{ Close() error }, repo repository.FeedRepository) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "pgx"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Error("DB_DSN is required")
		os.Exit(1)
	}

	conn, err := db.Open(driver, dsn, db.DefaultConnectionConfig())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	switch driver {
	case "sqlite3":
		if err := db.MigrateUpSQLite(conn); err != nil {
			logger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		return conn, sqlite.NewFeedRepo(conn)
	default:
		if err := db.MigrateUp(conn); err != nil {
			logger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		return conn, postgres.NewFeedRepo(conn)
	}
}
