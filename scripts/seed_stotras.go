package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"consultdesk/internal/config"
	"consultdesk/internal/database"
	"consultdesk/internal/domain"
	"consultdesk/internal/models"
	"consultdesk/internal/postgres"
	"consultdesk/internal/supabase"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type StotrasFile struct {
	Stotras []models.Stotra `yaml:"stotras"`
}

type seedStore interface {
	domain.StotraStore
	Close() error
}

type adminSetter interface {
	SetUserAdmin(ctx context.Context, id string, isAdmin bool) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		configPath  = flag.String("config", "configs/config.yaml", "path to config.yaml")
		stotrasPath = flag.String("stotras", "configs/stotras.yaml", "path to stotras.yaml")
		adminID     = flag.String("admin", "", "user id to flag as admin (self-hosted stores only)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := os.ReadFile(*stotrasPath)
	if err != nil {
		return fmt.Errorf("read stotras: %w", err)
	}
	var file StotrasFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse stotras: %w", err)
	}
	if len(file.Stotras) == 0 && *adminID == "" {
		return fmt.Errorf("no stotras in yaml")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := open(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	seeded := 0
	for i := range file.Stotras {
		st := &file.Stotras[i]
		if st.ID == "" || st.Title == "" {
			logger.Warn().Int("index", i).Msg("skipping stotra without id or title")
			continue
		}
		if err = store.UpsertStotra(ctx, st); err != nil {
			return fmt.Errorf("upsert %s: %w", st.ID, err)
		}
		seeded++
	}
	logger.Info().Int("seeded", seeded).Str("store", cfg.Store.Backend).Msg("stotra catalog seeded")

	if *adminID != "" {
		setter, ok := store.(adminSetter)
		if !ok {
			return fmt.Errorf("store %q does not support setting admins; use the hosted dashboard", cfg.Store.Backend)
		}
		if err = setter.SetUserAdmin(ctx, *adminID, true); err != nil {
			return fmt.Errorf("set admin %s: %w", *adminID, err)
		}
		logger.Info().Str("user_id", *adminID).Msg("user flagged as admin")
	}
	return nil
}

func open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (seedStore, error) {
	switch cfg.Store.Backend {
	case config.BackendSupabase:
		if cfg.Supabase.ServiceRoleKey == "" {
			return nil, fmt.Errorf("seeding the hosted store requires SUPABASE_SERVICE_ROLE_KEY")
		}
		return supabase.NewStore(supabase.NewClient(cfg.Supabase, logger)), nil
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.Database.Postgres, logger)
	default:
		return database.NewDB(cfg.Database.Path, logger)
	}
}
