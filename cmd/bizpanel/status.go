package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	appanalysis "github.com/bryanwahyu/bizpanel/internal/application/analysis"
	"github.com/bryanwahyu/bizpanel/internal/bootstrap"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
	"github.com/bryanwahyu/bizpanel/internal/infra/db/sqlstore"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <analysis-id>",
	Short: "Show the progress or result of a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the status view as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	db, dialect, err := bootstrap.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	store := sqlstore.New(db, dialect)
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	roster, err := bootstrap.NewRoster(cfg)
	if err != nil {
		return err
	}

	// read-only: no scheduler, nothing gets queued
	svc := &appanalysis.Service{
		Requests: store.Requests,
		Reports:  store.Reports,
		Finals:   store.Finals,
		Tasks:    store.Tasks,
		Roster:   roster,
	}
	view, err := svc.Status(ctx, domain.RequestID(args[0]))
	if err != nil {
		return fmt.Errorf("analysis %s: %w", args[0], err)
	}
	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	printStatus(cmd.OutOrStdout(), view)
	return nil
}
