package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/bizpanel/internal/bootstrap"
)

var providersTimeout time.Duration

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Probe every configured model backend",
	RunE:  runProviders,
}

func init() {
	providersCmd.Flags().DurationVar(&providersTimeout, "timeout", 30*time.Second, "overall probe timeout")
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := bootstrap.NewProviders(cfg, newLogger())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), providersTimeout)
	defer cancel()
	m.TestAll(ctx)

	backends := m.Backends()
	if len(backends) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No providers configured.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tMODEL\tACTIVE\tAVAILABLE\tDEFAULT\tENDPOINT")
	down := 0
	for _, b := range backends {
		if b.Active && !b.Available {
			down++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%t\t%s\n", b.Name, b.Type, b.Model, b.Active, b.Available, b.Default, b.Endpoint)
	}
	tw.Flush()
	if down > 0 {
		return fmt.Errorf("%d active backend(s) unreachable", down)
	}
	return nil
}
