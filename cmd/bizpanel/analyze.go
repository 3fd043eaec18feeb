package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	appanalysis "github.com/bryanwahyu/bizpanel/internal/application/analysis"
	"github.com/bryanwahyu/bizpanel/internal/bootstrap"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

var (
	analyzeTitle       string
	analyzeDescription string
	analyzeCategory    string
	analyzeSegment     string
	analyzeBudget      float64
	analyzeJSON        bool
	analyzeTimeout     time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the final report",
	Example: `  bizpanel analyze --title "Eco Packaging" \
    --description "Biodegradable packaging for grocery retailers" \
    --category retail --budget 25000`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "proposal title (required)")
	analyzeCmd.Flags().StringVarP(&analyzeDescription, "description", "d", "", "proposal description (required)")
	analyzeCmd.Flags().StringVar(&analyzeCategory, "category", "", "TECH, HEALTHCARE, FINANCE, EDUCATION, RETAIL, MANUFACTURING, SERVICES or OTHER")
	analyzeCmd.Flags().StringVar(&analyzeSegment, "segment", "", "target customer segment")
	analyzeCmd.Flags().Float64Var(&analyzeBudget, "budget", 0, "estimated budget in USD")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the status view as JSON")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 30*time.Minute, "give up after this long")
	_ = analyzeCmd.MarkFlagRequired("title")
	_ = analyzeCmd.MarkFlagRequired("description")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	if _, err := app.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	sub := domain.Submission{
		Title:         analyzeTitle,
		Description:   analyzeDescription,
		Category:      analyzeCategory,
		TargetSegment: analyzeSegment,
	}
	if cmd.Flags().Changed("budget") {
		sub.Budget = &analyzeBudget
	}
	req, err := app.Service.Submit(ctx, sub)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "analysis %s queued\n", req.ID)

	done := make(chan struct{})
	go func() {
		app.Pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("analysis %s did not finish: %w", req.ID, ctx.Err())
	}

	view, err := app.Service.Status(context.Background(), req.ID)
	if err != nil {
		return err
	}
	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	printStatus(cmd.OutOrStdout(), view)
	if view.Status != domain.StatusCompleted {
		return fmt.Errorf("analysis %s ended %s", view.ID, view.Status)
	}
	return nil
}

func printStatus(w io.Writer, v *appanalysis.StatusView) {
	fmt.Fprintf(w, "Analysis %s: %s (%.0f%% of agents completed)\n", v.ID, v.Status, v.PercentComplete)
	if v.FailureReason != "" {
		fmt.Fprintf(w, "Reason: %s\n", v.FailureReason)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nAGENT\tSTATUS\tSCORE\tCONFIDENCE\tERROR")
	for _, a := range v.Agents {
		score := "-"
		if a.Score != nil {
			score = fmt.Sprint(*a.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%s\n", a.Agent, a.Status, score, a.Confidence, a.Error)
	}
	tw.Flush()

	f := v.FinalReport
	if f == nil {
		return
	}
	fmt.Fprintf(w, "\nOverall score: %d/100  Recommendation: %s  Confidence: %.0f\n", f.OverallScore, f.Recommendation, f.Confidence)
	fmt.Fprintf(w, "Total cost: $%.4f (%d agents completed, %d failed)\n", f.TotalCost, f.AgentsCompleted, f.AgentsFailed)
	fmt.Fprintf(w, "\n%s\n", f.ExecutiveSummary)
	for _, k := range appanalysis.SubScoreKeys(f) {
		fmt.Fprintf(w, "  %-10s %d\n", k, f.SubScores[k])
	}
	printList(w, "Key findings", f.KeyFindings)
	printList(w, "Major risks", f.MajorRisks)
	printList(w, "Recommendations", f.Recommendations)
	if f.ArtifactURL != "" {
		fmt.Fprintf(w, "\nArchived at %s\n", f.ArtifactURL)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(it))
	}
}
