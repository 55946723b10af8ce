package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"TruthFilter/internal/app"
	"TruthFilter/internal/usecase"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var cron bool
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest, classify and store one batch per enabled platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				pipeline, err := a.Pipeline(ctx)
				if err != nil {
					return err
				}
				report, err := pipeline.Run(ctx, usecase.RunOptions{Limit: limit, Cron: cron})
				if err != nil {
					return err
				}
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				}
				printRunReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&cron, "cron", false, "scheduled mode: larger batches, digest only when there are insights")
	cmd.Flags().IntVar(&limit, "limit", 0, "posts per platform (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run report as JSON")
	return cmd
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline in cron mode on the configured interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				sched, err := a.Scheduler(ctx)
				if err != nil {
					return err
				}
				if err := sched.Start(ctx); err != nil {
					return err
				}
				a.Logger().Info("watching", "interval", a.Config().Scheduler.Interval)
				<-ctx.Done()
				return sched.Stop(context.WithoutCancel(ctx))
			})
		},
	}
}

func printRunReport(w io.Writer, report usecase.RunReport) {
	fmt.Fprintf(w, "run %s finished in %s\n", report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	for _, p := range report.Platforms {
		if p.Error != "" {
			fmt.Fprintf(w, "  %-7s failed: %s\n", p.Platform, p.Error)
			continue
		}
		fmt.Fprintf(w, "  %-7s harvested=%d skipped=%d inserted=%d insights=%d\n",
			p.Platform, p.Harvested, p.Skipped, p.Inserted, p.Insights)
	}
	for _, in := range report.Insights {
		fmt.Fprintf(w, "  [%s] %s %s\n", in.Verdict, in.PostID, in.URL)
	}
}
