package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"TruthFilter/internal/app"
	"TruthFilter/internal/domain"
)

func newReprocessCmd(opts *globalOptions) *cobra.Command {
	var all bool
	var onlyErrors bool

	cmd := &cobra.Command{
		Use:   "reprocess [id]",
		Short: "Re-run classification for one record, all non-noise records or failed records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, on := range []bool{len(args) == 1, all, onlyErrors} {
				if on {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("pass exactly one of: an id, --all, --errors")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				r, err := a.Reprocessor(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case len(args) == 1:
					res, err := r.One(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s -> %s\n%s\n", args[0], res.Verdict, res.Summary)
				case all:
					report, err := r.All(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "reprocessed %d/%d (failed %d)\n", report.Updated, report.Total, report.Failed)
				default:
					report, err := r.Errors(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "repaired %d/%d (still failing %d)\n", report.Updated, report.Total, report.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "every record whose AI verdict is not NOISE; manual verdicts are kept")
	cmd.Flags().BoolVar(&onlyErrors, "errors", false, "records whose summary carries an error marker")
	return cmd
}

func newOverrideCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "override <id> <TRUE|FALSE|MIXED|NOISE|clear>",
		Short: "Set or clear the manual verdict of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var verdict *domain.Verdict
			if !strings.EqualFold(args[1], "clear") {
				v, ok := domain.ParseVerdict(args[1])
				if !ok {
					return fmt.Errorf("unknown verdict %q", args[1])
				}
				verdict = &v
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				if err := a.Store().SetManualVerdict(ctx, args[0], verdict); err != nil {
					return err
				}
				if verdict == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: manual verdict cleared\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: manual verdict %s\n", args[0], *verdict)
				}
				return nil
			})
		},
	}
}

func newResetOverridesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-overrides",
		Short: "Clear every manual verdict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				n, err := a.Maintenance().ResetOverrides(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d manual verdicts\n", n)
				return nil
			})
		},
	}
}

func newFixURLsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-urls",
		Short: "Rebuild missing post URLs from structural identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				report, err := a.Maintenance().FixURLs(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fixed %d urls, skipped %d hash identities\n", report.Fixed, report.Skipped)
				return nil
			})
		},
	}
}

func newBackfillImagesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-images",
		Short: "Visit X and Weibo posts stored without an image and capture one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				report, err := a.Backfiller().Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backfilled %d/%d (failed %d)\n", report.Updated, report.Total, report.Failed)
				return nil
			})
		},
	}
}

func newResetImagesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-images <platform>",
		Short: "Delete a platform's images and clear their paths so backfill fetches them again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, ok := domain.ParsePlatform(args[0])
			if !ok {
				return fmt.Errorf("unknown platform %q", args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				report, err := a.Maintenance().ResetImages(ctx, platform)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d files, reset %d records\n", report.FilesDeleted, report.RecordsReset)
				return nil
			})
		},
	}
}
