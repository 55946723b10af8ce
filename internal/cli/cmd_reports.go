package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"TruthFilter/internal/api"
	"TruthFilter/internal/app"
)

func newBriefingCmd(opts *globalOptions) *cobra.Command {
	var flags filterFlags
	var generate bool

	cmd := &cobra.Command{
		Use:   "briefing",
		Short: "Show the cached briefing for a filter, or generate a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				b, err := a.Briefings(ctx)
				if err != nil {
					return err
				}
				view, err := b.View(ctx, filter)
				if err != nil {
					return err
				}
				if generate || view.Content == "" {
					if view, err = b.Generate(ctx, filter); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				state := "fresh"
				if !view.Fresh {
					state = "stale, rerun with --generate"
				}
				fmt.Fprintf(out, "%s (%d records, %s)\n\n%s\n", view.Key, view.Records, state, view.Content)
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&generate, "generate", false, "regenerate even when a cached briefing exists")
	return cmd
}

func newAskCmd(opts *globalOptions) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question grounded on the filtered records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				b, err := a.Briefings(ctx)
				if err != nil {
					return err
				}
				answer, err := b.Ask(ctx, filter, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newDigestCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Render the most recent non-noise verdicts into an HTML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				path, n, err := a.Digest().Generate(ctx, limit)
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no relevant records found")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "digest with %d records saved to %s\n", n, path)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of recent records (default from config)")
	return cmd
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				router, err := a.Router(ctx)
				if err != nil {
					return err
				}
				if addr == "" {
					addr = a.Config().API.Addr
				}
				return api.Serve(ctx, addr, router, a.Logger().With("component", "api"))
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
