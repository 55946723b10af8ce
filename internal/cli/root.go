// Package cli provides the truthfilter command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"TruthFilter/internal/app"
	"TruthFilter/internal/config"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/logging"
)

const flagDateLayout = "2006-01-02"

type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command. Every invocation gets its own options.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "truthfilter",
		Short: "Harvest social posts from a logged-in browser and fact-check them",
		Long: `truthfilter attaches to a running browser, harvests recent posts from X,
Weibo and Reddit, classifies them with a language model and keeps the verdicts
in a local store for review, briefings and digests.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (default $TRUTHFILTER_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newRunCmd(opts),
		newWatchCmd(opts),
		newReprocessCmd(opts),
		newOverrideCmd(opts),
		newResetOverridesCmd(opts),
		newFixURLsCmd(opts),
		newBackfillImagesCmd(opts),
		newResetImagesCmd(opts),
		newBriefingCmd(opts),
		newAskCmd(opts),
		newDigestCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command with the given output writers.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// withApp loads config, opens the application and closes it after fn.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app.Application) error) error {
	cfg := config.Load(opts.configPath)
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()
	return fn(ctx, application)
}

// filterFlags are the record filters shared by briefing and ask.
type filterFlags struct {
	from      string
	to        string
	platforms []string
	verdicts  []string
	search    string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first day (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&f.to, "to", "", "last day (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringSliceVar(&f.platforms, "platform", nil, "platforms (x, wb, reddit)")
	cmd.Flags().StringSliceVar(&f.verdicts, "verdict", nil, "effective verdicts (TRUE, FALSE, MIXED, NOISE)")
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "case-insensitive text search")
}

func (f *filterFlags) filter() (domain.RecordFilter, error) {
	var out domain.RecordFilter
	var err error
	if f.from != "" {
		if out.From, err = time.ParseInLocation(flagDateLayout, f.from, time.Local); err != nil {
			return out, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if f.to != "" {
		if out.To, err = time.ParseInLocation(flagDateLayout, f.to, time.Local); err != nil {
			return out, fmt.Errorf("invalid --to: %w", err)
		}
	}
	for _, raw := range f.platforms {
		p, ok := domain.ParsePlatform(raw)
		if !ok {
			return out, fmt.Errorf("unknown platform %q", raw)
		}
		out.Platforms = append(out.Platforms, p)
	}
	for _, raw := range f.verdicts {
		v, ok := domain.ParseVerdict(raw)
		if !ok {
			return out, fmt.Errorf("unknown verdict %q", raw)
		}
		out.Verdicts = append(out.Verdicts, v)
	}
	out.Search = strings.TrimSpace(f.search)
	return out, nil
}
