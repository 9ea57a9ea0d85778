package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
	"github.com/blackwell-systems/depaudit/internal/config"
	"github.com/blackwell-systems/depaudit/internal/watcher"
)

var (
	watchDebounce time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch [manifest...]",
		Short: "Re-audit build scripts whenever they change",
		Long: `Audit the given build scripts, then watch them and audit again each time
one is saved. Press Ctrl+C to stop.

Saves arriving in quick succession are coalesced; --debounce (or
watch.debounce in the config) sets how long a file must be quiet first.

The audit flags apply: watch accepts the same --format, --flagged-only,
--ignore, --evidence and --gradle-tree options as audit.`,
		Example: `  # Watch the build script in the current directory
  depaudit watch

  # Watch two modules, flagged declarations only
  depaudit watch app/build.gradle.kts lib/build.gradle.kts --flagged-only`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before re-auditing (default from config)")

	// Share the audit flags so watch renders exactly what audit would.
	for _, name := range []string{"format", "flagged-only", "min-confidence", "sort", "ignore", "no-history", "evidence", "gradle-tree"} {
		watchCmd.Flags().AddFlag(auditCmd.Flags().Lookup(name))
	}

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := configFrom(ctx)
	log := loggerFrom(ctx)

	opts, err := resolveAuditOptions(cfg)
	if err != nil {
		return err
	}
	// watch never prints patches or stops on flagged results.
	opts.patch = false
	opts.failOnFlagged = false

	ignore, err := analyzer.NewIgnoreList(opts.ignore)
	if err != nil {
		return err
	}

	paths, err := resolveManifests(args)
	if err != nil {
		return err
	}

	debounce := cfg.Watch.Debounce
	if watchDebounce > 0 {
		debounce = watchDebounce
	}

	w, err := watcher.New(paths, debounce, *log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	audit := func(ctx context.Context, changed []string) {
		// Evidence is reloaded on every change.
		ev, err := loadEvidence(auditEvidence, auditGradleTree)
		if err != nil {
			log.Error().Err(err).Msg("failed to load evidence")
			return
		}

		audits, err := auditManifests(ctx, newClassifier(cfg), changed, ev, ignore, opts.jobs, nil)
		if err != nil {
			log.Error().Err(err).Msg("audit failed")
			return
		}
		if opts.history {
			recordHistory(ctx, cfg, audits)
		}

		if opts.format == config.FormatTable {
			fmt.Fprintf(out, "── %s ──\n", time.Now().Format("15:04:05"))
		}
		if err := renderAudits(out, audits, opts); err != nil {
			log.Error().Err(err).Msg("failed to render audit")
		}
	}

	audit(ctx, paths)

	log.Info().Strs("manifests", w.Paths()).Dur("debounce", debounce).Msg("watching for changes")
	if err := w.Run(ctx, audit); err != nil {
		return err
	}

	log.Info().Msg("stopped watching")
	return nil
}
