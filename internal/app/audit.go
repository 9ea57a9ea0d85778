package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
	"github.com/blackwell-systems/depaudit/internal/config"
	"github.com/blackwell-systems/depaudit/internal/evidence"
	"github.com/blackwell-systems/depaudit/internal/manifest"
	"github.com/blackwell-systems/depaudit/internal/output"
	"github.com/blackwell-systems/depaudit/internal/store"
)

// ErrFlaggedDependencies is returned by audit --fail-on-flagged when any
// declaration is flagged for removal.
var ErrFlaggedDependencies = errors.New("dependencies flagged for removal")

// Sort orders accepted by --sort.
const (
	sortLine       = "line"
	sortSize       = "size"
	sortConfidence = "confidence"
)

var (
	auditFormat        string
	auditFlaggedOnly   bool
	auditMinConfidence int
	auditSort          string
	auditIgnore        []string
	auditPatch         bool
	auditNoHistory     bool
	auditJobs          int
	auditEvidence      string
	auditGradleTree    string
	auditFailOnFlagged bool

	auditCmd = &cobra.Command{
		Use:   "audit [manifest...]",
		Short: "Classify the dependency declarations of Gradle build scripts",
		Long: `Parse each build script, classify every dependency declaration and report
which ones look removable.

Without arguments the build.gradle.kts (or build.gradle) in the current
directory is audited. Several manifests are audited in parallel.

Heuristic mode is used unless evidence is supplied:
  --evidence FILE      one group:artifact:version per line
  --gradle-tree FILE   output of "gradle dependencies"

Each audit is recorded in the history database unless --no-history is set
or history.enabled is false in the config.

Examples:
  depaudit audit
  depaudit audit app/build.gradle.kts --flagged-only
  depaudit audit --format sarif > depaudit.sarif
  depaudit audit --flagged-only --patch
  depaudit audit --gradle-tree deps.txt --fail-on-flagged`,
		RunE: runAudit,
	}
)

func init() {
	auditCmd.Flags().StringVarP(&auditFormat, "format", "f", "", "output format: table, json, yaml, sarif (default from config, else table)")
	auditCmd.Flags().BoolVar(&auditFlaggedOnly, "flagged-only", false, "only show declarations flagged for removal")
	auditCmd.Flags().IntVar(&auditMinConfidence, "min-confidence", 0, "hide results below this confidence (0-100)")
	auditCmd.Flags().StringVar(&auditSort, "sort", sortLine, "sort by: line, size, confidence")
	auditCmd.Flags().StringArrayVar(&auditIgnore, "ignore", nil, "glob of group:artifact coordinates to skip (repeatable)")
	auditCmd.Flags().BoolVar(&auditPatch, "patch", false, "print a unified diff removing flagged lines (table format only)")
	auditCmd.Flags().BoolVar(&auditNoHistory, "no-history", false, "do not record this audit")
	auditCmd.Flags().IntVar(&auditJobs, "jobs", 0, "manifests audited in parallel (default from config)")
	auditCmd.Flags().StringVar(&auditEvidence, "evidence", "", "file of resolved group:artifact:version coordinates")
	auditCmd.Flags().StringVar(&auditGradleTree, "gradle-tree", "", "file containing 'gradle dependencies' output")
	auditCmd.Flags().BoolVar(&auditFailOnFlagged, "fail-on-flagged", false, "exit with status 2 when anything is flagged")
	auditCmd.MarkFlagsMutuallyExclusive("evidence", "gradle-tree")

	RootCmd.AddCommand(auditCmd)
}

// auditOptions are the effective settings of one audit, flags layered over
// the config.
type auditOptions struct {
	format        string
	flaggedOnly   bool
	minConfidence int
	sortBy        string
	ignore        []string
	patch         bool
	history       bool
	jobs          int
	failOnFlagged bool
}

// resolveAuditOptions merges the audit flags over cfg. Zero-valued flags
// defer to the config.
func resolveAuditOptions(cfg *config.Config) (auditOptions, error) {
	opts := auditOptions{
		format:        cfg.Output.Format,
		flaggedOnly:   cfg.Output.FlaggedOnly || auditFlaggedOnly,
		minConfidence: cfg.Output.MinConfidence,
		sortBy:        auditSort,
		ignore:        append(append([]string{}, cfg.Ignore...), auditIgnore...),
		patch:         auditPatch,
		history:       cfg.History.Enabled && !auditNoHistory,
		jobs:          cfg.Audit.Jobs,
		failOnFlagged: auditFailOnFlagged,
	}
	if auditFormat != "" {
		opts.format = auditFormat
	}
	if auditMinConfidence != 0 {
		opts.minConfidence = auditMinConfidence
	}
	if auditJobs != 0 {
		opts.jobs = auditJobs
	}
	if opts.format == "" {
		opts.format = config.FormatTable
	}
	if opts.sortBy == "" {
		opts.sortBy = sortLine
	}

	if !validFormat(opts.format) {
		return opts, fmt.Errorf("invalid format %q: must be one of table, json, yaml, sarif", opts.format)
	}
	if opts.minConfidence < 0 || opts.minConfidence > 100 {
		return opts, fmt.Errorf("--min-confidence must be between 0 and 100, got %d", opts.minConfidence)
	}
	switch opts.sortBy {
	case sortLine, sortSize, sortConfidence:
	default:
		return opts, fmt.Errorf("invalid sort %q: must be one of line, size, confidence", opts.sortBy)
	}
	if opts.jobs < 1 {
		return opts, fmt.Errorf("--jobs must be at least 1, got %d", opts.jobs)
	}
	return opts, nil
}

func validFormat(f string) bool {
	for _, known := range config.Formats {
		if f == known {
			return true
		}
	}
	return false
}

// manifestAudit is the outcome of auditing one manifest.
type manifestAudit struct {
	Path    string
	Lines   []string
	Results []analyzer.ClassificationResult
	RunID   string
}

func runAudit(cmd *cobra.Command, args []string) error {
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

	ignore, err := analyzer.NewIgnoreList(opts.ignore)
	if err != nil {
		return err
	}

	paths, err := resolveManifests(args)
	if err != nil {
		return err
	}

	ev, err := loadEvidence(auditEvidence, auditGradleTree)
	if err != nil {
		return err
	}
	if ev != nil {
		log.Debug().Int("coordinates", ev.Len()).Msg("loaded evidence")
	}

	var progress *output.ProgressBar
	if len(paths) > 1 && opts.format == config.FormatTable {
		progress = output.NewProgress(len(paths))
	}

	audits, err := auditManifests(ctx, newClassifier(cfg), paths, ev, ignore, opts.jobs, progress)
	if err != nil {
		return err
	}

	if opts.history {
		recordHistory(ctx, cfg, audits)
	}

	if err := renderAudits(cmd.OutOrStdout(), audits, opts); err != nil {
		return err
	}

	if opts.failOnFlagged {
		for _, a := range audits {
			if analyzer.Summarize(a.Results).Flagged > 0 {
				return ErrFlaggedDependencies
			}
		}
	}
	return nil
}

// auditManifests reads and classifies each manifest with at most jobs in
// flight. Results keep the order of paths. Ignored coordinates are dropped
// after classification.
func auditManifests(ctx context.Context, c *analyzer.Classifier, paths []string, ev *evidence.Set,
	ignore *analyzer.IgnoreList, jobs int, progress *output.ProgressBar) ([]manifestAudit, error) {
	log := loggerFrom(ctx)
	audits := make([]manifestAudit, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			lines, err := readManifest(path)
			if err != nil {
				return err
			}

			decls := manifest.Parse(lines)
			results := ignore.Filter(c.ClassifyAll(decls, ev))

			log.Debug().
				Str("manifest", path).
				Int("declarations", len(decls)).
				Int("ignored", len(decls)-len(results)).
				Msg("classified manifest")

			audits[i] = manifestAudit{Path: path, Lines: lines, Results: results}
			if progress != nil {
				progress.Done(filepath.Base(path))
			}
			return nil
		})
	}

	err := g.Wait()
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return nil, err
	}
	return audits, nil
}

// recordHistory stores each audit as a run. History is best effort: a
// failure is logged and the audit still reports.
func recordHistory(ctx context.Context, cfg *config.Config, audits []manifestAudit) {
	log := loggerFrom(ctx)

	st, err := openStore(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("audit history disabled for this run")
		return
	}
	defer st.Close()

	for i := range audits {
		a := &audits[i]
		run := &store.Run{ManifestPath: a.Path, Mode: modeOf(a.Results)}
		if err := st.InsertRun(run, a.Results); err != nil {
			log.Warn().Err(err).Str("manifest", a.Path).Msg("failed to record audit")
			continue
		}
		a.RunID = run.ID
		log.Debug().Str("run", run.ShortID()).Str("manifest", a.Path).Msg("recorded audit")
	}
}

// modeOf returns the mode of a result set, heuristic when it is empty.
func modeOf(results []analyzer.ClassificationResult) analyzer.Mode {
	if len(results) == 0 {
		return analyzer.ModeHeuristic
	}
	return results[0].Mode
}

// viewResults applies the display filters and sort order.
func viewResults(results []analyzer.ClassificationResult, opts auditOptions) []analyzer.ClassificationResult {
	view := make([]analyzer.ClassificationResult, 0, len(results))
	for _, r := range results {
		if opts.flaggedOnly && !r.IsFlaggedForRemoval {
			continue
		}
		if r.Confidence < opts.minConfidence {
			continue
		}
		view = append(view, r)
	}

	switch opts.sortBy {
	case sortSize:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].EstimatedSizeMB > view[j].EstimatedSizeMB
		})
	case sortConfidence:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].Confidence > view[j].Confidence
		})
	}
	return view
}

func renderAudits(w io.Writer, audits []manifestAudit, opts auditOptions) error {
	switch opts.format {
	case config.FormatJSON, config.FormatYAML, config.FormatSARIF:
		reports := make([]output.Report, 0, len(audits))
		for _, a := range audits {
			reports = append(reports, output.NewReport(a.Path, a.RunID, viewResults(a.Results, opts)))
		}
		switch opts.format {
		case config.FormatJSON:
			return output.WriteJSON(w, reports...)
		case config.FormatYAML:
			return output.WriteYAML(w, reports...)
		default:
			root, err := os.Getwd()
			if err != nil {
				root = ""
			}
			return output.WriteSARIF(w, root, version, reports...)
		}
	}

	for i, a := range audits {
		if len(audits) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s ==\n", a.Path)
		}
		renderAuditTable(w, a, opts)
	}
	return nil
}

func renderAuditTable(w io.Writer, a manifestAudit, opts auditOptions) {
	sum := analyzer.Summarize(a.Results)

	fmt.Fprint(w, output.RenderFindingsTable(viewResults(a.Results, opts)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.RenderCategorySummary(sum))
	fmt.Fprintln(w, output.RenderSavingsFooter(sum))

	if warnings := analyzer.RemovalWarnings(a.Results); len(warnings) > 0 {
		fmt.Fprintln(w, "\nBefore removing:")
		for _, warning := range warnings {
			fmt.Fprintf(w, "  • %s\n", warning)
		}
	}

	if a.RunID != "" {
		fmt.Fprintf(w, "\nRecorded as run %s\n", (&store.Run{ID: a.RunID}).ShortID())
	}

	if opts.patch && sum.Flagged > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, output.RenderPatch(a.Path, a.Lines, a.Results))
	}
}
