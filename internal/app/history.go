package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
	"github.com/blackwell-systems/depaudit/internal/config"
	"github.com/blackwell-systems/depaudit/internal/output"
)

var (
	historyManifest string
	historyLimit    int
	historyFormat   string
	historyKeep     int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recorded audits",
		Long: `List audits recorded by 'depaudit audit', newest first.

Subcommands show a recorded run, compare the two latest runs of a manifest
and prune old runs.`,
		Example: `  depaudit history
  depaudit history --manifest app/build.gradle.kts --limit 5
  depaudit history show 3f2a9c1e
  depaudit history diff app/build.gradle.kts
  depaudit history prune --keep 10`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	historyShowCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the findings of a recorded audit",
		Long:  `Show a recorded audit. The run ID may be abbreviated to any unique prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	historyDiffCmd = &cobra.Command{
		Use:   "diff [manifest]",
		Short: "Compare the two latest audits of a manifest",
		Long: `Compare the two most recent audits of a manifest and list declarations that
became flagged, stopped being flagged, were added or were removed.

Without an argument the manifest in the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryDiff,
	}

	historyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete old audits, keeping the newest per manifest",
		Args:  cobra.NoArgs,
		RunE:  runHistoryPrune,
	}
)

func init() {
	historyCmd.Flags().StringVar(&historyManifest, "manifest", "", "only list runs of this manifest")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list (0 for all)")

	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", config.FormatTable, "output format: table, json, yaml")

	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 10, "runs to keep per manifest")

	historyCmd.AddCommand(historyShowCmd, historyDiffCmd, historyPruneCmd)
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", historyLimit)
	}

	st, err := openExistingStore(configFrom(cmd.Context()))
	if err != nil {
		return err
	}
	defer st.Close()

	manifestPath := ""
	if historyManifest != "" {
		if manifestPath, err = filepath.Abs(historyManifest); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", historyManifest, err)
		}
	}

	runs, err := st.ListRuns(manifestPath, historyLimit)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderRunTable(runs))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore(configFrom(cmd.Context()))
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(args[0])
	if err != nil {
		return err
	}
	results, err := st.GetFindings(run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch historyFormat {
	case config.FormatJSON:
		return output.WriteJSON(out, output.NewReport(run.ManifestPath, run.ID, results))
	case config.FormatYAML:
		return output.WriteYAML(out, output.NewReport(run.ManifestPath, run.ID, results))
	case config.FormatTable:
	default:
		return fmt.Errorf("invalid format %q: must be one of table, json, yaml", historyFormat)
	}

	fmt.Fprintf(out, "Run %s · %s · %s mode · %s\n\n",
		run.ShortID(), run.ManifestPath, run.Mode, run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprint(out, output.RenderFindingsTable(results))
	fmt.Fprintln(out)

	sum := analyzer.Summarize(results)
	fmt.Fprintln(out, output.RenderCategorySummary(sum))
	fmt.Fprintln(out, output.RenderSavingsFooter(sum))
	return nil
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	paths, err := resolveManifests(args)
	if err != nil {
		return err
	}
	manifestPath := paths[0]

	st, err := openExistingStore(configFrom(cmd.Context()))
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(manifestPath, 2)
	if err != nil {
		return err
	}
	if len(runs) < 2 {
		return fmt.Errorf("need at least two recorded audits of %s, found %d", manifestPath, len(runs))
	}
	curr, prev := runs[0], runs[1]

	prevResults, err := st.GetFindings(prev.ID)
	if err != nil {
		return err
	}
	currResults, err := st.GetFindings(curr.ID)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderFlagDiff(prev, curr, analyzer.CompareFlags(prevResults, currResults)))
	return nil
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	if historyKeep < 1 {
		return errors.New("--keep must be at least 1")
	}

	st, err := openExistingStore(configFrom(cmd.Context()))
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.PruneRuns(historyKeep)
	if err != nil {
		return err
	}

	loggerFrom(cmd.Context()).Debug().Int64("deleted", n).Int("keep", historyKeep).Msg("pruned history")
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s.\n", n, plural(int(n), "run", "runs"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
