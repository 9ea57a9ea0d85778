package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depaudit/internal/config"
	"github.com/blackwell-systems/depaudit/internal/manifest"
	"github.com/blackwell-systems/depaudit/internal/store"
)

// ErrDoctorFailed is returned when a critical check fails.
var ErrDoctorFailed = errors.New("diagnostics found problems")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration, history and manifest problems",
	Long: `Runs diagnostic checks on your depaudit setup.

Checks:
  • Configuration files load and validate
  • History database exists and is accessible
  • A build script is present in the current directory
  • Recommends next steps`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running depaudit diagnostics...")
	fmt.Fprintln(out)

	critical := 0
	warnings := 0

	// Load errors stop setupCommand; validate again to report on it.
	cfg := configFrom(cmd.Context())
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(out, "✗ Configuration invalid:", err)
		critical++
	} else {
		fmt.Fprintln(out, "✓ Configuration valid")
		if global, err := config.GlobalPath(); err == nil {
			reportFile(out, "  global: ", global)
		}
		reportFile(out, "  project:", config.ProjectFileName)
	}

	if !cfg.History.Enabled {
		fmt.Fprintln(out, "⚠ History disabled (history.enabled: false)")
		warnings++
	} else {
		c, w := checkHistory(out, cfg)
		critical += c
		warnings += w
	}

	if paths, err := resolveManifests(nil); err != nil {
		fmt.Fprintln(out, "⚠ No build script in the current directory")
		fmt.Fprintln(out, "  Action: pass a manifest path to 'depaudit audit'")
		warnings++
	} else {
		lines, err := readManifest(paths[0])
		if err != nil {
			fmt.Fprintln(out, "✗", err)
			critical++
		} else {
			fmt.Fprintf(out, "✓ Build script found: %s (%d declarations)\n", paths[0], len(manifest.Parse(lines)))
		}
	}

	fmt.Fprintln(out)
	switch {
	case critical > 0:
		fmt.Fprintf(out, "Found %d critical %s.\n", critical, plural(critical, "issue", "issues"))
		return ErrDoctorFailed
	case warnings > 0:
		fmt.Fprintf(out, "All critical checks passed (%d %s).\n", warnings, plural(warnings, "warning", "warnings"))
	default:
		fmt.Fprintln(out, "All checks passed.")
	}
	return nil
}

// checkHistory reports on the history database and returns the number of
// critical problems and warnings found.
func checkHistory(out io.Writer, cfg *config.Config) (critical, warnings int) {
	path, err := getDBPath(cfg)
	if err != nil {
		fmt.Fprintln(out, "✗ Database path error:", err)
		return 1, 0
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "⚠ No history database yet at:", path)
		fmt.Fprintln(out, "  Action: run 'depaudit audit' to record the first audit")
		return 0, 1
	}

	st, err := store.New(path)
	if err != nil {
		fmt.Fprintln(out, "✗ Database cannot be opened:", err)
		return 1, 0
	}
	defer st.Close()

	ok, err := st.Initialized()
	switch {
	case err != nil:
		fmt.Fprintln(out, "✗ Database not accessible:", err)
		return 1, 0
	case !ok:
		fmt.Fprintln(out, "⚠ Database has no schema yet:", path)
		return 0, 1
	}

	runs, err := st.ListRuns("", 0)
	if err != nil {
		fmt.Fprintln(out, "✗ Database query failed:", err)
		return 1, 0
	}
	fmt.Fprintf(out, "✓ History database: %s (%d %s)\n", path, len(runs), plural(len(runs), "run", "runs"))
	return 0, 0
}

func reportFile(out io.Writer, label, path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, label, path)
	} else {
		fmt.Fprintln(out, label, path, "(not present)")
	}
}
