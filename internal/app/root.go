package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depaudit/internal/config"
)

// version is overridden at build time with -ldflags "-X ...app.version=v1.2.3".
var version = "dev"

var (
	cfgFile string
	dbPath  string
	verbose bool
	quiet   bool

	// RootCmd is the root command for depaudit
	RootCmd = &cobra.Command{
		Use:   "depaudit",
		Short: "Find dependencies a Gradle build probably does not need",
		Long: `depaudit reads a Gradle build script, finds every dependency declaration
and classifies how likely each one is to be needed.

Two strategies are available:
  • Heuristic (default): name families and configuration kind decide the
    category, confidence and a size estimate.
  • Evidence: pass the coordinates the build actually resolves (--evidence
    or --gradle-tree) and anything declared but not resolved is flagged.

Both are estimates. depaudit never edits your build files; --patch prints a
diff you can review and apply yourself.

Examples:
  # Audit the build script in the current directory
  depaudit audit

  # Audit several modules in parallel, as JSON
  depaudit audit app/build.gradle.kts lib/build.gradle --format json

  # Use resolved dependencies as evidence
  ./gradlew :app:dependencies > deps.txt
  depaudit audit app/build.gradle.kts --gradle-tree deps.txt

  # Why was this flagged?
  depaudit explain app/build.gradle.kts com.google.guava:guava

  # Compare with the previous audit
  depaudit history diff app/build.gradle.kts`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupCommand,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .depaudit.yaml, then $XDG_CONFIG_HOME/depaudit/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (default: ~/.depaudit/depaudit.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	RootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	defer closeLogFile()
	return RootCmd.ExecuteContext(context.Background())
}

type configKey struct{}

// setupCommand initializes logging and configuration for every subcommand
// and stores both on the command context.
func setupCommand(cmd *cobra.Command, _ []string) error {
	logger := initLogger(verbose, quiet)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx)

	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(ctx, cfgFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}

	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

// configFrom returns the configuration stored by setupCommand, or the
// defaults when the command was invoked without it.
func configFrom(ctx context.Context) *config.Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok && cfg != nil {
			return cfg
		}
	}
	return config.Default()
}

// loggerFrom returns the command logger, or a disabled logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := zerolog.Nop()
		return &l
	}
	return zerolog.Ctx(ctx)
}

// getDBPath returns the database path: the --db flag, then history.db_path,
// then ~/.depaudit/depaudit.db.
func getDBPath(cfg *config.Config) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg != nil && cfg.History.DBPath != "" {
		return cfg.History.DBPath, nil
	}

	dir, err := depauditHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "depaudit.db"), nil
}

// depauditHome returns ~/.depaudit, creating it if needed.
func depauditHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".depaudit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create depaudit directory: %w", err)
	}
	return dir, nil
}
