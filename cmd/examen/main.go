package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"examen/cmd/examen/chat"
	"examen/internal/config"
	"examen/internal/logging"
)

const version = "1.0.0"

var (
	// Global flags
	cfgFile string
	apiURL  string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd launches the interactive chat interface.
var rootCmd = &cobra.Command{
	Use:   "examen",
	Short: "examen - conversational daily examination of conscience",
	Long: `examen is a terminal front end for a guided daily examination of
conscience. It walks through the question sequence served by the backend,
requests the spiritual analysis once the exam is complete, and then opens a
free-form doctrine Q&A mode.

Conversation state is cached locally and survives restarts within the same
calendar day; a new day always starts fresh.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return chat.Run(cfg)
	},
}

func init() {
	// Assigned here rather than in the composite literal because the
	// closure refers to rootCmd, which would otherwise be an
	// initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// A .env next to the binary may carry EXAMEN_* overrides.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.Gateway.BaseURL = apiURL
		}

		stateDir, err := config.StateDir()
		if err != nil {
			return err
		}
		if err := logging.Initialize(stateDir, cfg.Logging.Debug || verbose, cfg.Logging.Level); err != nil {
			return err
		}

		// The interactive TUI owns the terminal; zap is only wired for the
		// plain subcommands.
		if cmd.Name() == rootCmd.Name() {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the examen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("examen %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.examen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
