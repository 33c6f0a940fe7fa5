// Package cli wires the lecturetutor commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lecturetutor/internal/config"
	"lecturetutor/internal/logger"
	"lecturetutor/internal/service"
)

// version is set at build time with -ldflags.
var version = "dev"

var (
	cfgFile string
	verbose bool

	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "lecturetutor",
	Short: "Ask questions about a recorded lecture",
	Long: `lecturetutor transcribes one lecture recording, indexes the transcript
and answers questions grounded in what was said.

Run "lecturetutor process" once, then "lecturetutor chat" or "lecturetutor ask".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config (default ./config.yaml or ~/.config/lecturetutor/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	// cobra prints to stderr unless an output writer is set
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}
	// API keys may live in .env; a missing file is fine
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(logLevel(cfg), cfg.Log.Format, cmd.ErrOrStderr())
	appConfig = cfg
	return nil
}

func logLevel(cfg *config.AppConfig) string {
	if verbose {
		return "debug"
	}
	return cfg.Log.Level
}

func newService() (*service.LectureService, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return service.NewLectureService(appConfig)
}
