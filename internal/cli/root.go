package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"studyhub/internal/config"
	"studyhub/internal/lib/slogcustom"
)

var (
	port       string
	configPath string
	logLevel   string
)

// Execute runs the CLI.
func Execute() error {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "studyhub",
		Short:        "Session engine and gateway for the study platform",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides log.level)")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewQuizCmd(&configPath))
	cmd.AddCommand(NewWatchCmd(&configPath))
	return cmd
}

// loadConfig reads the config file and installs the process logger. A missing file
// yields an empty config so offline commands still work.
func loadConfig(path string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, nil, err
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := slogcustom.New(os.Stderr, level)
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("config file not found, using defaults", "path", path)
	}
	return cfg, logger, nil
}
