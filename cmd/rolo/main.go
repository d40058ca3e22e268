// Command rolo is a local contact manager with a conversational mode backed
// by a local language model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xiaot623/rolo/internal/config"
	"github.com/xiaot623/rolo/internal/logging"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rolo",
	Short: "rolo - a local, privacy-first contact manager",
	Long: `rolo keeps your contacts, tags, notes and relationships in a local SQLite
database. Talk to it through a local OpenAI-compatible model (Ollama, llama.cpp,
LM Studio) with "rolo chat", or use the direct commands.

Every change made through a tool is preceded by an automatic backup.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ROLO_CONFIG"), "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, chatCmd, toolsCmd, contactsCmd, backupCmd, modelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
