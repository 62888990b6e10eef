package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Pszemocny/4-in-a-row/internal/config"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
	"github.com/Pszemocny/4-in-a-row/internal/store"
)

var (
	configPath string
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:          "fourinrow",
		Short:        "Four-in-a-row on a 6x6 board with a minimax move advisor",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return logger.Initialize(cfg.LogLevel, cfg.LogFormat)
		},
		RunE: runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"YAML config file (defaults to $"+config.EnvConfigFile+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the store described by the loaded config
func openStore() (*store.Store, error) {
	return store.Open(store.Config{
		Path:     cfg.DataDir,
		InMemory: cfg.InMemoryStore,
	})
}
