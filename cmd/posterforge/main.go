package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/posterforge/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "posterforge",
	Short: "Populate and export design-canvas posters from structured content",
	Long: `Posterforge drives a design-canvas plugin over a websocket channel:
it reads a content document, creates one card per content item inside a
poster template, fills text and image slots, then resizes and exports the
result.`,
	SilenceUsage: true,
}

func init() {
	defaultCfg := filepath.Join(os.Getenv("HOME"), ".posterforge", "config.json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "config file path")
}

// loadConfig loads the config or exits. Commands that can run without a
// valid config do not exist; failing fast keeps the error at the top.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
