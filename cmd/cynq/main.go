// Package main provides the CLI entry point for the cynq consultation
// server.
//
// cynq pairs a durable session and ecosystem store with an LLM-backed chat
// orchestrator and exposes everything over an HTTP API.
//
// # Basic Usage
//
// Start the server:
//
//	cynq serve --config cynq.yaml
//
// # Environment Variables
//
//   - CYNQ_CONFIG: Path to configuration file (default: cynq.yaml)
//   - OPENAI_API_KEY / ANTHROPIC_API_KEY: provider credentials, referenced
//     from the config file via ${VAR} expansion
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached. This
// is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cynq",
		Short: "cynq - personal ecosystem consultation server",
		Long: `cynq serves an AI consultation API over a durable personal ecosystem:
chat sessions with tool calling, community intelligence, mock service
connections and data sync.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
	)
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cynq server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), resolveConfigPath(configPath), debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

// resolveConfigPath picks the config file: the flag wins, then CYNQ_CONFIG,
// then cynq.yaml if present. Empty means run on defaults.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv("CYNQ_CONFIG"); env != "" {
		return env
	}
	if _, err := os.Stat("cynq.yaml"); err == nil {
		return "cynq.yaml"
	}
	return ""
}
