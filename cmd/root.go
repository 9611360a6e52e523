package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
)

var (
	verbose         bool
	configPath      string
	apiURL          string
	stateDir        string
	credentialStore string
	timeout         time.Duration
	version         string = "dev"
	commit          string = "unknown"
	date            string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dietchat",
	Short: "Chat with the diet planning AI agents from your terminal",
	Long: `A command-line client for the diet planning AI agents backend.

Log in once and the token is kept in a local credential store; every
request sends it as a bearer token. When the backend rejects it the
token is cleared and you are asked to log in again.

Features:
  • Chat sessions with the nutrition, recipe and diet tracking agents
  • Structured replies rendered as readable summaries
  • Session management (list, create, switch, rename, delete)
  • Meal logging and daily intake analysis
  • Transcript export (JSONL, Markdown, YAML, JSON, HTML)

Quick Start:
  dietchat login --email you@example.com   # Sign in
  dietchat chat                             # Start chatting
  dietchat chat -m "calories in a banana?"  # One-shot question
  dietchat meals list                       # Today's meals`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.dietchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API base URL including /api (overrides config)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory for the credential store (overrides config)")
	rootCmd.PersistentFlags().StringVar(&credentialStore, "credential-store", "", "Credential store backend: file or sqlite (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (overrides config)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
