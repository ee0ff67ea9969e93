// Package cli implements the filings command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/filings-qa/internal/logger"
)

// version is set at build time through SetVersion.
var version = "dev"

var (
	configPath   string
	manifestPath string
	envFile      string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "filings",
	Short: "Question answering over company filings",
	Long: `Filings chunks, embeds and indexes annual reports and earnings-call
transcripts listed in a manifest, then answers questions about them with
citations back to the pages and sections they came from.

Configuration is read from ~/.filings/config.toml. API keys may also come
from the environment or a .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.filings/config.toml)")
	flags.StringVarP(&manifestPath, "manifest", "m", "", "document manifest (default from config)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// SetVersion sets the version reported by 'filings version'.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command. Interrupts cancel the command context so
// in-flight embedding batches and API calls stop cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func preRun(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile == "" {
		return nil
	}
	// Variables already set in the environment take precedence.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}
