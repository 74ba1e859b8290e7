package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "0.13.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "steamrevs",
	Short: "Scrape or resume a scrape of user reviews for a Steam appid",
	Long: `steamrevs incrementally pulls user reviews for one Steam product and
appends them to a CSV file, skipping anything it has already written.

A scrape can be interrupted at any point and resumed later: the output
file itself is the checkpoint. Resuming replays the file to rebuild the
duplicate filter, then rescans the window back to the oldest persisted
review.

Features:
  - Cursor pagination in the order the server returns reviews
  - Duplicate suppression across runs via a 64-bit hash set
  - Crash-safe buffered writes that resume mid-flush after a failure
  - Polite fixed-interval rate limiting between requests`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is none)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Version template
	rootCmd.SetVersionTemplate(`steamrevs {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
