package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harshpatel5940/reelmark/internal/ui"
)

// Version is stamped into backup metadata and the HTTP user agent.
var Version = "0.4.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reelmark",
	Short: "Timestamp bookmarks for your media player, synced to the cloud",
	Long: `reelmark keeps the timestamp bookmarks of your media player plugin in a
local store and backs them up to cloud storage.

It supports:
  - Google Drive and Dropbox (OAuth access or refresh tokens)
  - S3-compatible storage (AWS, MinIO, R2, B2)
  - Azure Blob Storage

Local and cloud copies are merged by last modification, newest wins.
Backups can be encrypted with age.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Verbose = verbose
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.reelmark.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")
}
