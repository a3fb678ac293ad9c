package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "musiclib-ingest",
	Short: "musiclib-ingest runs and drives the ingestion pipeline core",
	Long: `musiclib-ingest is the transcode -> dual S3 upload -> document-DB
insert ingestion pipeline for a desktop music-library manager.

Run "musiclib-ingest serve" to start the server a desktop client talks to,
or use the submit/cancel/status subcommands to drive an already-running
server for manual testing and scripting.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8787", "ingest server URL, used by submit/cancel/status/healthcheck")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
