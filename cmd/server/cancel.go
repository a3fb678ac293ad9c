package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the in-flight batch on a running server",
	Long:  "Signal a running server to stop admitting further items from the current batch and mark remaining queued items cancelled.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(apiURL+"/api/v1/batch/cancel", "application/json", nil)
		if err != nil {
			return fmt.Errorf("cancel batch: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("cancel batch failed: %s: %s", resp.Status, string(body))
		}
		fmt.Println(string(body))
		return nil
	},
}
