package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check whether a running server is healthy",
	Long:  "Hits /health on a running server and exits non-zero if it does not respond 200 OK, for use as a container healthcheck probe.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(apiURL + "/health")
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server unhealthy: %s", resp.Status)
		}
		fmt.Println("ok")
		return nil
	},
}
