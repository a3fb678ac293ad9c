package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <item-id>",
	Short: "Query the last-known progress for one item on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryStatus(args[0])
	},
}

func queryStatus(itemID string) error {
	resp, err := http.Get(apiURL + "/api/v1/items/" + itemID + "/progress")
	if err != nil {
		return fmt.Errorf("query progress: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query progress failed: %s: %s", resp.Status, string(body))
	}
	fmt.Println(string(body))
	return nil
}
