package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/wizziwig82/musiclib-ingest/internal/util"
)

var submitCmd = &cobra.Command{
	Use:   "submit <path>",
	Short: "Submit a single file to a running server for ingestion",
	Long: `Submit one audio file for transcoding, upload, and metadata storage
against a running "musiclib-ingest serve" process.

Example:
  musiclib-ingest submit ~/Music/track.wav --title "Track" --artist "Artist" --album "Album"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		artist, _ := cmd.Flags().GetString("artist")
		album, _ := cmd.Flags().GetString("album")
		trackNumber, _ := cmd.Flags().GetInt("track-number")
		year, _ := cmd.Flags().GetInt("year")
		genreFlag, _ := cmd.Flags().GetString("genre")
		genre := util.ParseGenreArray(genreFlag)
		return submitBatch(args[0], title, artist, album, trackNumber, year, genre)
	},
}

func init() {
	submitCmd.Flags().String("title", "", "track title")
	submitCmd.Flags().String("artist", "", "track artist")
	submitCmd.Flags().String("album", "", "album name")
	submitCmd.Flags().Int("track-number", 0, "track number within the album")
	submitCmd.Flags().Int("year", 0, "release year")
	submitCmd.Flags().String("genre", "", "genre tags (comma-separated)")
}

type submitItemMetadata struct {
	Title       string   `json:"title"`
	Artist      string   `json:"artist"`
	Album       string   `json:"album"`
	TrackNumber int      `json:"track_number"`
	Year        int      `json:"year"`
	Genre       []string `json:"genre,omitempty"`
}

type submitItem struct {
	Path     string             `json:"path"`
	Metadata submitItemMetadata `json:"metadata"`
}

type submitRequest struct {
	Items []submitItem `json:"items"`
}

func submitBatch(path, title, artist, album string, trackNumber, year int, genre []string) error {
	reqBody := submitRequest{
		Items: []submitItem{{
			Path: path,
			Metadata: submitItemMetadata{
				Title:       title,
				Artist:      artist,
				Album:       album,
				TrackNumber: trackNumber,
				Year:        year,
				Genre:       genre,
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := http.Post(apiURL+"/api/v1/batch", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("submit batch failed: %s: %s", resp.Status, string(respBody))
	}

	fmt.Println(string(respBody))
	return nil
}
