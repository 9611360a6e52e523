package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/chat"
	"github.com/iksnae/dietchat/internal/export"
)

var (
	format       string
	outputPath   string
	sessionID    string
	exportLimit  int
	exportActive bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a chat transcript to a file",
	Long: `Export a chat transcript to jsonl, md, yaml, json or html.

Export one session with --session-id (or the active one with --active), or
the history kept outside sessions when neither is given. Without --out the
transcript is written to standard output; a directory as --out receives a
file named after the session.

Use 'dietchat sessions list' to see available session IDs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		return withLogin(cmd, func(a *app, _ *api.User) error {
			transcript, err := loadTranscript(cmd, a)
			if err != nil {
				return err
			}

			if outputPath == "" || outputPath == "-" {
				return exporter.Export(transcript, a.out)
			}

			path := outputPath
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, exportFileName(transcript, exporter))
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			file, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", path, err)
			}
			if err := exporter.Export(transcript, file); err != nil {
				_ = file.Close()
				return fmt.Errorf("failed to export transcript: %w", err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to close file %s: %w", path, err)
			}

			internal.PrintSuccess(a.errOut, fmt.Sprintf("Exported %d message(s) to %s", len(transcript.Messages), path))
			return nil
		})
	},
}

// loadTranscript fetches the session or history selected by the flags
func loadTranscript(cmd *cobra.Command, a *app) (*chat.Transcript, error) {
	ctx := cmd.Context()
	id := sessionID
	if id == "" && exportActive {
		sessions, err := a.client.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			if s.IsActive {
				id = s.ID
			}
		}
		if id == "" {
			return nil, &internal.UserError{Message: "no active session (use 'dietchat sessions list' to pick one)"}
		}
	}

	if id == "" {
		limit := exportLimit
		if !cmd.Flags().Changed("limit") {
			limit = a.cfg.HistoryLimit
		}
		turns, err := a.client.History(ctx, limit)
		if err != nil {
			return nil, err
		}
		return chat.NewTranscript(nil, turns), nil
	}

	res, err := a.client.SessionMessages(ctx, id)
	if err != nil {
		var apiErr *internal.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, internal.WithUserMessage(err, fmt.Sprintf("session not found: %s (use 'dietchat sessions list' to see available sessions)", id))
		}
		return nil, err
	}
	session := res.Session
	if session == nil {
		session = &api.Session{ID: id}
	}
	return chat.NewTranscript(session, res.Turns), nil
}

func exportFileName(t *chat.Transcript, exporter export.Exporter) string {
	if t.Session != nil {
		return fmt.Sprintf("session_%s.%s", t.Session.ID, exporter.Extension())
	}
	return fmt.Sprintf("history_%s.%s", today(), exporter.Extension())
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json, html)")
	exportCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output file or directory (default stdout)")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
	exportCmd.Flags().BoolVar(&exportActive, "active", false, "Export the active session")
	exportCmd.Flags().IntVar(&exportLimit, "limit", internal.DefaultHistoryLimit, "Number of history entries when no session is selected")
}
