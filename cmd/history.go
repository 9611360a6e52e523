package cmd

import (
	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/chat"
)

var (
	historyLimit   int
	historyOutput  string
	historyConfirm bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the chat history kept outside sessions",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the most recent history entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			limit := historyLimit
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.HistoryLimit
			}
			turns, err := a.client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			transcript := chat.NewTranscript(nil, turns)
			if done, err := writeStructured(a.out, historyOutput, transcript); done {
				return err
			}

			p := newPrinter(a.out, a.cfg.RenderMarkdown)
			if len(transcript.Messages) == 0 {
				p.Muted("No chat history.")
				return nil
			}
			for _, m := range transcript.Messages {
				p.Message(m)
			}
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the chat history kept outside sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !historyConfirm {
			return &internal.UserError{Message: "refusing to clear the chat history without --yes"}
		}
		return withLogin(cmd, func(a *app, _ *api.User) error {
			// the controller's info notice reports success
			return a.controller(false).ClearHistory(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyShowCmd.Flags().IntVarP(&historyLimit, "limit", "n", internal.DefaultHistoryLimit, "Number of entries to show")
	historyShowCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "Output format (text, json, yaml)")
	historyClearCmd.Flags().BoolVarP(&historyConfirm, "yes", "y", false, "Confirm deleting the history")
}
