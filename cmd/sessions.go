package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/chat"
)

var sessionsOutput string

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage chat sessions",
	Long: `Manage the chat sessions kept by the backend. The active session is
marked with '*' and is the one 'dietchat chat' continues.`,
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List chat sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			ctl := a.controller(false)
			if err := ctl.RefreshSessions(cmd.Context()); err != nil {
				return err
			}
			sessions := ctl.Snapshot().Sessions
			if done, err := writeStructured(a.out, sessionsOutput, sessions); done {
				return err
			}
			newPrinter(a.out, false).Sessions(sessions, "")
			return nil
		})
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a session and make it active",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			session, err := a.controller(false).CreateSession(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := a.client.ActivateSession(cmd.Context(), session.ID); err != nil {
				internal.LogWarn("Failed to activate session %s: %v", session.ID, err)
			}
			internal.PrintSuccess(a.out, fmt.Sprintf("Created session %s (%s)", session.ID, session.Title))
			return nil
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the messages of a session (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			ctx := cmd.Context()
			var transcript *chat.Transcript
			if len(args) == 1 {
				res, err := a.client.SessionMessages(ctx, args[0])
				if err != nil {
					return err
				}
				session := res.Session
				if session == nil {
					session = &api.Session{ID: args[0]}
				}
				transcript = chat.NewTranscript(session, res.Turns)
			} else {
				ctl := a.controller(false)
				ctl.Initialize(ctx)
				state := ctl.Snapshot()
				transcript = &chat.Transcript{Session: state.ActiveSession, Messages: state.Messages}
			}

			if done, err := writeStructured(a.out, sessionsOutput, transcript); done {
				return err
			}
			p := newPrinter(a.out, a.cfg.RenderMarkdown)
			p.Section(transcript.Title())
			if transcript.Session != nil {
				p.Muted("%s · %d messages", transcript.Session.ID, len(transcript.Messages))
			}
			fmt.Fprintln(a.out)
			if len(transcript.Messages) == 0 {
				p.Muted("No messages yet.")
			}
			for _, m := range transcript.Messages {
				p.Message(m)
			}
			return nil
		})
	},
}

var sessionsSwitchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make a session the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			ctl := a.controller(false)
			if err := ctl.RefreshSessions(cmd.Context()); err != nil {
				return err
			}
			if err := ctl.SwitchSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			active := ctl.Snapshot().ActiveSession
			internal.PrintSuccess(a.out, fmt.Sprintf("Switched to %s (%s)", active.ID, active.Title))
			return nil
		})
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			title := strings.Join(args[1:], " ")
			if err := a.controller(false).RenameSession(cmd.Context(), args[0], title); err != nil {
				return err
			}
			internal.PrintSuccess(a.out, fmt.Sprintf("Renamed %s to %q", args[0], strings.TrimSpace(title)))
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a session",
	Long: `Delete a session. Deleting the active session switches to the first
remaining one, or starts a new session when none remain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, _ *api.User) error {
			ctx := cmd.Context()
			ctl := a.controller(false)
			ctl.Initialize(ctx)

			if err := ctl.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			internal.PrintSuccess(a.out, fmt.Sprintf("Deleted session %s", args[0]))
			if active := ctl.Snapshot().ActiveSession; active != nil {
				internal.PrintInfo(a.out, fmt.Sprintf("Active session: %s (%s)", active.ID, active.Title))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsSwitchCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsListCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "text", "Output format (text, json, yaml)")
	sessionsShowCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "text", "Output format (text, json, yaml)")
}
