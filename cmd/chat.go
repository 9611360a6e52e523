package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/chat"
)

// historyFileName is the REPL input history kept in the state directory
const historyFileName = "chat_history"

var (
	chatMessage string
	chatFlat    bool
	chatLimit   int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the nutrition assistant",
	Long: `Start an interactive chat in the active session, or send a single
message with -m.

The session the backend marks active is continued; when there is none a
new session is started. Type /help inside the chat for commands.

Examples:
  dietchat chat
  dietchat chat -m "How much protein is in 200g of chicken breast?"
  dietchat chat --flat          # use the history kept outside sessions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd, func(a *app, user *api.User) error {
			ctx := cmd.Context()
			ctl := a.controller(true)
			defer ctl.Close()

			if chatFlat {
				if err := ctl.LoadHistory(ctx, chatLimit); err != nil {
					return err
				}
			} else {
				ctl.Initialize(ctx)
			}

			r := &repl{app: a, cmd: cmd, ctl: ctl, printer: newPrinter(a.out, a.cfg.RenderMarkdown)}
			if chatMessage != "" {
				if !r.send(chatMessage) {
					return errors.New("message is empty")
				}
				return r.lastError()
			}
			return r.run(user)
		})
	},
}

// lineReader reads one line of user input
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerReader gives the REPL line editing and a persisted input history
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	r := &linerReader{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			internal.LogDebug("Failed to read input history: %v", err)
		}
		_ = f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the input history owner-readable only and restores the terminal
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
		f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err == nil {
			if _, err := r.line.WriteHistory(f); err != nil {
				internal.LogDebug("Failed to write input history: %v", err)
			}
			_ = f.Close()
		}
	}
	return r.line.Close()
}

// plainReader reads lines from a non-interactive input such as a pipe
type plainReader struct {
	in  *bufio.Reader
	out io.Writer
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	return readLine(r.in)
}

func (r *plainReader) Close() error { return nil }

// newLineReader uses liner on a terminal and a plain line reader elsewhere
func newLineReader(cmd *cobra.Command, historyFile string) lineReader {
	if f, ok := cmd.InOrStdin().(*os.File); ok && f == os.Stdin && internal.IsTerminal(cmd.OutOrStdout()) {
		return newLinerReader(historyFile)
	}
	return &plainReader{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

type repl struct {
	app     *app
	cmd     *cobra.Command
	ctl     *chat.Controller
	printer *printer
	shown   int
}

// run is the interactive loop; it returns on /quit, end of input or Ctrl+C
func (r *repl) run(user *api.User) error {
	input := newLineReader(r.cmd, filepath.Join(r.app.cfg.StateDir, historyFileName))
	defer func() { _ = input.Close() }()

	r.printer.Section(fmt.Sprintf("🥗 Diet chat · signed in as %s", user.Name))
	r.printActive()
	r.printer.Muted("Type /help for commands, /quit to leave.")
	fmt.Fprintln(r.app.out)
	r.printTranscript()

	prompt := "you> "
	if r.printer.tty {
		prompt = promptStyle.Render("you> ")
	}
	for {
		if r.app.expired {
			return nil
		}
		line, err := input.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.app.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !r.command(line) {
				return nil
			}
			continue
		}
		r.send(line)
	}
}

// send sends text and prints the reply; it reports whether anything was sent
func (r *repl) send(text string) bool {
	r.shown = len(r.ctl.Snapshot().Messages)
	var sent bool
	_ = internal.ShowProgress(r.cmd.Context(), r.app.errOut, "Thinking...", func() error {
		sent = r.ctl.SendMessage(r.cmd.Context(), text)
		return nil
	})
	if !sent {
		return false
	}
	r.printNew(true)
	return true
}

// lastError turns a failed one-shot reply into the command's error
func (r *repl) lastError() error {
	msgs := r.ctl.Snapshot().Messages
	if len(msgs) > 0 && msgs[len(msgs)-1].Error {
		return errors.New(msgs[len(msgs)-1].Content)
	}
	return nil
}

// printNew prints the messages added since the last print. skipUser leaves
// out the user's own echo.
func (r *repl) printNew(skipUser bool) {
	msgs := r.ctl.Snapshot().Messages
	if r.shown > len(msgs) {
		r.shown = 0
	}
	for _, m := range msgs[r.shown:] {
		if skipUser && m.Type == chat.RoleUser {
			continue
		}
		r.printer.Message(m)
	}
	r.shown = len(msgs)
}

func (r *repl) printTranscript() {
	r.shown = 0
	r.printNew(false)
	if r.ctl.ShowSuggestions() {
		r.printer.Muted("Try asking:")
		for _, s := range chat.SuggestedPrompts {
			r.printer.Muted("  • %s", s)
		}
		fmt.Fprintln(r.app.out)
	}
}

func (r *repl) printActive() {
	if active := r.ctl.Snapshot().ActiveSession; active != nil {
		r.printer.Muted("Session %s · %s", active.ID, active.Title)
	} else {
		r.printer.Muted("No session (flat history)")
	}
}

// command runs a slash command and reports whether the loop should go on
func (r *repl) command(line string) bool {
	ctx := r.cmd.Context()
	parts := strings.Fields(line)
	name, rest := strings.ToLower(parts[0]), strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch name {
	case "/help", "/h", "/?", "/":
		r.printHelp()

	case "/quit", "/q", "/exit":
		return false

	case "/new":
		session, err := r.ctl.CreateSession(ctx, rest)
		if err != nil {
			return true
		}
		if err := r.ctl.RefreshSessions(ctx); err != nil {
			internal.LogWarn("Failed to refresh sessions: %v", err)
		}
		internal.PrintSuccess(r.app.out, fmt.Sprintf("Started session %s (%s)", session.ID, session.Title))
		r.printTranscript()

	case "/sessions", "/ls":
		if err := r.ctl.RefreshSessions(ctx); err != nil {
			internal.PrintError(r.app.errOut, "Failed to load sessions: "+chat.FailureMessage(err))
			return true
		}
		state := r.ctl.Snapshot()
		activeID := ""
		if state.ActiveSession != nil {
			activeID = state.ActiveSession.ID
		}
		r.printer.Sessions(state.Sessions, activeID)

	case "/switch":
		id := r.sessionArg(rest)
		if id == "" {
			internal.PrintWarning(r.app.errOut, "usage: /switch <session-id|number>")
			return true
		}
		if err := r.ctl.SwitchSession(ctx, id); err != nil {
			return true
		}
		r.printActive()
		r.printTranscript()

	case "/rename":
		state := r.ctl.Snapshot()
		if state.ActiveSession == nil {
			internal.PrintWarning(r.app.errOut, "No active session to rename")
			return true
		}
		if err := r.ctl.RenameSession(ctx, state.ActiveSession.ID, rest); err == nil {
			internal.PrintSuccess(r.app.out, fmt.Sprintf("Renamed to %q", rest))
		}

	case "/delete":
		id := r.sessionArg(rest)
		if id == "" {
			if active := r.ctl.Snapshot().ActiveSession; active != nil {
				id = active.ID
			}
		}
		if id == "" {
			internal.PrintWarning(r.app.errOut, "usage: /delete [session-id|number]")
			return true
		}
		if err := r.ctl.DeleteSession(ctx, id); err != nil {
			return true
		}
		internal.PrintSuccess(r.app.out, "Deleted session "+id)
		r.printActive()
		r.printTranscript()

	case "/history":
		limit := r.app.cfg.HistoryLimit
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			limit = n
		}
		if err := r.ctl.LoadHistory(ctx, limit); err != nil {
			return true
		}
		r.printActive()
		r.printTranscript()

	case "/clear":
		if active := r.ctl.Snapshot().ActiveSession; active != nil {
			internal.PrintWarning(r.app.errOut, fmt.Sprintf("/clear only clears the history outside sessions; use /delete to remove %s (%s)", active.ID, active.Title))
			return true
		}
		if err := r.ctl.ClearHistory(ctx); err != nil {
			return true
		}
		r.printTranscript()

	default:
		internal.PrintWarning(r.app.errOut, fmt.Sprintf("unknown command: %s (type /help for commands)", name))
	}
	return true
}

// sessionArg resolves a session id or a 1-based position in the list
func (r *repl) sessionArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ""
	}
	if n, err := strconv.Atoi(arg); err == nil {
		sessions := r.ctl.Snapshot().Sessions
		if n >= 1 && n <= len(sessions) {
			return sessions[n-1].ID
		}
	}
	return arg
}

func (r *repl) printHelp() {
	r.printer.Section("Commands")
	r.printer.Line("  /new [title]         start a new session")
	r.printer.Line("  /sessions            list sessions")
	r.printer.Line("  /switch <id|n>       switch to a session")
	r.printer.Line("  /rename <title>      rename the active session")
	r.printer.Line("  /delete [id|n]       delete a session (the active one by default)")
	r.printer.Line("  /history [limit]     show the history kept outside sessions")
	r.printer.Line("  /clear               clear the history outside sessions")
	r.printer.Line("  /quit                leave the chat")
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send one message and print the reply")
	chatCmd.Flags().BoolVar(&chatFlat, "flat", false, "Use the history kept outside sessions")
	chatCmd.Flags().IntVar(&chatLimit, "limit", internal.DefaultHistoryLimit, "Number of history entries to load with --flat")
}
