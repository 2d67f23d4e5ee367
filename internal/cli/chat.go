package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harun/pasokh/internal/app"
	"github.com/harun/pasokh/internal/config"
	"github.com/harun/pasokh/pkg/conversation"
)

var chatMetricsAddr string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation. Type a question and press enter.

Commands:
  /clear          delete the conversation (asks for confirmation)
  /dark           toggle dark mode
  /theme [name]   show or change the theme
  /history        reprint the conversation
  /help           show this help
  /quit           leave the chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.AddCommand(chatCmd)
}

// appOptions reports persistence warnings on stderr
func appOptions(cmd *cobra.Command) app.Options {
	errOut := cmd.ErrOrStderr()
	return app.Options{
		OnWarning: func(err error) {
			fmt.Fprintf(errOut, "warning: %v\n", err)
		},
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	opts := appOptions(cmd)
	opts.ResumeUnanswered = true
	a, cleanup, err := bootstrap(cmd, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := chatMetricsAddr
	if addr == "" && a.Config().Metrics.Enabled {
		addr = a.Config().Metrics.Addr
	}
	if addr != "" {
		bound, err := a.StartMetrics(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "metrics: http://%s/metrics\n", bound)
	}

	r := newChatREPL(a.Session(), a.Config(), cmd.InOrStdin(), cmd.OutOrStdout())
	return r.run(cmd.Context())
}

// chatREPL renders a session on a line-oriented terminal
type chatREPL struct {
	session   *conversation.Session
	cfg       *config.Config
	validator *config.Validator
	in        io.Reader
	out       io.Writer

	lines   chan string
	scanErr error
}

func newChatREPL(s *conversation.Session, cfg *config.Config, in io.Reader, out io.Writer) *chatREPL {
	return &chatREPL{
		session:   s,
		cfg:       cfg,
		validator: config.NewValidator(),
		in:        in,
		out:       out,
	}
}

// run reads lines until EOF, /quit or ctx ends. Reading happens on its own
// goroutine so a cancelled ctx is noticed while stdin blocks.
func (r *chatREPL) run(ctx context.Context) error {
	r.lines = make(chan string)
	go r.scan(ctx)

	r.printWelcome()
	if turn := r.session.Pending(); turn != nil {
		r.await(ctx, turn)
	}

	for {
		fmt.Fprint(r.out, "> ")
		line, ok := r.readLine(ctx)
		if !ok {
			fmt.Fprintln(r.out)
			if ctx.Err() != nil {
				return nil
			}
			return r.scanErr
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			return err
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

func (r *chatREPL) scan(ctx context.Context) {
	defer close(r.lines)
	sc := bufio.NewScanner(r.in)
	for sc.Scan() {
		select {
		case r.lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	r.scanErr = sc.Err()
}

// readLine returns false at EOF or when ctx ends
func (r *chatREPL) readLine(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-r.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

func (r *chatREPL) confirm(ctx context.Context, prompt string) bool {
	fmt.Fprint(r.out, prompt)
	line, ok := r.readLine(ctx)
	if !ok {
		fmt.Fprintln(r.out)
		return false
	}
	return isYes(line)
}

func (r *chatREPL) printWelcome() {
	snap := r.session.Snapshot()
	fmt.Fprintf(r.out, "Pasokh %s  [theme: %s, dark mode: %s]\n", version, snap.Theme, onOff(snap.DarkMode))
	fmt.Fprintln(r.out, "Type /help for commands.")

	if len(snap.Messages) > 0 {
		printMessages(r.out, snap.Messages)
		return
	}
	r.printQuickReplies()
}

func (r *chatREPL) printQuickReplies() {
	if len(r.cfg.UI.QuickReplies) == 0 {
		return
	}
	fmt.Fprintln(r.out, "Quick replies:")
	for i, q := range r.cfg.UI.QuickReplies {
		fmt.Fprintf(r.out, "  %d) %s\n", i+1, q)
	}
}

// handle processes one input line and reports whether the user quit
func (r *chatREPL) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if strings.HasPrefix(line, "/") {
		return r.command(ctx, line)
	}
	if q, ok := r.quickReply(line); ok {
		line = q
	}
	return false, r.send(ctx, line)
}

// quickReply maps a number to a configured quick reply while the
// conversation is empty
func (r *chatREPL) quickReply(line string) (string, bool) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(r.cfg.UI.QuickReplies) {
		return "", false
	}
	if len(r.session.Messages()) > 0 {
		return "", false
	}
	return r.cfg.UI.QuickReplies[n-1], true
}

func (r *chatREPL) send(ctx context.Context, text string) error {
	turn, err := r.session.Send(ctx, text)
	switch {
	case errors.Is(err, conversation.ErrReplyPending):
		fmt.Fprintln(r.out, "Still typing, one moment.")
		return nil
	case err != nil:
		return err
	case turn == nil:
		return nil
	}

	r.await(ctx, turn)
	return nil
}

func (r *chatREPL) await(ctx context.Context, turn *conversation.Turn) {
	fmt.Fprintln(r.out, "bot is typing...")
	if err := turn.Wait(ctx); err != nil {
		return
	}
	if turn.Delivered() {
		fmt.Fprintf(r.out, "bot: %s\n", turn.Answer)
	}
}

func (r *chatREPL) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(r.out, "/clear, /dark, /theme [name], /history, /help, /quit")

	case "/clear":
		if r.session.Clear(ctx, r.confirm(ctx, "Clear the whole conversation? [y/N] ")) {
			fmt.Fprintln(r.out, "Conversation cleared.")
			r.printQuickReplies()
		} else {
			fmt.Fprintln(r.out, "Kept the conversation.")
		}

	case "/dark":
		fmt.Fprintf(r.out, "Dark mode %s.\n", onOff(r.session.ToggleDarkMode(ctx)))

	case "/theme":
		if len(fields) < 2 {
			fmt.Fprintf(r.out, "Theme: %s (available: %s)\n", r.session.Theme(), strings.Join(r.cfg.UI.Themes, ", "))
			return false, nil
		}
		if err := r.validator.ValidateTheme(r.cfg, fields[1]); err != nil {
			fmt.Fprintln(r.out, err)
			return false, nil
		}
		r.session.SetTheme(ctx, fields[1])
		fmt.Fprintf(r.out, "Theme set to %s.\n", fields[1])

	case "/history":
		msgs := r.session.Messages()
		if len(msgs) == 0 {
			fmt.Fprintln(r.out, "No messages.")
		}
		printMessages(r.out, msgs)

	default:
		fmt.Fprintf(r.out, "Unknown command %s. Type /help.\n", fields[0])
	}
	return false, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
