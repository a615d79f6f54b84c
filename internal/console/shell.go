// Package console runs the bot conversation in a terminal, acting as one
// chat user. It drives the same engine, desk and storage as the Telegram
// shell, which makes it handy for local runs and demos.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/internal/sanitize"
	"github.com/Doe880/telegram-feedback-bot1/pkg/admin"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/intake"
)

// Shell commands.
const (
	CmdQuit  = "/quit"
	CmdStart = "/start"
	CmdAdmin = "/admin"
	CmdFile  = "/file"
	CmdHelp  = "/help"
)

const help = `Commands:
  /start        restart the conversation
  /admin        open the reply desk (admins only)
  /file <path>  attach a local file
  /quit         exit
A number selects the matching option.`

// Conversations drives the user-side intake flow.
type Conversations interface {
	Handle(ctx context.Context, sessionID string, ev domain.InputEvent) (*intake.Reply, error)
}

// Desk drives the administrator reply flow.
type Desk interface {
	Handle(ctx context.Context, sessionID string, ev domain.AdminEvent) (*admin.Reply, error)
	Active(ctx context.Context, sessionID string) (bool, error)
}

// Shell is an interactive terminal session for a single user id.
type Shell struct {
	conversations Conversations
	desk          Desk
	prompts       *prompts.Table
	userID        int64
	out           io.Writer
	render        *Renderer

	mu      sync.Mutex
	options []string
}

// New creates a shell writing to out.
func New(conversations Conversations, desk Desk, table *prompts.Table, userID int64, out io.Writer) *Shell {
	return &Shell{
		conversations: conversations,
		desk:          desk,
		prompts:       table,
		userID:        userID,
		out:           out,
		render:        NewRenderer(out),
	}
}

// Run reads lines from in until EOF, /quit or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprint(s.out, s.render.Banner())
	if err := s.Line(ctx, CmdStart); err != nil {
		return err
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == CmdQuit {
				return nil
			}
			if err := s.Line(ctx, line); err != nil {
				return err
			}
		}
	}
}

// Line handles one line of input and prints the reply.
func (s *Shell) Line(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	sessionID := strconv.FormatInt(s.userID, 10)

	switch {
	case line == CmdHelp:
		fmt.Fprintln(s.out, help)
		return nil
	case line == CmdAdmin:
		return s.toDesk(ctx, sessionID, domain.AdminEvent{Kind: domain.AdminOpen, UserID: s.userID})
	case line == CmdStart:
		if active, _ := s.desk.Active(ctx, sessionID); active {
			if _, err := s.desk.Handle(ctx, sessionID, domain.AdminEvent{Kind: domain.AdminCancel, UserID: s.userID}); err != nil {
				return err
			}
		}
		return s.toIntake(ctx, sessionID, domain.RestartInput(s.userID))
	case strings.HasPrefix(line, CmdFile+" "):
		path := strings.TrimSpace(strings.TrimPrefix(line, CmdFile))
		a := domain.Attachment{Ref: path, Kind: domain.KindFromFileName(path), FileName: filepath.Base(path)}
		return s.toIntake(ctx, sessionID, domain.AttachmentInput(s.userID, a))
	}

	text, err := sanitize.Text(s.resolveOption(line), 0)
	if err != nil {
		fmt.Fprint(s.out, s.render.Notice(err.Error()))
		return nil
	}
	if active, _ := s.desk.Active(ctx, sessionID); active {
		return s.toDesk(ctx, sessionID, domain.AdminEvent{Kind: domain.AdminText, UserID: s.userID, Text: text})
	}
	return s.toIntake(ctx, sessionID, s.prompts.Classify(s.userID, text))
}

// resolveOption maps "2" to the second option of the last prompt.
func (s *Shell) resolveOption(line string) string {
	n, err := strconv.Atoi(line)
	if err != nil {
		return line
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.options) {
		return line
	}
	return s.options[n-1]
}

func (s *Shell) toIntake(ctx context.Context, sessionID string, ev domain.InputEvent) error {
	reply, err := s.conversations.Handle(ctx, sessionID, ev)
	if err != nil {
		return err
	}
	s.show(reply.Prompt)
	return nil
}

func (s *Shell) toDesk(ctx context.Context, sessionID string, ev domain.AdminEvent) error {
	reply, err := s.desk.Handle(ctx, sessionID, ev)
	if err != nil {
		return err
	}
	s.show(reply.Prompt)
	return nil
}

func (s *Shell) show(p domain.Prompt) {
	s.mu.Lock()
	s.options = p.Options
	s.mu.Unlock()
	fmt.Fprint(s.out, s.render.Prompt(p))
}

// Notifier prints relayed messages instead of sending them.
type Notifier struct {
	mu     sync.Mutex
	out    io.Writer
	render *Renderer
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out, render: NewRenderer(out)}
}

// Send implements ports.Notifier.
func (n *Notifier) Send(_ context.Context, recipient int64, text, attachmentPath string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg := fmt.Sprintf("→ %d: %s", recipient, text)
	if attachmentPath != "" {
		msg += " [" + attachmentPath + "]"
	}
	fmt.Fprint(n.out, n.render.Notice(msg))
	return nil
}
