package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Renderer formats prompts for a terminal. When the output is not a
// terminal it falls back to plain text.
type Renderer struct {
	markdown func(string) (string, error)
	profile  termenv.Profile
}

// NewRenderer detects whether w is a terminal and picks styling accordingly.
func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{profile: termenv.Ascii}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}
	r.profile = termenv.ColorProfile()
	width := 80
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
		width = cols
	}
	if g, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-4)); err == nil {
		r.markdown = g.Render
	}
	return r
}

// Prompt renders the text and a numbered list of options.
func (r *Renderer) Prompt(p domain.Prompt) string {
	var b strings.Builder
	b.WriteString(p.Text)
	if len(p.Options) > 0 {
		b.WriteString("\n\n")
		for i, o := range p.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, o)
		}
	}
	text := b.String()
	if r.markdown != nil {
		if out, err := r.markdown(strings.ReplaceAll(text, "\n", "  \n")); err == nil {
			return out
		}
	}
	return strings.TrimRight(text, "\n") + "\n"
}

// Notice renders an out-of-band line such as a relayed message.
func (r *Renderer) Notice(text string) string {
	return r.profile.String(text).Foreground(r.profile.Color("#a78bfa")).Italic().String() + "\n"
}

// Banner is printed when the shell starts.
func (r *Renderer) Banner() string {
	lines := []struct {
		text, color string
	}{
		{" ___            _ _            _   ", "#818cf8"},
		{"| __|__ ___  __| | |__  __ _ __| |__", "#a78bfa"},
		{"| _/ -_) -_)/ _` | '_ \\/ _` / _| / /", "#c084fc"},
		{"|_|\\___\\___|\\__,_|_.__/\\__,_\\__|_\\_\\", "#f472b6"},
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString(r.profile.String(l.text).Foreground(r.profile.Color(l.color)).String())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
