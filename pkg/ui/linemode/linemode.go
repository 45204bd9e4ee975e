// Package linemode is a prompt loop over plain reader/writer pairs, used when stdout is not
// a terminal or when the TUI is not wanted.
package linemode

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/preferences"
	"github.com/go-go-golems/can-assistant/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"
	"golang.org/x/term"
)

const defaultWidth = 80

// Engine is what the prompt loop needs from a dispatcher.
type Engine interface {
	dispatcher.Submitter
	Session() *conversation.Session
}

// eofReader remembers that its reader is exhausted, the prompt library reports EOF as an
// empty answer.
type eofReader struct {
	r   io.Reader
	eof atomic.Bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof.Store(true)
	}
	return n, err
}

type Runner struct {
	engine    Engine
	router    *dispatcher.SuggestedRouter
	localizer *i18n.Localizer
	prefs     preferences.Store
	renderer  *ui.Renderer

	in      *eofReader
	prompt  *input.UI
	mu      sync.Mutex
	out     io.Writer
	printed int
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TerminalWidth returns the width of f, or a default when it is not a terminal.
func TerminalWidth(f *os.File) int {
	if !IsTerminal(f) {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// NewRunner creates a prompt loop. markdownStyle is a glamour style, "notty" for plain text.
func NewRunner(engine Engine, localizer *i18n.Localizer, prefs preferences.Store, in io.Reader, out io.Writer, width int, markdownStyle string) (*Runner, error) {
	r, err := ui.NewRenderer(width, markdownStyle)
	if err != nil {
		return nil, errors.Wrap(err, "could not create renderer")
	}
	if prefs == nil {
		prefs = preferences.NewMemoryStore()
	}
	er := &eofReader{r: in}
	return &Runner{
		engine:    engine,
		router:    dispatcher.NewSuggestedRouter(engine, engine.Session()),
		localizer: localizer,
		prefs:     prefs,
		renderer:  r,
		in:        er,
		prompt:    &input.UI{Reader: er, Writer: out},
		out:       out,
	}, nil
}

// LoadingListener prints the stage labels while a request is in flight.
func (r *Runner) LoadingListener() loading.Listener {
	return func(s loading.State) {
		if !s.Busy() {
			return
		}
		r.printf("… %s\n", r.localizer.T(s.LabelKey()))
	}
}

func (r *Runner) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// flush prints the messages appended since the last call.
func (r *Runner) flush() {
	msgs := r.engine.Session().Messages()
	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleAssistant {
			last = i
			break
		}
	}
	for i := r.printed; i < len(msgs); i++ {
		if msgs[i].IsUser() {
			continue
		}
		r.printf("%s\n\n", r.renderer.Message(msgs[i], r.localizer, i == last))
	}
	r.printed = len(msgs)
}

// Run prompts until the input is exhausted, the context is done or the user quits.
func (r *Runner) Run(ctx context.Context) error {
	r.flush()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		answer, err := r.prompt.Ask(r.localizer.T("ask"), &input.Options{
			HideOrder: true,
		})
		if errors.Is(err, input.ErrInterrupted) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "could not read input")
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			if r.in.eof.Load() {
				return nil
			}
			continue
		}

		quit, err := r.handle(ctx, answer)
		if err != nil {
			r.printf("%s\n", err)
		}
		if quit {
			return nil
		}
		r.flush()
	}
}

func (r *Runner) handle(ctx context.Context, answer string) (bool, error) {
	if !strings.HasPrefix(answer, "/") {
		if !r.engine.Submit(ctx, answer) {
			log.Debug().Msg("submission not accepted")
		}
		return false, nil
	}

	fields := strings.Fields(strings.TrimPrefix(answer, "/"))
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "quit", "exit", "q":
		return true, nil
	case "lang", "language":
		if len(fields) < 2 {
			return false, errors.Errorf("usage: /lang <%s>", strings.Join(languages(r.localizer), "|"))
		}
		lang := i18n.Language(fields[1])
		if err := r.localizer.SetLanguage(lang); err != nil {
			return false, err
		}
		return false, preferences.SetLanguage(ctx, r.prefs, string(lang))
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return false, errors.Errorf("unknown command /%s", fields[0])
	}
	if _, ok := r.router.Suggestion(n - 1); !ok {
		return false, errors.Errorf("no suggestion %d", n)
	}
	r.router.ChooseIndex(ctx, n-1)
	return false, nil
}

func languages(l *i18n.Localizer) []string {
	var ret []string
	for _, lang := range l.Catalog().Languages() {
		ret = append(ret, string(lang))
	}
	return ret
}
