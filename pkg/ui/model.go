// Package ui is the terminal chat view of a session: header, transcript, loading indicator
// and input. It only reads the session and forwards input to the dispatcher; session
// activity reaches it as events.
package ui

import (
	"context"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/events"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/identity"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/preferences"
	"github.com/rs/zerolog/log"
)

// Engine is what the view needs from a dispatcher.
type Engine interface {
	dispatcher.Submitter
	LoadingState() loading.State
	Session() *conversation.Session
}

// submitDoneMsg is sent once a submission has been reconciled into the session.
type submitDoneMsg struct {
	accepted bool
}

type statusMsg string

// ClipboardWriter copies text, clipboard.WriteAll by default.
type ClipboardWriter func(string) error

type Model struct {
	ctx        context.Context
	engine     Engine
	router     *dispatcher.SuggestedRouter
	localizer  *i18n.Localizer
	identity   identity.Provider
	prefs      preferences.Store
	copyToClip ClipboardWriter
	style      string

	renderer *Renderer
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	loading loading.State
	status  string
	width   int
	height  int
	ready   bool
}

type Option func(*Model)

func WithIdentity(p identity.Provider) Option {
	return func(m *Model) {
		m.identity = p
	}
}

func WithPreferences(s preferences.Store) Option {
	return func(m *Model) {
		m.prefs = s
	}
}

func WithClipboard(w ClipboardWriter) Option {
	return func(m *Model) {
		m.copyToClip = w
	}
}

// WithMarkdownStyle picks a glamour style, "notty" gives plain output.
func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.style = style
	}
}

func NewModel(ctx context.Context, engine Engine, localizer *i18n.Localizer, options ...Option) Model {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctx:        ctx,
		engine:     engine,
		router:     dispatcher.NewSuggestedRouter(engine, engine.Session()),
		localizer:  localizer,
		identity:   identity.NewLocal(""),
		prefs:      preferences.NewMemoryStore(),
		copyToClip: clipboard.WriteAll,
		viewport:   viewport.New(80, 20),
		input:      ta,
		spinner:    sp,
		loading:    engine.LoadingState(),
		width:      80,
		height:     24,
	}
	for _, o := range options {
		o(&m)
	}
	m.input.Placeholder = localizer.T("input.placeholder")
	m.resize(m.width, m.height)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(width)

	r, err := NewRenderer(max(width-2, 20), m.style)
	if err != nil {
		log.Warn().Err(err).Msg("could not create markdown renderer")
		r = &Renderer{width: width}
	}
	m.renderer = r

	// header, loading line, status line, input
	m.viewport.Width = width
	m.viewport.Height = max(height-3-m.input.Height(), 3)
	m.refresh()
}

func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderer.Transcript(m.engine.Session().Messages(), m.localizer))
	if atBottom || !m.ready {
		m.viewport.GotoBottom()
	}
	m.ready = true
}

func (m *Model) setLoading(s loading.State) {
	m.loading = s
	if s.Busy() {
		m.input.Placeholder = m.localizer.T("input.waiting")
		m.input.Blur()
	} else {
		m.input.Placeholder = m.localizer.T("input.placeholder")
		m.input.Focus()
	}
}

func (m Model) submit(text string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{accepted: engine.Submit(ctx, text)}
	}
}

func (m Model) chooseSuggestion(i int) tea.Cmd {
	router, ctx := m.router, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{accepted: router.ChooseIndex(ctx, i)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(ev.Width, ev.Height)
		return m, nil

	case events.Event:
		switch ev.Type {
		case events.EventTypeMessageAppended:
			m.refresh()
		case events.EventTypeScrollToLatest:
			m.viewport.GotoBottom()
		case events.EventTypeLoadingChanged:
			m.setLoading(*ev.State)
			if ev.State.Busy() {
				return m, m.spinner.Tick
			}
		}
		return m, nil

	case submitDoneMsg:
		m.setLoading(m.engine.LoadingState())
		m.refresh()
		return m, nil

	case statusMsg:
		m.status = string(ev)
		return m, nil

	case spinner.TickMsg:
		if !m.loading.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(ev)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(ev); handled {
			return m, cmd
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if !m.loading.Busy() {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(k tea.KeyMsg) (tea.Cmd, bool) {
	switch k.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true

	case "enter":
		if m.loading.Busy() {
			return nil, true
		}
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return nil, true
		}
		m.input.Reset()
		m.status = ""
		return m.submit(text), true

	case "ctrl+y":
		last, ok := m.engine.Session().LastAssistant()
		if !ok {
			return nil, true
		}
		if err := m.copyToClip(last.Content); err != nil {
			log.Warn().Err(err).Msg("could not copy answer to clipboard")
			m.status = err.Error()
		} else {
			m.status = "copied"
		}
		return nil, true

	case "ctrl+l":
		next := i18n.French
		if m.localizer.Language() == i18n.French {
			next = i18n.English
		}
		return m.switchLanguage(next), true

	case "ctrl+o":
		p, ctx := m.identity, m.ctx
		return func() tea.Msg {
			if err := identity.Toggle(ctx, p); err != nil {
				return statusMsg(err.Error())
			}
			return statusMsg("")
		}, true
	}

	// alt+1..alt+9 pick a suggestion of the newest answer
	if k.Alt && k.Type == tea.KeyRunes && len(k.Runes) == 1 {
		if n, err := strconv.Atoi(string(k.Runes)); err == nil && n >= 1 && n <= 9 {
			if m.loading.Busy() {
				return nil, true
			}
			return m.chooseSuggestion(n - 1), true
		}
	}
	return nil, false
}

func (m *Model) switchLanguage(lang i18n.Language) tea.Cmd {
	if err := m.localizer.SetLanguage(lang); err != nil {
		m.status = err.Error()
		return nil
	}
	m.setLoading(m.loading)
	m.refresh()
	prefs, ctx := m.prefs, m.ctx
	return func() tea.Msg {
		if err := preferences.SetLanguage(ctx, prefs, string(lang)); err != nil {
			log.Warn().Err(err).Msg("could not persist preferred language")
			return statusMsg(err.Error())
		}
		return nil
	}
}

func (m Model) header() string {
	title := headerStyle.Render("AFCON 2025 Assistant")
	lang := headerActionStyle.Render(strings.ToUpper(string(m.localizer.Language())))
	action := headerActionStyle.Render(m.localizer.T(identity.ActionKey(m.identity)))
	right := lang + " " + action
	if name := m.identity.UserName(); name != "" {
		right = headerActionStyle.Render(name) + " " + right
	}
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(right), 1)
	return title + strings.Repeat(" ", gap) + right
}

func (m Model) loadingLine() string {
	if !m.loading.Busy() {
		return ""
	}
	return m.spinner.View() + " " + loadingStyle.Render(m.localizer.T(m.loading.LabelKey()))
}

func (m Model) View() string {
	status := "ctrl+l language · ctrl+o " + m.localizer.T(identity.ActionKey(m.identity)) +
		" · alt+N suggestion · ctrl+y copy · esc quit"
	if m.status != "" {
		status = m.status
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.loadingLine(),
		m.input.View(),
		statusStyle.Render(status),
	)
}
