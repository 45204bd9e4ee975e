package cmds

import (
	"context"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/can-assistant/pkg/config"
	"github.com/go-go-golems/can-assistant/pkg/events"
	"github.com/go-go-golems/can-assistant/pkg/identity"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/logging"
	"github.com/go-go-golems/can-assistant/pkg/ui"
	"github.com/go-go-golems/can-assistant/pkg/ui/linemode"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newChatCommand() *cobra.Command {
	var (
		line  bool
		style string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if line || !linemode.IsTerminal(os.Stdin) || !linemode.IsTerminal(os.Stdout) {
				return runLineChat(ctx, cmd, style)
			}
			return runTUIChat(ctx, cmd, style)
		},
	}
	cmd.Flags().BoolVar(&line, "line", false, "use the plain prompt instead of the full screen interface")
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style used to render answers")
	return cmd
}

func runLineChat(ctx context.Context, cmd *cobra.Command, style string) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	if !linemode.IsTerminal(os.Stdout) {
		style = "notty"
	}

	// the runner needs the dispatcher and the machine needs the runner's listener
	var runner *linemode.Runner
	listener := func(s loading.State) {
		if runner != nil {
			runner.LoadingListener()(s)
		}
	}
	d, err := a.newDispatcher(newSessionID(), nil, listener)
	if err != nil {
		return err
	}
	defer d.Close()

	runner, err = linemode.NewRunner(d, a.localizer, a.prefs, os.Stdin, os.Stdout, linemode.TerminalWidth(os.Stdout), style)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func runTUIChat(ctx context.Context, cmd *cobra.Command, style string) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	// the terminal belongs to the interface from now on
	ls := a.settings.Log
	ls.FileOnly = true
	if ls.File == "" {
		ls.File = filepath.Join(config.DefaultDir(), "chat.log")
	}
	if err := logging.InitLogger(ls); err != nil {
		return err
	}

	router, err := a.newEventRouter()
	if err != nil {
		return err
	}
	defer func() { _ = router.Close() }()

	sessionID := newSessionID()
	publisher := events.NewPublisher(router.Publisher, sessionID)
	d, err := a.newDispatcher(sessionID, publisher, publisher.LoadingChanged)
	if err != nil {
		return err
	}
	defer d.Close()

	model := ui.NewModel(ctx, d, a.localizer,
		ui.WithIdentity(identity.NewLocal("")),
		ui.WithPreferences(a.prefs),
		ui.WithClipboard(clipboard.WriteAll),
		ui.WithMarkdownStyle(style),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := router.PrepareTopic(ctx, publisher.Topic()); err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	router.AddHandler("ui-forward", publisher.Topic(), ui.ForwardFunc(p))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		select {
		case <-router.Running():
		case <-ctx.Done():
			return nil
		}
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "chat interface failed")
		}
		return nil
	})

	err = eg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("chat session ended with an error")
		return err
	}
	return nil
}
