package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-go-golems/can-assistant/pkg/ui"
	"github.com/go-go-golems/can-assistant/pkg/ui/linemode"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errAssistantFailed = errors.New("the assistant could not answer")

func newAskCommand() *cobra.Command {
	var (
		health bool
		style  string
	)
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a single question and print the answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			out := cmd.OutOrStdout()
			if health {
				return printHealth(ctx, a, out)
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("nothing to ask")
			}
			if style == "auto" && !linemode.IsTerminal(os.Stdout) {
				style = "notty"
			}
			return ask(ctx, a, question, out, style)
		},
	}
	cmd.Flags().BoolVar(&health, "health", false, "check the assistant service instead of asking")
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style used to render the answer")
	return cmd
}

func ask(ctx context.Context, a *app, question string, out io.Writer, style string) error {
	d, err := a.newDispatcher(newSessionID(), nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.Submit(ctx, question) {
		return errors.New("question was not submitted")
	}

	r, err := ui.NewRenderer(linemode.TerminalWidth(os.Stdout), style)
	if err != nil {
		return err
	}
	last := d.Session().Last()
	_, _ = fmt.Fprintln(out, r.Message(last, a.localizer, true))
	if last.IsError() {
		return errAssistantFailed
	}
	return nil
}

func printHealth(ctx context.Context, a *app, out io.Writer) error {
	h, err := a.healthChecker()
	if err != nil {
		return err
	}
	if h == nil {
		return errors.Errorf("the %s transport has no health check", a.settings.Transport.Kind)
	}
	res, err := h.Health(ctx)
	if err != nil {
		return errors.Wrap(err, "health check failed")
	}
	_, _ = fmt.Fprintf(out, "status: %s\n", res.Status)
	names := make([]string, 0, len(res.Components))
	for name := range res.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", name, res.Components[name])
	}
	return nil
}
