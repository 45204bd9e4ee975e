package cmds

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/preferences"
	"github.com/go-go-golems/can-assistant/pkg/ui/linemode"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLanguageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "language [en|fr]",
		Short: "Show or change the preferred answer language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			current := a.localizer.Language()
			var chosen string
			switch {
			case len(args) == 1:
				chosen = args[0]
			case linemode.IsTerminal(os.Stdin) && linemode.IsTerminal(os.Stdout):
				chosen, err = selectLanguage(a.catalog, current)
				if err != nil {
					return err
				}
			default:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), current)
				return nil
			}

			lang := i18n.Language(chosen)
			if !a.catalog.Has(lang) {
				return errors.Wrapf(i18n.ErrUnknownLanguage, "%q", chosen)
			}
			if err := preferences.SetLanguage(ctx, a.prefs, string(lang)); err != nil {
				return errors.Wrap(err, "could not save the preferred language")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), lang)
			return nil
		},
	}
}

func selectLanguage(catalog *i18n.Catalog, current i18n.Language) (string, error) {
	chosen := string(current)
	var options []huh.Option[string]
	for _, l := range catalog.Languages() {
		options = append(options, huh.NewOption(string(l), string(l)))
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Preferred language").
			Options(options...).
			Value(&chosen),
	))
	if err := form.Run(); err != nil {
		return "", errors.Wrap(err, "language selection cancelled")
	}
	return chosen, nil
}
