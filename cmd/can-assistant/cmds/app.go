package cmds

import (
	"context"

	"github.com/go-go-golems/can-assistant/pkg/config"
	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/diagnostics"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/events"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/preferences"
	"github.com/go-go-golems/can-assistant/pkg/redisstream"
	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/go-go-golems/can-assistant/pkg/transport/httptransport"
	"github.com/go-go-golems/can-assistant/pkg/transport/openaitransport"
	"github.com/go-go-golems/can-assistant/pkg/transport/static"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds what every command shares: settings, resources, preferences and the optional
// redis connection.
type app struct {
	settings    *config.Settings
	catalog     *i18n.Catalog
	localizer   *i18n.Localizer
	prefs       preferences.Store
	redis       *redisstream.Client
	diagnostics diagnostics.Sink
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return nil, err
	}

	var prefs preferences.Store = preferences.NewMemoryStore()
	if s.Preferences.Path != "" {
		p, err := preferences.OpenFile(s.Preferences.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", s.Preferences.Path).Msg("could not open preferences, keeping them in memory")
		} else {
			prefs = p
		}
	}

	// an explicit --language wins over the saved preference
	lang := s.Language
	if f := cmd.Flags().Lookup("language"); f == nil || !f.Changed {
		lang, err = preferences.Language(ctx, prefs, s.Language)
		if err != nil {
			log.Warn().Err(err).Msg("could not read preferred language")
			lang = s.Language
		}
	}
	localizer, err := i18n.NewLocalizer(catalog, i18n.Language(lang))
	if err != nil {
		log.Warn().Err(err).Str("language", lang).Msg("unknown language, using the default")
		localizer, _ = i18n.NewLocalizer(catalog, i18n.DefaultLanguage)
	}

	a := &app{
		settings:  s,
		catalog:   catalog,
		localizer: localizer,
		prefs:     prefs,
	}

	sinks := diagnostics.Multi{diagnostics.NewLogSink(log.Logger)}
	if s.Redis.Enabled {
		a.redis = redisstream.NewClient(s.Redis)
		if err := a.redis.Ping(ctx); err != nil {
			_ = a.close()
			return nil, err
		}
		pub, err := a.redis.NewPublisher()
		if err != nil {
			_ = a.close()
			return nil, err
		}
		sinks = append(sinks, diagnostics.NewPublisherSink(pub, diagnostics.DefaultTopic, log.Logger))
	}
	a.diagnostics = sinks

	return a, nil
}

func (a *app) close() error {
	var ret error
	if a.prefs != nil {
		ret = a.prefs.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && ret == nil {
			ret = err
		}
	}
	return ret
}

// newTransport builds the configured transport. language is read on every request.
func (a *app) newTransport(language transport.LanguageFunc) (transport.Transport, error) {
	ts := a.settings.Transport
	switch ts.Kind {
	case config.TransportOpenAI:
		return openaitransport.New(ts.OpenAI, language)
	case config.TransportStatic:
		return static.New(language)
	case config.TransportHTTP:
		opts := []httptransport.Option{httptransport.WithLanguage(language)}
		if ts.Timeout > 0 {
			opts = append(opts, httptransport.WithTimeout(ts.Timeout))
		}
		return httptransport.New(ts.BaseURL, opts...)
	}
	return nil, errors.Errorf("unknown transport kind %q", ts.Kind)
}

func (a *app) languageFunc() transport.LanguageFunc {
	return func() string { return string(a.localizer.Language()) }
}

// healthChecker returns the transport's health probe, if it has one.
func (a *app) healthChecker() (transport.HealthChecker, error) {
	tr, err := a.newTransport(a.languageFunc())
	if err != nil {
		return nil, err
	}
	h, ok := tr.(transport.HealthChecker)
	if !ok {
		return nil, nil
	}
	return h, nil
}

func (a *app) newEventRouter() (*events.Router, error) {
	var opts []events.RouterOption
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		opts = append(opts, events.WithVerbose(true))
	}
	if a.redis != nil {
		ro, err := a.redis.RouterOptions()
		if err != nil {
			return nil, err
		}
		opts = append(opts, ro...)
	}
	return events.NewRouter(opts...)
}

func newSessionID() string {
	return uuid.NewString()
}

// newDispatcher wires a fresh session of the local user.
func (a *app) newDispatcher(sessionID string, notifier dispatcher.Notifier, listeners ...loading.Listener) (*dispatcher.Dispatcher, error) {
	tr, err := a.newTransport(a.languageFunc())
	if err != nil {
		return nil, err
	}
	opts := []loading.Option{
		loading.WithDelays(a.settings.Loading.SearchingAfter, a.settings.Loading.ProcessingAfter),
	}
	for _, l := range listeners {
		opts = append(opts, loading.WithListener(l))
	}
	session := conversation.NewSession(conversation.BuildWelcome(a.localizer))
	dopts := []dispatcher.Option{
		dispatcher.WithSessionID(sessionID),
		dispatcher.WithDiagnostics(a.diagnostics),
	}
	if notifier != nil {
		dopts = append(dopts, dispatcher.WithNotifier(notifier))
	}
	return dispatcher.New(session, loading.NewMachine(opts...), tr, a.localizer, dopts...), nil
}
