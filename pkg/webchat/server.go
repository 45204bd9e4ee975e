package webchat

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-go-golems/can-assistant/pkg/diagnostics"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/events"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"golang.org/x/sync/errgroup"
)

//go:embed static/*
var staticFiles embed.FS

// TransportFactory creates the transport of one session. language reports the session's
// current language.
type TransportFactory func(language transport.LanguageFunc) (transport.Transport, error)

// Server serves the browser chat: one session per websocket connection.
type Server struct {
	addr        string
	catalog     *i18n.Catalog
	newTr       TransportFactory
	events      *events.Router
	diagnostics diagnostics.Sink
	health      transport.HealthChecker
	delays      [2]time.Duration
	clock       loading.Clock
	markdown    goldmark.Markdown
	upgrader    websocket.Upgrader
}

type ServerOption func(*Server)

func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.addr = addr
	}
}

func WithDiagnostics(sink diagnostics.Sink) ServerOption {
	return func(s *Server) {
		s.diagnostics = sink
	}
}

// WithHealthChecker reports the assistant service's health on /health.
func WithHealthChecker(h transport.HealthChecker) ServerOption {
	return func(s *Server) {
		s.health = h
	}
}

func WithLoadingDelays(searchingAfter, processingAfter time.Duration) ServerOption {
	return func(s *Server) {
		s.delays = [2]time.Duration{searchingAfter, processingAfter}
	}
}

func WithLoadingClock(c loading.Clock) ServerOption {
	return func(s *Server) {
		s.clock = c
	}
}

func NewServer(catalog *i18n.Catalog, router *events.Router, newTransport TransportFactory, options ...ServerOption) (*Server, error) {
	if catalog == nil || router == nil || newTransport == nil {
		return nil, errors.New("webchat server needs a catalog, an event router and a transport factory")
	}
	s := &Server{
		addr:        ":8080",
		catalog:     catalog,
		newTr:       newTransport,
		events:      router,
		diagnostics: diagnostics.Discard,
		markdown:    goldmark.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Handler mounts /ws, /health and the embedded page.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS(ctx))
	mux.HandleFunc("/health", s.handleHealth)

	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Error().Err(err).Msg("could not mount static files")
	} else {
		mux.Handle("/", http.FileServer(http.FS(sub)))
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ret := transport.Health{Status: "healthy", Components: map[string]string{"webchat": "operational"}}
	status := http.StatusOK
	if s.health != nil {
		h, err := s.health.Health(r.Context())
		switch {
		case err != nil:
			ret.Status = "degraded"
			ret.Components["assistant"] = err.Error()
			status = http.StatusServiceUnavailable
		default:
			ret.Components["assistant"] = h.Status
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ret)
}

func (s *Server) handleWS(base context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.Language(r.URL.Query().Get("lang"))
		if lang == "" {
			lang = i18n.DefaultLanguage
		}
		localizer, err := i18n.NewLocalizer(s.catalog, lang)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		id := uuid.NewString()
		logger := log.With().Str("component", "webchat").Str("session_id", id).Logger()

		ctx, cancel := context.WithCancel(base)
		defer cancel()

		publisher := events.NewPublisher(s.events.Publisher, id)
		if err := s.events.PrepareTopic(ctx, publisher.Topic()); err != nil {
			logger.Error().Err(err).Msg("could not prepare session topic")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"failed to start session"}`))
			_ = conn.Close()
			return
		}
		msgs, err := s.events.Subscriber.Subscribe(ctx, publisher.Topic())
		if err != nil {
			logger.Error().Err(err).Msg("could not subscribe to session events")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"failed to start session"}`))
			_ = conn.Close()
			return
		}

		tr, err := s.newTr(func() string { return string(localizer.Language()) })
		if err != nil {
			logger.Error().Err(err).Msg("could not create transport")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"failed to start session"}`))
			_ = conn.Close()
			return
		}

		session, machine := newSessionParts(localizer, publisher, s.delays, s.clock)
		d := dispatcher.New(session, machine, tr, localizer,
			dispatcher.WithSessionID(id),
			dispatcher.WithNotifier(publisher),
			dispatcher.WithDiagnostics(s.diagnostics),
		)

		c := &connection{
			id:         id,
			conn:       conn,
			localizer:  localizer,
			dispatcher: d,
			router:     dispatcher.NewSuggestedRouter(d, session),
			events:     msgs,
			markdown:   s.markdown,
			logger:     logger,
			out:        make(chan ServerFrame, outboundBuffer),
		}
		logger.Debug().Str("language", string(lang)).Msg("websocket session opened")
		c.serve(ctx)
	}
}

// Run serves until ctx is done, then shuts the http server and the event router down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.events.Run(ctx)
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		if err := s.events.Close(); err != nil {
			log.Error().Err(err).Msg("event router close error")
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})
	eg.Go(func() error {
		log.Info().Str("addr", s.addr).Msg("starting web chat server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "web chat server failed")
		}
		return nil
	})
	return eg.Wait()
}
