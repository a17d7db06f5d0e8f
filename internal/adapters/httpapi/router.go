package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/page-tracker/internal/app"
	"github.com/Guilhem-Bonnet/page-tracker/internal/domain"
	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
)

type Server struct {
	logger     zerolog.Logger
	trackings  *app.TrackingService
	dispatcher *app.Dispatcher
	settings   *app.SettingsService
	bus        ports.EventBus
	// loadLimiter est optionnel et permet d'appliquer maxConcurrentLoads à chaud.
	loadLimiter *app.LoadLimiter
	// onSettingsUpdated est optionnel.
	onSettingsUpdated func(domain.Settings)
}

type Options struct {
	Trackings         *app.TrackingService
	Dispatcher        *app.Dispatcher
	Settings          *app.SettingsService
	Bus               ports.EventBus
	LoadLimiter       *app.LoadLimiter
	OnSettingsUpdated func(domain.Settings)
}

func NewServer(logger zerolog.Logger, opts Options) *Server {
	return &Server{
		logger:            logger,
		trackings:         opts.Trackings,
		dispatcher:        opts.Dispatcher,
		settings:          opts.Settings,
		bus:               opts.Bus,
		loadLimiter:       opts.LoadLimiter,
		onSettingsUpdated: opts.OnSettingsUpdated,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/openapi.json", s.handleOpenAPI)
		// SSE: pas de timeout sur le flux.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			if s.trackings != nil {
				NewTrackingsHandler(s.trackings).Routes(r)
			}
			if s.dispatcher != nil {
				NewMessagesHandler(s.dispatcher).Routes(r)
			}
			if s.settings != nil {
				NewSettingsHandler(s.settings, func(updated domain.Settings) {
					if s.loadLimiter != nil && updated.MaxConcurrentLoads > 0 {
						s.loadLimiter.SetLimit(updated.MaxConcurrentLoads)
					}
					if s.onSettingsUpdated != nil {
						s.onSettingsUpdated(updated)
					}
				}).Routes(r)
			}
		})
	})

	return r
}
