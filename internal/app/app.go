package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/EpicMandM/room-booking/internal/config"
	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/orchestrator"
	"github.com/EpicMandM/room-booking/internal/reconciler"
	"github.com/EpicMandM/room-booking/internal/service"
)

// App wires the booking client together from configuration.
type App struct {
	config     *config.Config
	featureCfg *config.FeatureConfig
	logger     *logger.Logger

	api          *service.HTTPBookingClient
	push         *service.WebSocketPush
	reconciler   *reconciler.Reconciler
	orchestrator *orchestrator.Orchestrator
}

// New builds the REST client, push channel, reconciler and orchestrator.
// Nothing connects until Run. A nil logger discards output; a nil feature
// config uses the defaults.
func New(cfg *config.Config, featureCfg *config.FeatureConfig, log *logger.Logger, httpClient *http.Client) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if featureCfg == nil {
		featureCfg = config.DefaultFeatureConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}

	api := service.NewHTTPBookingClient(cfg.APIURL, featureCfg.Client.RequestTimeout.Duration, httpClient)
	rec := reconciler.New(api, reconciler.WithLogger(log))

	a := &App{
		config:     cfg,
		featureCfg: featureCfg,
		logger:     log,
		api:        api,
		reconciler: rec,
		orchestrator: &orchestrator.Orchestrator{
			Logger:     log,
			Reconciler: rec,
			FeatureCfg: featureCfg,
		},
	}

	if cfg.PushURL != "" {
		a.push = service.NewWebSocketPush(cfg.PushURL, featureCfg.Push.ReconnectInterval.Duration, featureCfg.Push.BufferSize, log)
		a.orchestrator.Push = a.push
	}
	return a, nil
}

// Run runs a live session until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting booking session",
		logger.Action("startup"),
		logger.URL(a.config.APIURL),
		logger.F("PUSH_URL", a.config.PushURL))
	return a.orchestrator.Run(ctx)
}

// LoadOnce performs a single fetch-all with the configured retry policy,
// without a push channel. Used by one-shot commands.
func (a *App) LoadOnce(ctx context.Context) error {
	return a.orchestrator.LoadWithRetry(ctx)
}

// Reconciler returns the booking reconciler.
func (a *App) Reconciler() *reconciler.Reconciler {
	return a.reconciler
}

func (a *App) FeatureConfig() *config.FeatureConfig {
	return a.featureCfg
}

// Close releases the push channel. Run closes it as well; calling both is safe.
func (a *App) Close() error {
	// Sync on a terminal stdout reports EINVAL; nothing useful to surface.
	defer func() { _ = a.logger.Sync() }()
	if a.push == nil {
		return nil
	}
	if err := a.push.Close(); err != nil {
		return fmt.Errorf("failed to close push channel: %w", err)
	}
	return nil
}
