package orchestrator

import (
	"context"
	"fmt"

	"github.com/EpicMandM/room-booking/internal/config"
	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/reconciler"
	"github.com/EpicMandM/room-booking/internal/service"
	"golang.org/x/time/rate"
)

// Orchestrator runs one client session: push channel up, initial load,
// events pumped into the reconciler until the context ends.
type Orchestrator struct {
	Logger     *logger.Logger
	Reconciler *reconciler.Reconciler
	Push       service.PushChannel
	FeatureCfg *config.FeatureConfig
}

// Run executes the session: connect push → pump events → load with retry →
// wait for ctx → close push. The push channel is connected before the load
// so that events racing the load are journaled by the reconciler.
// A load that exhausts its retries leaves the session running in an error
// state (see reconciler.Status); Run only returns once ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	pumpDone := make(chan struct{})
	if o.Push != nil {
		connected := o.ConnectPush(ctx)
		go func() {
			defer close(pumpDone)
			o.Pump(ctx, connected)
		}()
	} else {
		o.Logger.Info("No push channel configured", logger.Action("push"), logger.Status("disabled"))
		close(pumpDone)
	}

	if err := o.LoadWithRetry(ctx); err != nil && ctx.Err() == nil {
		o.Logger.Error("Initial load gave up", logger.Action("load"), logger.Status("error_state"), logger.Error(err))
	}

	<-ctx.Done()
	o.Logger.Info("Session ending", logger.Action("shutdown"), logger.Reason(ctx.Err().Error()))

	if o.Push != nil {
		if err := o.Push.Close(); err != nil {
			o.Logger.Error("Failed to close push channel", logger.Error(err))
		}
	}
	<-pumpDone
	return nil
}

// ConnectPush makes one connection attempt and reports success.
func (o *Orchestrator) ConnectPush(ctx context.Context) bool {
	if err := o.Push.Connect(ctx); err != nil {
		o.Logger.Warn("Push channel unavailable", logger.Action("push"), logger.Status("connect_failed"), logger.Error(err))
		return false
	}
	return true
}

// Pump applies push events to the reconciler until the channel closes or
// ctx is done. When not yet connected it keeps retrying the connection,
// paced by the push reconnect interval. Every later reconnect triggers a
// full reload.
func (o *Orchestrator) Pump(ctx context.Context, connected bool) {
	if !connected {
		limiter := rate.NewLimiter(rate.Every(o.FeatureCfg.Push.ReconnectInterval.Duration), 1)
		_ = limiter.Allow()
		for attempt := 2; !connected; attempt++ {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			if err := o.Push.Connect(ctx); err != nil {
				o.Logger.Warn("Push channel connect retry failed", logger.Action("push"), logger.Attempt(attempt), logger.Error(err))
				continue
			}
			connected = true
			o.Logger.Info("Push channel connected after retry", logger.Action("push"), logger.Attempt(attempt))
			// Events may have been missed while disconnected.
			if err := o.Reconciler.Load(ctx); err != nil {
				o.Logger.Warn("Reload after push connect failed", logger.Action("load"), logger.Error(err))
			}
		}
	}

	events := o.Push.Events()
	reconnected := o.Push.Reconnected()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.Reconciler.Apply(ev)
		case <-reconnected:
			o.Logger.Info("Reloading after push reconnect", logger.Action("load"), logger.Reason("push_reconnected"))
			if err := o.Reconciler.Load(ctx); err != nil {
				o.Logger.Warn("Reload after push reconnect failed", logger.Action("load"), logger.Error(err))
			}
		}
	}
}

// LoadWithRetry runs the initial fetch-all up to load.max_attempts times,
// paced by load.retry_interval. When every attempt fails the last error is
// recorded on the reconciler and returned.
func (o *Orchestrator) LoadWithRetry(ctx context.Context) error {
	maxAttempts := o.FeatureCfg.Load.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	limiter := rate.NewLimiter(rate.Every(o.FeatureCfg.Load.RetryInterval.Duration), 1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		lastErr = o.Reconciler.Load(ctx)
		if lastErr == nil {
			return nil
		}
		o.Logger.Warn("Load attempt failed",
			logger.Action("load"),
			logger.Attempt(attempt),
			logger.F("MAX_ATTEMPTS", maxAttempts),
			logger.Error(lastErr))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	err := fmt.Errorf("initial load failed after %d attempts: %w", maxAttempts, lastErr)
	o.Reconciler.RecordLoadError(err)
	return err
}
