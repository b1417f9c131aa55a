package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stopprep/internal/config"
	"stopprep/internal/metrics"
	"stopprep/internal/metrics/datadog"
	"stopprep/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns the function
// that flushes it at exit.
func setupMetrics(cfg config.Metrics, log *zap.Logger) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}, nil
	case "pushgateway", "prom", "prometheus":
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case "datadog", "dd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		return nil, errors.Newf("metrics: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Info("metrics: enabled", zap.String("backend", cfg.Backend), zap.String("job", cfg.Job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", zap.Error(err))
		}
	}, nil
}
