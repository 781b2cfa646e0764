package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/npillmayer/dsp/config"
	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/npillmayer/dsp/dom/dsp/metrics"
	"github.com/npillmayer/dsp/dom/dsp/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchFlags struct {
	policy string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a policy loaded and re-load it on changes",
	Long: `Load a policy file and re-load it whenever it changes.

If metrics are enabled in the configuration, policy loads and rule counts are
exported for Prometheus on the configured listen address under /metrics.
The command runs until interrupted.

Examples:
  dspcheck watch --config dspcheck.yaml
  dspcheck watch --policy site.dsp`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchFlags.policy, "policy", "p", "", "policy file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(watchFlags.policy)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if cfgFile == "" {
		cfg.Policy.Watch = true
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger)
}

// serve loads the policy of cfg and watches it until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	policy := dsp.NewPolicy()
	policy.BindToExecutionContext(consoleFor(cfg, logger))
	var srv *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		policy.Observe(metrics.New(cfg.Metrics.Namespace, reg))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	w := watch.New(cfg.Policy.File, policy,
		watch.Debounce(cfg.Policy.Debounce),
		watch.OnReload(func(err error) {
			if err != nil {
				logger.Warn("keeping previous policy", zap.String("file", cfg.Policy.File), zap.Error(err))
				return
			}
			doc := policy.Document()
			logger.Info("policy re-loaded", zap.String("id", doc.ID().String()), zap.Int("rules", doc.Len()))
		}),
	)
	if err := w.LoadNow(); err != nil {
		return err
	}
	doc := policy.Document()
	logger.Info("policy loaded", zap.String("file", cfg.Policy.File),
		zap.String("id", doc.ID().String()), zap.Int("rules", doc.Len()))
	if !cfg.Policy.Watch {
		logger.Info("watching disabled in configuration")
		<-ctx.Done()
		return nil
	}
	if err := w.Watch(ctx); err != nil {
		return fmt.Errorf("watching policy file failed: %w", err)
	}
	return nil
}
