package gatewayservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"denm-gateway/internal/gateway"
	"denm-gateway/internal/gateway/api"
	"denm-gateway/internal/general/bus"
	"denm-gateway/internal/general/config"
	"denm-gateway/internal/general/logger"
	"denm-gateway/internal/general/metrics"
)

// Run wires the gateway together and blocks until ctx is cancelled or a
// component fails at startup.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.New("denm-gateway", logger.ParseLevel(cfg.LogLevel))
	ctx = log.WithRequestID(ctx, "startup-001")

	met := metrics.New()
	b := bus.New()

	// HTTP/WS surface; subscribing the WS fan-out happens inside
	handler := api.New(b, log, met)

	// interchange links; the sender subscribes to denm.outgoing
	ic := gateway.NewInterchange(cfg, b, met, log)
	if err := ic.Start(ctx); err != nil {
		log.Error(ctx, "interchange_start_failed", "Failed to open interchange links", err, nil)
		return err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ic.Stop(shCtx); err != nil {
			log.Error(ctx, "interchange_stop_failed", "Failed to close interchange links", err, nil)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("DENM gateway listening on %s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		map[string]any{
			"http_port": cfg.HTTP.Port,
			"broker":    cfg.AMQP.URL,
			"sender":    cfg.Sender,
			"receiver":  cfg.Receiver,
		},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{
				"port": cfg.HTTP.Port,
			})
			return err
		}
	}
	return nil
}
