package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"

	"usbb-go/internal/usbb"
)

// metricsServer serves /metrics until its context ends.
type metricsServer struct {
	addr            string
	shutdownTimeout time.Duration
	ready           chan net.Addr
}

func newMetricsServer(addr string) *metricsServer {
	return &metricsServer{addr: addr, shutdownTimeout: 10 * time.Second, ready: make(chan net.Addr, 1)}
}

func (m *metricsServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	select {
	case m.ready <- ln.Addr():
	default:
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (m *metricsServer) String() string { return "metrics-server" }

// supervisor builds the service tree run by Serve.
func (a *App) supervisor() (*suture.Supervisor, *metricsServer) {
	sup := suture.New("usbb", suture.Spec{
		EventHook: func(e suture.Event) {
			a.zl.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: 10 * time.Second,
	})

	sup.Add(usbb.NewDeviceMonitor(a.service, a.logger, a.cfg.Monitor.Interval.Duration))

	var metrics *metricsServer
	if a.cfg.Monitor.MetricsAddr != "" {
		metrics = newMetricsServer(a.cfg.Monitor.MetricsAddr)
		sup.Add(metrics)
	}
	return sup, metrics
}

// Serve runs the device monitor and, when configured, the metrics listener
// until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	sup, _ := a.supervisor()
	a.logger.Info("serving", "metrics_addr", a.cfg.Monitor.MetricsAddr,
		"monitor_interval", a.cfg.Monitor.Interval.Duration.String())

	err := sup.Serve(ctx)
	a.scheduler.CancelAll()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
