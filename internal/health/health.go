package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name the web front end reports under.
const ServiceName = "pointbox.customerweb"

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Register adds the standard gRPC health service to server and returns it so
// the caller can flip it to NOT_SERVING during shutdown.
func Register(server *grpc.Server) *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	return hs
}

// Watch polls check every interval and mirrors the result into the service
// status until ctx ends.
func Watch(ctx context.Context, hs *health.Server, check Checker, interval time.Duration, logger *slog.Logger) {
	if check == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		serving := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := check(checkCtx)
				cancel()
				switch {
				case err != nil && serving:
					logger.Warn("dependency check failed", "error", err)
					hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
					serving = false
				case err == nil && !serving:
					logger.Info("dependency check recovered")
					hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
					serving = true
				}
			}
		}
	}()
}

// Stop reports NOT_SERVING to every watcher before draining server, so
// health checkers see the status change while connections are still open.
func Stop(server *grpc.Server, hs *health.Server) {
	if hs != nil {
		hs.Shutdown()
	}
	server.GracefulStop()
}
