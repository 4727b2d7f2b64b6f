package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"google.golang.org/grpc"

	"github.com/GrafeoDB/grafeo-server/internal/config"
	"github.com/GrafeoDB/grafeo-server/internal/driverproto"
	"github.com/GrafeoDB/grafeo-server/internal/gwp"
	"github.com/GrafeoDB/grafeo-server/internal/httpapi"
	"github.com/GrafeoDB/grafeo-server/internal/logging"
	"github.com/GrafeoDB/grafeo-server/internal/service"
)

const (
	serviceName   = "grafeo-server"
	serverVersion = "0.1.0"
	engineVersion = "memgraph-0.1.0"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)

	state, err := service.New(service.Options{
		DataDir:           cfg.DataDir,
		SessionTTL:        cfg.SessionTTL,
		QueryTimeout:      cfg.QueryTimeout,
		BlockingPoolSize:  cfg.BlockingPoolSize,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AuthToken:         cfg.AuthToken,
		AuthUser:          cfg.AuthUser,
		AuthPassword:      cfg.AuthPassword,
		CORSOrigins:       cfg.CORSOrigins,
		Logger:            logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("initialise service state")
	}

	stopCleanup := startCleanupSweep(state, logger)
	defer stopCleanup()

	httpServer := newHTTPServer(cfg, state, logger)
	grpcServer, gwpListener := newGWPServer(cfg, state, logger)
	boltServer, boltListener := newDriverProtoServer(cfg, state, logger)

	errCh := make(chan error, 3)

	go func() {
		logger.WithFields(map[string]any{"addr": httpServer.Addr}).Info("http listener starting")
		var err error
		if cfg.TLSEnabled() {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			logger.WithFields(map[string]any{"addr": gwpListener.Addr().String()}).Info("streaming-protocol listener starting")
			if err := grpcServer.Serve(gwpListener); err != nil {
				errCh <- fmt.Errorf("streaming-protocol server: %w", err)
			}
		}()
	}

	if boltServer != nil {
		go func() {
			logger.WithFields(map[string]any{"addr": boltListener.Addr().String()}).Info("driver-protocol listener starting")
			if err := boltServer.Serve(boltListener); err != nil {
				errCh <- fmt.Errorf("driver-protocol server: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithFields(map[string]any{"signal": sig.String()}).Info("shutting down")
	case err := <-errCh:
		logger.WithError(err).Error("listener failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http server shutdown")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if boltListener != nil {
		_ = boltListener.Close()
	}
}

func newHTTPServer(cfg *config.Config, state *service.State, logger *logging.Logger) *http.Server {
	apiServer := httpapi.New(state, logger, serverVersion, engineVersion, cfg.MetricsBatchSize)
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newGWPServer wires the streaming-protocol adapter (C12) onto its own
// gRPC server when gwp_port is configured; spec §6 treats 0 as disabled.
func newGWPServer(cfg *config.Config, state *service.State, logger *logging.Logger) (*grpc.Server, net.Listener) {
	if cfg.GWPPort == 0 {
		return nil, nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.GWPPort))
	if err != nil {
		logger.WithError(err).Fatal("listen streaming-protocol port")
	}
	grpcServer := grpc.NewServer()
	adapter := gwp.New(state.Query, state.Databases, state.Admin, state.Search, state.Auth)
	gwp.Register(grpcServer, adapter)
	return grpcServer, ln
}

// newDriverProtoServer wires the driver-protocol adapter (C13) when
// bolt_port is configured.
func newDriverProtoServer(cfg *config.Config, state *service.State, logger *logging.Logger) (*driverproto.Server, net.Listener) {
	if cfg.BoltPort == 0 {
		return nil, nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.BoltPort))
	if err != nil {
		logger.WithError(err).Fatal("listen driver-protocol port")
	}
	srv := driverproto.New(state.Query, state.Databases, state.Admin, state.Auth, logger, cfg.BoltMaxSessions)
	return srv, ln
}

// startCleanupSweep runs the periodic session/rate-limit-window sweep
// (spec §5: "one periodic task runs every 60 seconds") via robfig/cron,
// the same scheduler library the teacher uses for its own background
// jobs. Returns a stop function.
func startCleanupSweep(state *service.State, logger *logging.Logger) func() {
	c := cron.New()
	_, err := c.AddFunc("@every 60s", func() {
		state.CleanupExpired()
		logger.Debug("cleanup sweep completed")
	})
	if err != nil {
		logger.WithError(err).Fatal("schedule cleanup sweep")
	}
	c.Start()
	return func() { <-c.Stop().Done() }
}
