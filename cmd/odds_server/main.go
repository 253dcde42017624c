package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/config"
	"github.com/mitchelldurbincs/wargame/internal/grpc/oddsserver"
	"github.com/mitchelldurbincs/wargame/internal/httpapi"
	"github.com/mitchelldurbincs/wargame/internal/monitoring"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	grpcPort := flag.Int("grpc-port", -1, "The gRPC port (-1 to use config default)")
	httpPort := flag.Int("http-port", -1, "The HTTP port (-1 to use config default)")
	host := flag.String("host", "", "The server host (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	runCount := flag.Int("run-count", -1, "Default Monte-Carlo run count (-1 to use config default)")
	enableReflection := flag.Bool("enable-reflection", false, "Enable gRPC reflection for debugging")
	flag.Parse()

	// Initialize configuration
	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}

	cfg := config.Get()

	// Use config defaults if not overridden by flags
	if *grpcPort == -1 {
		*grpcPort = cfg.Server.GRPC.Port
	}
	if *httpPort == -1 {
		*httpPort = cfg.Server.HTTP.Port
	}
	grpcHost, httpHost := cfg.Server.GRPC.Host, cfg.Server.HTTP.Host
	if *host != "" {
		grpcHost, httpHost = *host, *host
	}
	if *logLevel == "" {
		*logLevel = cfg.Server.LogLevel
	}
	if *runCount != -1 {
		cfg.Estimator.RunCount = *runCount
	}
	if !*enableReflection {
		*enableReflection = cfg.Server.GRPC.EnableReflection
	}

	// Setup logging
	setupLogging(*logLevel, cfg.Server.LogFormat)

	rs, err := cfg.Combat.Ruleset()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ruleset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, closeCache := setupCache(ctx, cfg.Cache)
	defer closeCache()

	calc, err := calculator.New(rs, calculator.OptionsFromConfig(cfg.Estimator), cache, monitoring.NewEstimatorStats(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create calculator")
	}

	monitor := monitoring.NewGoroutineMonitor(cfg.Monitoring.Interval(), cfg.Monitoring.GoroutineAlertThreshold, log.Logger)
	calc.TrackGoroutines(monitor)
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go monitor.Run(monitorCtx)

	if config.ConfigFilePath() != "" {
		config.WatchConfig(func(c *config.Config) {
			setupLogging(c.Server.LogLevel, c.Server.LogFormat)
			log.Info().Str("log_level", c.Server.LogLevel).Msg("Configuration reloaded")
		}, func(err error) {
			log.Error().Err(err).Msg("Ignoring invalid configuration change")
		})
	}

	log.Info().
		Str("rules", rs.Name).
		Int("grpc_port", *grpcPort).
		Int("http_port", *httpPort).
		Int("run_count", cfg.Estimator.RunCount).
		Bool("cache", cache != nil).
		Msg("Starting odds server")

	// Create listener
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", grpcHost, *grpcPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}

	// Create gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			loggingInterceptor,
			recoveryInterceptor,
		),
		grpc.ChainStreamInterceptor(
			streamLoggingInterceptor,
			streamRecoveryInterceptor,
		),
	}

	grpcServer := grpc.NewServer(opts...)
	oddsserver.RegisterOddsServiceServer(grpcServer, oddsserver.NewServer(calc))

	// Register health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(oddsserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Register reflection service for debugging
	if *enableReflection {
		reflection.Register(grpcServer)
		log.Info().Msg("gRPC reflection enabled")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", httpHost, *httpPort),
		Handler:           httpapi.NewHandler(calc, log.Logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		// Set health status to NOT_SERVING
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(oddsserver.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		// Give ongoing requests time to complete
		delay := time.Duration(cfg.Server.GracefulShutdownDelay) * time.Second
		time.Sleep(delay)

		log.Info().Msg("Gracefully stopping servers")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), delay+5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		grpcServer.GracefulStop()
		cancel()
	}()

	log.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC")
		}
	}()

	log.Info().Str("address", httpServer.Addr).Msg("HTTP server listening")
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("Server shutdown complete")
}

// setupCache returns the configured estimate cache, or nil when caching is
// disabled. A Redis cache that cannot be reached falls back to memory.
func setupCache(ctx context.Context, c config.CacheConfig) (odds.Cache, func()) {
	noop := func() {}
	if !c.Enabled {
		return nil, noop
	}
	if c.Backend == "redis" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := odds.NewRedisCache(pingCtx, c.RedisURL, c.KeyPrefix, c.TTL())
		if err == nil {
			log.Info().Str("prefix", c.KeyPrefix).Msg("Using Redis estimate cache")
			return rc, func() {
				if err := rc.Close(); err != nil {
					log.Warn().Err(err).Msg("Closing Redis cache failed")
				}
			}
		}
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory estimate cache")
	}
	return odds.NewMemoryCache(c.TTL(), c.MaxEntries), noop
}

func setupLogging(level, format string) {
	// Parse log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if format == "json" || os.Getenv("APP_ENV") == "production" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Pretty console output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// loggingInterceptor logs all unary RPC calls
func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			code = st.Code()
		}
	}

	log.Info().
		Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("gRPC call")

	return resp, err
}

// recoveryInterceptor catches panics and returns proper gRPC errors
func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("method", info.FullMethod).
				Interface("panic", r).
				Msg("Recovered from panic in gRPC handler")
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}

// streamLoggingInterceptor logs all streaming RPC calls
func streamLoggingInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()

	err := handler(srv, ss)

	code := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			code = st.Code()
		}
	}

	log.Info().
		Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Bool("is_server_stream", info.IsServerStream).
		Err(err).
		Msg("gRPC stream")

	return err
}

// streamRecoveryInterceptor catches panics in streaming handlers
func streamRecoveryInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("method", info.FullMethod).
				Interface("panic", r).
				Msg("Recovered from panic in gRPC stream handler")
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(srv, ss)
}
