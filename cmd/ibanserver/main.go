package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/bunseokbot/iban-validator/internal/audit"
	"github.com/bunseokbot/iban-validator/internal/config"
	"github.com/bunseokbot/iban-validator/internal/metrics"
	"github.com/bunseokbot/iban-validator/internal/registry"
	"github.com/bunseokbot/iban-validator/internal/server"
	"github.com/bunseokbot/iban-validator/internal/validator"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Minute
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	var configFile string
	var listenAddress string
	var registryFile string
	var auditLogFile string
	var maxBatch int
	var rateLimit int
	var trustForwardedHeaders bool

	flag.StringVar(&configFile, "config", "", "Path to the YAML configuration file.")
	flag.StringVar(&listenAddress, "listen-address", config.DefaultListenAddress, "The address the API binds to.")
	flag.StringVar(&registryFile, "registry-file", "", "YAML registry replacing the built-in country table.")
	flag.StringVar(&auditLogFile, "audit-log-file", "", "File receiving JSON audit entries.")
	flag.IntVar(&maxBatch, "max-batch", config.DefaultMaxBatch, "Maximum number of IBANs in one batch request.")
	flag.IntVar(&rateLimit, "rate-limit", 0, "Requests per minute allowed per client, 0 disables rate limiting.")
	flag.BoolVar(&trustForwardedHeaders, "trust-forwarded-headers", false,
		"Take the client address from X-Forwarded-For and X-Real-IP. Enable only behind a trusted proxy.")

	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	cfg, err := config.Load(configFile)
	if err != nil {
		setupLog.Error(err, "unable to load configuration", "file", configFile)
		os.Exit(1)
	}

	// Flags given explicitly override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen-address":
			cfg.ListenAddress = listenAddress
		case "registry-file":
			cfg.RegistryFile = registryFile
		case "audit-log-file":
			cfg.AuditLogFile = auditLogFile
		case "max-batch":
			cfg.MaxBatch = maxBatch
		case "rate-limit":
			cfg.RateLimitPerMinute = rateLimit
		case "trust-forwarded-headers":
			cfg.TrustForwardedHeaders = trustForwardedHeaders
		}
	})
	if err := cfg.Validate(); err != nil {
		setupLog.Error(err, "invalid configuration")
		os.Exit(1)
	}

	v := validator.Default()
	if cfg.RegistryFile != "" {
		reg, err := registry.LoadFile(cfg.RegistryFile)
		if err != nil {
			setupLog.Error(err, "unable to load registry", "file", cfg.RegistryFile)
			os.Exit(1)
		}
		v = validator.New(reg)
	}
	setupLog.Info("registry loaded", "countries", v.Registry().Len(), "sepaCountries", len(v.Registry().SEPACountries()))

	auditLogger := audit.NewMultiLogger(audit.NewControllerRuntimeLogger())
	if cfg.AuditLogFile != "" {
		fileLogger, err := audit.NewJSONFileLogger(cfg.AuditLogFile)
		if err != nil {
			setupLog.Error(err, "unable to open audit log", "file", cfg.AuditLogFile)
			os.Exit(1)
		}
		auditLogger.AddLogger(fileLogger)
	}
	defer auditLogger.Close()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(v, auditLogger, metrics.New(promRegistry), ctrl.Log.WithName("server"), server.Options{
		MaxBatch:           cfg.MaxBatch,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Masking:            cfg.Masking,
		Gatherer:           promRegistry,

		TrustForwardedHeaders: cfg.TrustForwardedHeaders,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx := ctrl.SetupSignalHandler()
	go srv.RunPruner(ctx, pruneInterval)

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		setupLog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			setupLog.Error(err, "problem shutting down server")
		}
	}()

	setupLog.Info("starting server", "address", cfg.ListenAddress, "maxBatch", cfg.MaxBatch,
		"rateLimitPerMinute", cfg.RateLimitPerMinute, "trustForwardedHeaders", cfg.TrustForwardedHeaders)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		setupLog.Error(err, "problem running server")
		os.Exit(1)
	}
	<-idle
}
