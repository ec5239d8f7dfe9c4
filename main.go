package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/example/auth-service/config"
	"github.com/example/auth-service/modules/api"
	"github.com/example/auth-service/modules/auth"
	"github.com/example/auth-service/modules/metrics"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("=== Auth Service ===")
	log.Printf("HTTP Port: %d", cfg.Port)
	log.Printf("NATS Port: %d", cfg.NATSPort)
	log.Printf("Token TTL: %s", cfg.JWTExpiresIn)

	logLevel := mono.WithLogLevel(mono.LogLevelInfo)
	switch cfg.LogLevel {
	case "debug":
		logLevel = mono.WithLogLevel(mono.LogLevelDebug)
	case "warn":
		logLevel = mono.WithLogLevel(mono.LogLevelWarn)
	case "error":
		logLevel = mono.WithLogLevel(mono.LogLevelError)
	}
	logFormat := mono.WithLogFormat(mono.LogFormatText)
	if cfg.LogFormat == "json" {
		logFormat = mono.WithLogFormat(mono.LogFormatJSON)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		logLevel,
		logFormat,
		mono.WithNATSPort(cfg.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Middleware must be registered before the modules it wraps.
	metricsMiddleware := metrics.New(app.Logger())
	app.Register(metricsMiddleware)

	authModule := auth.NewModule(auth.Options{
		DatabaseURL: cfg.DatabaseURL,
		Token: auth.TokenConfig{
			Secret: cfg.JWTSecret,
			TTL:    cfg.JWTExpiresIn,
			Issuer: cfg.JWTIssuer,
		},
		BcryptCost: cfg.BcryptCost,
	}, app.Logger())
	app.Register(authModule)

	apiModule := api.NewModule(api.Options{
		Addr:     fmt.Sprintf(":%d", cfg.Port),
		Gatherer: metricsMiddleware.Gatherer(),
		Checkers: map[string]api.HealthChecker{
			authModule.Name(): authModule,
		},
	}, app.Logger())
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("NATS available at nats://localhost:%d", cfg.NATSPort)
	log.Println("Services:")
	log.Println("  services.auth.register-user - RequestReplyService: register a user")
	log.Println("  services.auth.login-user    - RequestReplyService: log in and mint a token")
	log.Println("  services.auth.verify-user   - RequestReplyService: verify and refresh a token")
	log.Printf("HTTP endpoints on :%d: /health /metrics /api/v1/auth/{register,login,verify}", cfg.Port)
	log.Println("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
