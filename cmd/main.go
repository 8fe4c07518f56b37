package main

import (
	"context"
	"encoding/base64"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/server"
	"github.com/mansoorceksport/liftlog/internal/telemetry"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Info("Starting LiftLog Service...")

	ctx := context.Background()

	// Grafana Cloud requires Basic auth with instanceId:apiToken base64 encoded
	headers := map[string]string{}
	if cfg.OTEL.InstanceID != "" {
		authString := cfg.OTEL.InstanceID + ":" + cfg.OTEL.Token
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(authString))
	}

	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: cfg.OTEL.ServiceVersion,
		Environment:    cfg.OTEL.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		URLPathPrefix:  otlpPathPrefix(cfg),
		OTLPHeaders:    headers,
		Insecure:       cfg.OTEL.Insecure,
		SamplePercent:  cfg.OTEL.SamplePercent,
		Enabled:        cfg.OTEL.Enabled,
	})
	if err != nil {
		log.Warnf("Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				log.Warnf("OpenTelemetry shutdown: %v", err)
			}
		}()
	}

	// Initialize Firebase when the store or auth needs it
	var (
		firebaseApp *firebase.App
		deps        = server.AppDependencies{Config: cfg}
	)
	if cfg.UsesFirebase() {
		firebaseApp, err = middleware.InitFirebase(ctx,
			cfg.Firebase.ProjectID,
			cfg.Firebase.PrivateKey,
			cfg.Firebase.ClientEmail,
		)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		log.Info("✓ Firebase initialized")

		if cfg.Auth.Mode == config.AuthFirebase {
			authClient, err := firebaseApp.Auth(ctx)
			if err != nil {
				log.Fatalf("Failed to get Firebase Auth client: %v", err)
			}
			deps.AuthClient = authClient
		}
	}

	store, closeStore, err := server.OpenStore(ctx, cfg, firebaseApp)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer closeStore()
	deps.Store = store

	redisClient, err := server.OpenRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		deps.RedisClient = redisClient
	}

	archive, err := server.OpenArchive(ctx, cfg)
	if err != nil {
		// Archiving is best effort, the service still works without it
		log.Warnf("Failed to initialize S3 session archive: %v", err)
	} else {
		deps.Archive = archive
	}

	app, stopSessions := server.NewApp(deps)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warnf("Shutdown: %v", err)
		}
	}()

	// Start server
	log.Infof("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
	stopSessions()
}

// otlpPathPrefix is "/otlp" when exporting to Grafana Cloud's OTLP gateway
func otlpPathPrefix(cfg *config.Config) string {
	if cfg.OTEL.InstanceID != "" {
		return "/otlp"
	}
	return ""
}
