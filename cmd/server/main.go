package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/belens/belens-api/internal/archive"
	"github.com/belens/belens-api/internal/config"
	"github.com/belens/belens-api/internal/identity"
	"github.com/belens/belens-api/internal/imaging"
	"github.com/belens/belens-api/internal/inference"
	"github.com/belens/belens-api/internal/metrics"
	"github.com/belens/belens-api/internal/nutrition"
	"github.com/belens/belens-api/internal/pipeline"
	"github.com/belens/belens-api/internal/server"
	"github.com/belens/belens-api/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	var clientOpts []option.ClientOption
	if cfg.GCP.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCP.CredentialsFile))
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GCP.ProjectID}, clientOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Firebase app")
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Firebase auth client")
	}

	fsClient, err := firestore.NewClient(ctx, cfg.GCP.ProjectID, clientOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Firestore client")
	}
	defer fsClient.Close()

	gcsClient, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Cloud Storage client")
	}
	defer gcsClient.Close()

	nutritionTable, err := nutrition.Load(cfg.Nutrition.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Nutrition.Path).Msg("failed to load nutrition table")
	}
	log.Info().Int("rows", nutritionTable.Len()).Msg("nutrition table loaded")

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	invoker := inference.NewInvoker(cfg.Model.Path, func() { m.SetModelLoaded(true) })
	defer invoker.Close()

	resolver := identity.NewResolver(identity.NewFirebaseVerifier(authClient), cfg.Identity.Timeout)
	archiver := archive.NewArchiver(archive.NewGCSStore(gcsClient, cfg.Storage.Bucket), cfg.Storage.Timeout)
	records := store.NewPredictionStore(fsClient, cfg.Firestore.Collection, cfg.Firestore.Timeout)

	orch := pipeline.NewOrchestrator(pipeline.Config{
		Resolver:        resolver,
		Archiver:        archiver,
		Normalizer:      imaging.NewNormalizer(),
		Classifier:      invoker,
		Enricher:        nutritionTable,
		Records:         records,
		RequireIdentity: cfg.Identity.Required,
		Logger:          log,
		Metrics:         m,
	})

	srv := server.New(cfg, log, orch, resolver, records, m, registry)

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("listen", cfg.Server.Listen).
			Str("model", cfg.Model.Path).
			Bool("identity_required", cfg.Identity.Required).
			Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-shutdownCtx.Done()
	log.Info().Msg("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}
