package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annoflow/annoflow/internal/allocator"
	"github.com/annoflow/annoflow/internal/annotator"
	annotatorrepo "github.com/annoflow/annoflow/internal/annotator/repositoryimpl"
	"github.com/annoflow/annoflow/internal/config"
	"github.com/annoflow/annoflow/internal/event"
	"github.com/annoflow/annoflow/internal/eventbus"
	"github.com/annoflow/annoflow/internal/pushnotification"
	pushsubrepo "github.com/annoflow/annoflow/internal/pushsubscription/repositoryimpl"
	"github.com/annoflow/annoflow/internal/review"
	reviewrepo "github.com/annoflow/annoflow/internal/review/repositoryimpl"
	"github.com/annoflow/annoflow/internal/sampling"
	"github.com/annoflow/annoflow/internal/task"
	taskrepo "github.com/annoflow/annoflow/internal/task/repositoryimpl"
	"github.com/annoflow/annoflow/internal/workflow"
	"github.com/annoflow/annoflow/pkg/clog"
	"github.com/annoflow/annoflow/pkg/storage"

	server "github.com/annoflow/annoflow/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	case "memory":
		store = storage.NewMemoryStorage()
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	taskRepo := taskrepo.NewYAMLRepository(store)
	annotatorRepo := annotatorrepo.NewYAMLRepository(store)
	reviewRepo := reviewrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Setup domain services
	engineEnv := config.EngineEnvFromEnv(env)
	registry := annotator.NewRegistry(annotatorRepo, engineEnv.LockWait)
	engine := workflow.NewEngine(taskRepo, registry, bus, engineEnv.LockWait, engineEnv.MaxAssigneesCap)
	recommender := allocator.NewRecommender(allocator.Weights{
		Skill:    engineEnv.SkillWeight,
		Headroom: engineEnv.HeadroomWeight,
		Accuracy: engineEnv.AccuracyWeight,
		Urgency:  engineEnv.UrgencyWeight,
	}, engineEnv.UrgencyHorizon)
	adviser := sampling.NewClient(config.SamplingEnvFromEnv(env))
	coordinator := review.NewCoordinator(engine, reviewRepo, registry, review.NewEWMAPolicy(engineEnv.MetricsAlpha), adviser)

	// Setup servers
	taskServer := task.NewServer(taskRepo, bus)
	annotatorServer := annotator.NewServer(annotatorRepo, registry)
	allocatorServer := allocator.NewServer(recommender, taskRepo, registry)
	workflowServer := workflow.NewServer(engine)
	reviewServer := review.NewServer(coordinator)
	eventServer := event.NewServer(bus)

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushNotificationServer := pushnotification.NewServer(vapidEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(bus, taskRepo, pushSender)

	srv := server.NewServer(
		env,
		taskServer,
		annotatorServer,
		allocatorServer,
		workflowServer,
		reviewServer,
		eventServer,
		pushNotificationServer,
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go pushDispatcher.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
