package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fourall/internal/adaptive"
	"fourall/internal/ai"
	"fourall/internal/config"
	"fourall/internal/database"
	"fourall/internal/handlers"
	"fourall/internal/logger"
	"fourall/internal/notify"
	"fourall/internal/onboarding"
	"fourall/internal/profile"
	"fourall/internal/queue"
	"fourall/internal/repository"
	"fourall/internal/security"
	"fourall/internal/storage"
	"fourall/internal/voice"
)

const (
	voiceIdleTTL       = 15 * time.Minute
	voiceSweepInterval = time.Minute
	limiterCleanup     = 5 * time.Minute
	eventFlushInterval = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fourall: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	usesDefault, err := cfg.CheckSessionSecret()
	if err != nil {
		return err
	}
	if usesDefault {
		log.Warn("using the default session signing secret; set SESSION_SECRET outside local development")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := handlers.NewStartupStatus()

	status.SetCurrentStep(handlers.StepDatabase)
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	log.Info("database connection established", zap.String("type", cfg.Database.Type))
	status.CompleteStep(handlers.StepDatabase)

	status.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")
	status.CompleteStep(handlers.StepMigrations)

	status.SetCurrentStep(handlers.StepServices)

	profileRepo := repository.NewProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	pinRepo := repository.NewPINRepository(db)
	queueRepo := repository.NewQueueRepository(db)

	collab, err := ai.New(ctx, cfg.Gemini, log)
	if err != nil {
		return err
	}
	notifier, err := notify.NewEmailNotifier(ctx, cfg.Email, log)
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg.Storage, cfg.TTS.AudioDir)
	if err != nil {
		return fmt.Errorf("failed to initialize audio storage: %w", err)
	}
	tts := voice.NewTTSService(cfg.TTS, store, log)

	machine := onboarding.NewMachine(progressRepo, profileRepo, collab, notifier, cfg.Onboarding.ProgressTTL, log)
	profiles := profile.NewService(profileRepo, pinRepo, adaptive.NewDeriver(), log)

	sink, closeSink, err := queue.NewSink(cfg.Queue, log)
	if err != nil {
		return err
	}
	defer closeSink()
	actions := queue.New(queueRepo, sink, cfg.Queue.MaxRetries, log)
	events := queue.NewEventBuffer(sink, cfg.Queue.EventBuffer, log)

	pool := voice.NewSessionPool(tts, handlers.NewVoiceProfiles(profiles, machine, log), voiceIdleTTL, cfg.TTS.Timeout, log)
	interp, err := voice.NewInterpreter(log)
	if err != nil {
		return err
	}

	limiter := security.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	mw := handlers.NewMiddleware(
		security.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL),
		security.NewCSRFGenerator(cfg.Session.Secret),
		limiter,
		log,
	)

	router := handlers.NewRouter(handlers.Handlers{
		Health:     handlers.NewHealthHandler(status, db, log),
		Onboarding: handlers.NewOnboardingHandler(machine, log),
		Profile:    handlers.NewProfileHandler(profiles, log),
		Voice:      handlers.NewVoiceHandler(pool, interp, machine, tts, log),
		Queue:      handlers.NewQueueHandler(actions, events, log),
		Assistant:  handlers.NewAssistantHandler(ai.NewAssistant(collab, log), profiles, log),
	}, mw, log)

	status.CompleteStep(handlers.StepServices)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		if n, err := events.Flush(shutdownCtx); err != nil {
			log.Warn("final event flush failed", zap.Error(err))
		} else if n > 0 {
			log.Info("flushed buffered events", zap.Int("count", n))
		}
		return nil
	})

	g.Go(func() error { return actions.Run(gctx, cfg.Queue.FlushInterval) })
	g.Go(func() error { return events.Run(gctx, eventFlushInterval) })
	g.Go(func() error { return machine.RunSweeper(gctx, cfg.Onboarding.SweepInterval) })
	g.Go(func() error { return pool.Run(gctx, voiceSweepInterval) })
	g.Go(func() error {
		limiter.Run(gctx, limiterCleanup)
		return nil
	})

	status.MarkReady()
	log.Info("startup complete")

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
