package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	backend "github.com/redis/go-redis/v9"

	"github.com/artfoundry/atelier/backend/internal/config"
	"github.com/artfoundry/atelier/backend/internal/handler"
	"github.com/artfoundry/atelier/backend/internal/logger"
	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/service/advisor"
	"github.com/artfoundry/atelier/backend/internal/service/chatbot"
	"github.com/artfoundry/atelier/backend/internal/service/editor"
	"github.com/artfoundry/atelier/backend/internal/service/genai"
	sessionsvc "github.com/artfoundry/atelier/backend/internal/service/session"
	"github.com/artfoundry/atelier/backend/internal/service/studio"
	"github.com/artfoundry/atelier/backend/internal/storage/blob"
	"github.com/artfoundry/atelier/backend/internal/storage/object"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	// Connect durable storage
	redisOpts, err := backend.ParseURL(cfg.Storage.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	objects := object.NewFromClient(backend.NewClient(redisOpts), object.WithPrefix(cfg.Storage.Namespace))
	defer objects.Close()

	blobStore := blob.New(objects)
	records := sessionsvc.NewStore(objects, blobStore)
	directory := sessionsvc.NewDirectory(records)

	// Wire the enabled image backends
	invokers := make(map[model.Family]genai.Invoker)
	if cfg.Stability.Enabled() {
		invokers[model.FamilyStability] = genai.NewStability(genai.ClientConfig{
			Endpoint: cfg.Stability.Endpoint,
			APIKey:   cfg.Stability.APIKey,
		})
		logger.Info().Msg("stability backend enabled")
	}
	var titan genai.Invoker
	if cfg.Titan.Enabled() {
		titan = genai.NewTitan(genai.ClientConfig{
			Endpoint: cfg.Titan.Endpoint,
			APIKey:   cfg.Titan.APIKey,
		})
		invokers[model.FamilyTitan] = titan
		logger.Info().Msg("titan backend enabled")
	}
	if len(invokers) == 0 {
		logger.Warn().Msg("no image backend configured; generation routes will report unavailability")
	}

	studioSvc := studio.New(records, directory, invokers)
	editorSvc := editor.New(records, titan)

	// The chat features are optional; the rest of the service runs without
	// them.
	var advisorSvc *advisor.Service
	var chatbotSvc *chatbot.Service
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize chat model, continuing without chat features")
		} else {
			advisorSvc, err = advisor.NewService(ctx, chatModel)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to initialize prompt advisor, continuing without it")
				advisorSvc = nil
			} else {
				logger.Info().Msg("prompt advisor enabled")
			}
			chatbotSvc = chatbot.NewService(chatModel, objects)
			logger.Info().Msg("assistant enabled")
		}
	} else {
		logger.Info().Msg("chat model credentials not configured, chat features disabled")
	}

	router := handler.NewRouter(studioSvc, editorSvc, advisorSvc, chatbotSvc, blobStore)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("atelier backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
