package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/api"
	"github.com/talktojesus/api_server/internal/api/handler"
	"github.com/talktojesus/api_server/internal/database"
	"github.com/talktojesus/api_server/internal/pkg/cron"
	"github.com/talktojesus/api_server/internal/pkg/elevenlabs"
	"github.com/talktojesus/api_server/internal/pkg/google"
	"github.com/talktojesus/api_server/internal/pkg/logger"
	"github.com/talktojesus/api_server/internal/pkg/openai"
	"github.com/talktojesus/api_server/internal/pkg/oss"
	"github.com/talktojesus/api_server/internal/pkg/pubsub"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/pkg/ws"
	"github.com/talktojesus/api_server/internal/repository"
	"github.com/talktojesus/api_server/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewMySQL(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	zlog.Info("database connected")

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	zlog.Info("redis connected")

	creds := cfg.ActiveRazorpay()
	zlog.Info("payment provider configured",
		zap.String("env", cfg.Server.Env),
		zap.String("razorpay_key_id", creds.KeyID),
	)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	songRepo := repository.NewSongRepository(db)

	// External clients
	provider := razorpay.NewClient(creds.KeyID, creds.KeySecret, zlog)
	publisher := pubsub.NewPublisher(rdb)
	identity := google.NewVerifier(ctx, cfg.Google.ClientIDs)
	llm := openai.NewClient(cfg.OpenAI)
	tts := elevenlabs.NewClient(cfg.ElevenLabs)

	var audioStore service.AudioStore
	if oss.Enabled(&cfg.OSS) {
		client, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			return fmt.Errorf("connect oss: %w", err)
		}
		audioStore = client
		zlog.Info("audio uploads enabled", zap.String("bucket", cfg.OSS.BucketName))
	}

	// Services
	entitlement := service.NewEntitlementService(userRepo, subRepo, service.NewEntitlementConfig(cfg.Entitlement), zlog)
	usage := service.NewUsageService(userRepo, zlog)
	reconciler := service.NewReconcileService(subRepo, provider, publisher, zlog)
	subscriptions := service.NewSubscriptionService(planRepo, subRepo, provider, reconciler, publisher, zlog)
	webhooks := service.NewWebhookService(razorpay.NewVerifier(creds.WebhookSecret, zlog), reconciler, eventRepo, zlog)
	authService := service.NewAuthService(userRepo, identity, cfg, zlog)
	userService := service.NewUserService(userRepo, entitlement.FreeLimit())
	planService := service.NewPlanService(planRepo, cfg.IsProduction())
	songs := service.NewSongService(songRepo, zlog)
	conversations := service.NewConversationService(entitlement, usage, llm, llm, tts, audioStore, zlog)

	// Background sync of stale subscriptions and webhook ledger cleanup
	jobs := cron.NewService(reconciler, webhooks, cfg.Cron, zlog)
	jobs.Start(ctx)
	defer jobs.Stop()

	// Subscription updates reach every open socket of the user
	hub := ws.NewHub(zlog)
	go forwardSubscriptionEvents(ctx, pubsub.NewSubscriber(rdb), hub, zlog)

	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewPlanHandler(planService),
		handler.NewSubscriptionHandler(subscriptions),
		handler.NewWebhookHandler(webhooks, zlog),
		handler.NewConversationHandler(conversations, cfg),
		handler.NewWebSocketHandler(hub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zlog),
		handler.NewSongHandler(songs),
		entitlement,
		cfg,
		zlog,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func forwardSubscriptionEvents(ctx context.Context, sub *pubsub.Subscriber, hub *ws.Hub, zlog *zap.Logger) {
	for {
		err := sub.Subscribe(ctx, func(evt *pubsub.SubscriptionEvent) {
			if err := hub.SendToUser(evt.UserID, &ws.Message{Type: evt.Type, Data: evt}); err != nil {
				zlog.Warn("forward subscription event failed", zap.String("user_id", evt.UserID), zap.Error(err))
			}
		})
		if ctx.Err() != nil {
			return
		}
		zlog.Warn("subscription event stream closed, resubscribing", zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
