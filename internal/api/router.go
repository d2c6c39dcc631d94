package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/api/handler"
	"github.com/talktojesus/api_server/internal/api/middleware"
	"github.com/talktojesus/api_server/internal/service"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	planHandler         *handler.PlanHandler
	subscriptionHandler *handler.SubscriptionHandler
	webhookHandler      *handler.WebhookHandler
	conversationHandler *handler.ConversationHandler
	websocketHandler    *handler.WebSocketHandler
	songHandler         *handler.SongHandler
	entitlement         *service.EntitlementService
	cfg                 *config.Config
	logger              *zap.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	planHandler *handler.PlanHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	webhookHandler *handler.WebhookHandler,
	conversationHandler *handler.ConversationHandler,
	websocketHandler *handler.WebSocketHandler,
	songHandler *handler.SongHandler,
	entitlement *service.EntitlementService,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		userHandler:         userHandler,
		planHandler:         planHandler,
		subscriptionHandler: subscriptionHandler,
		webhookHandler:      webhookHandler,
		conversationHandler: conversationHandler,
		websocketHandler:    websocketHandler,
		songHandler:         songHandler,
		entitlement:         entitlement,
		cfg:                 cfg,
		logger:              logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(r.logger))
	engine.Use(middleware.RequestLogger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/", handler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		api.GET("/ws", r.websocketHandler.Handle)

		api.POST("/auth/google", r.authHandler.GoogleLogin)
		api.POST("/auth/create-or-get-user", r.authHandler.CreateOrGetUser)
		api.GET("/plans", r.planHandler.List)

		// signed by the provider, not by our JWT
		api.POST("/webhook/razorpay", r.webhookHandler.Razorpay)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/user/me", r.userHandler.Me)
			authenticated.GET("/songs", r.songHandler.List)

			subscription := authenticated.Group("/subscription")
			{
				subscription.POST("/create", r.subscriptionHandler.Create)
				subscription.GET("/current", r.subscriptionHandler.Current)
				subscription.POST("/cancel", r.subscriptionHandler.Cancel)
			}
			authenticated.POST("/payment/create-order", r.subscriptionHandler.Create)

			// rejects before the upload is parsed
			authenticated.POST("/conversation/send-message",
				middleware.RequireEntitlement(r.entitlement),
				r.conversationHandler.SendMessage,
			)
		}
	}

	return engine
}
