package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "supportchat/internal/app"
	"supportchat/internal/bootstrap"
	"supportchat/internal/cache"
	rabbitmqClient "supportchat/internal/platform/rabbitmq"
	"supportchat/internal/rag"
	"supportchat/internal/repository"
	"supportchat/internal/transport/http/handler"
	"supportchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	tenantRepo := repository.NewTenantRepository(app.MySQL)
	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		tenantRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	retriever := rag.NewRetriever(app.Embedder, app.Index, chunkRepo, app.Config.RAG.TopK)
	answerService := appsvc.NewAnswerService(
		retriever,
		app.Chain,
		app.Config.RAG.TopK,
		app.Config.Chat.MaxContextTurns,
		app.Config.Chat.MaxPromptChars,
	)

	publisher := rabbitmqClient.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewSessionHistoryCache(
		app.Redis,
		time.Duration(app.Config.Chat.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Chat.DirtyTTLSeconds)*time.Second,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		publisher,
		historyCache,
		answerService,
		app.Config.Chat.MaxContextTurns,
	)
	ingestService := appsvc.NewIngestService(documentRepo, app.Chunker, app.Embedder, app.Index)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(ingestService)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	// Widget traffic authenticates with the tenant's api key.
	widgetGroup := v1.Group("/chat")
	widgetGroup.Use(middleware.TenantAPIKey(tenantRepo))
	widgetGroup.POST("/messages", chatHandler.SendMessage)
	widgetGroup.GET("/history", chatHandler.GetHistory)

	// Dashboard traffic authenticates with a staff JWT; tenant scope comes
	// from the token claims.
	dashboardGroup := v1.Group("/dashboard")
	dashboardGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	dashboardGroup.GET("/sessions", chatHandler.ListSessions)
	dashboardGroup.GET("/history", chatHandler.GetHistory)
	dashboardGroup.POST("/documents", documentHandler.Create)
	dashboardGroup.POST("/documents/upload", documentHandler.Upload)
	dashboardGroup.GET("/documents", documentHandler.List)
	dashboardGroup.DELETE("/documents/:id", documentHandler.Delete)

	return router
}
