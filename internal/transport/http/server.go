package http

import (
	"github.com/gin-gonic/gin"

	"gemchat/internal/bootstrap"
	"gemchat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app.ChatService)
	sessionHandler := handler.NewSessionHandler(app.ChatService)
	chatHandler := handler.NewChatHandler(app.ChatService, app.Config.Chat)

	api := router.Group("/api")
	api.GET("/health", healthHandler.Check)

	api.GET("/sessions", sessionHandler.List)
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions/:id", sessionHandler.Get)
	api.DELETE("/sessions/:id", sessionHandler.Delete)

	api.GET("/sessions/:id/messages", sessionHandler.Messages)
	api.POST("/sessions/:id/messages", chatHandler.SendMessage)
	api.POST("/sessions/:id/generate-title", chatHandler.GenerateTitle)

	api.POST("/chat/completions", chatHandler.Complete)

	return router
}
