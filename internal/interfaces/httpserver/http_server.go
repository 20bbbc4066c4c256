package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chat-insights-server/internal/config"
	"chat-insights-server/internal/infrastructure/database"
	"chat-insights-server/internal/interfaces/httpserver/handlers/chathandler"
	"chat-insights-server/internal/interfaces/httpserver/handlers/wshandler"
	middleware "chat-insights-server/internal/interfaces/httpserver/middlewares"
)

// HTTPServer owns the gin engine and its route bindings.
type HTTPServer struct {
	engine      *gin.Engine
	db          *gorm.DB
	chatHandler *chathandler.ChatHandler
	wsHandler   *wshandler.WSHandler
	config      *config.Config
}

// NewHTTPServer wires middlewares and routes onto a fresh engine.
func NewHTTPServer(
	cfg *config.Config,
	db *gorm.DB,
	chatHandler *chathandler.ChatHandler,
	wsHandler *wshandler.WSHandler,
	log zerolog.Logger,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:      gin.New(),
		db:          db,
		chatHandler: chatHandler,
		wsHandler:   wsHandler,
		config:      cfg,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.LoggingMiddleware(log))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware())

	server.bindRoutes()
	return server
}

func (s *HTTPServer) bindRoutes() {
	s.engine.GET("/", s.banner)

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/readyz", func(c *gin.Context) {
		if err := database.Ping(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	chats := s.engine.Group("/chats")
	chats.POST("", s.chatHandler.CreateChat)
	chats.POST("/message", s.chatHandler.AddMessage)
	chats.POST("/summarize", s.chatHandler.SummarizeChat)
	chats.POST("/insights", s.chatHandler.GenerateInsights)
	chats.GET("/:conversation_id", s.chatHandler.GetChat)
	chats.DELETE("/:conversation_id", s.chatHandler.DeleteChat)

	s.engine.GET("/users/:user_id/chats", s.chatHandler.ListUserChats)

	s.engine.GET("/ws/chat/:conversation_id", s.wsHandler.Chat)
}

func (s *HTTPServer) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.config.ServiceName,
		"endpoints": gin.H{
			"create_chat":     "POST /chats",
			"get_chat":        "GET /chats/{conversation_id}",
			"delete_chat":     "DELETE /chats/{conversation_id}",
			"add_message":     "POST /chats/message",
			"summarize_chat":  "POST /chats/summarize",
			"chat_insights":   "POST /chats/insights",
			"list_user_chats": "GET /users/{user_id}/chats",
			"websocket_chat":  "GET /ws/chat/{conversation_id}",
		},
	})
}

// Run serves HTTP on the configured port until the listener fails.
func (s *HTTPServer) Run() error {
	return s.engine.Run(fmt.Sprintf(":%d", s.config.HTTPPort))
}

// Engine exposes the underlying router, mostly for tests.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}
