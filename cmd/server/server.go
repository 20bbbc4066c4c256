package main

import (
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"chat-insights-server/internal/config"
	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/infrastructure/database"
	"chat-insights-server/internal/infrastructure/database/repository/conversationrepo"
	"chat-insights-server/internal/infrastructure/llm"
	"chat-insights-server/internal/infrastructure/logger"
	"chat-insights-server/internal/interfaces/httpserver"
	"chat-insights-server/internal/interfaces/httpserver/handlers/chathandler"
	"chat-insights-server/internal/interfaces/httpserver/handlers/wshandler"
	"chat-insights-server/internal/realtime"
)

func main() {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.GetLogger()
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLog := logger.GetLogger()
		bootLog.Fatal().Err(err).Msg("configure logger")
	}

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if cfg.AutoMigrate {
		if err := database.Migration(db); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
	}

	chatService := conversation.NewService(conversationrepo.NewConversationGormRepository(db))
	analyzer := llm.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel)
	registry := realtime.NewRegistry()

	chatHandler := chathandler.NewChatHandler(chatService, analyzer, chathandler.Options{
		DefaultPageSize:  cfg.DefaultPageSize,
		MaxPageSize:      cfg.MaxPageSize,
		InsightMaxChats:  cfg.InsightMaxChats,
		SummarizeTimeout: cfg.SummarizeTimeout,
	})
	wsHandler := wshandler.NewWSHandler(registry, chatService, analyzer, wshandler.Options{
		ReadLimit:        cfg.WSReadLimit,
		WriteTimeout:     cfg.WSWriteTimeout,
		SummarizeTimeout: cfg.SummarizeTimeout,
	})

	server := httpserver.NewHTTPServer(cfg, db, chatHandler, wsHandler, log)

	var eg errgroup.Group
	eg.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Str("service", cfg.ServiceName).Msg("starting http server")
		return server.Run()
	})
	eg.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().Int("port", cfg.MetricsPort).Msg("starting metrics server")
		return http.ListenAndServe(fmt.Sprintf(":%d", cfg.MetricsPort), mux)
	})

	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
