package main

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"whatsapp-connect/internal/api"
	"whatsapp-connect/internal/config"
	"whatsapp-connect/internal/database"
	"whatsapp-connect/internal/messaging"
	"whatsapp-connect/internal/template"
	"whatsapp-connect/internal/webhook"
	"whatsapp-connect/internal/whatsapp"
)

func main() {
	cfg := config.LoadConfig()
	setupLogging(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	client := whatsapp.NewClient(
		whatsapp.WithVersion(cfg.GraphAPIVersion),
		whatsapp.WithTimeout(cfg.HTTPTimeout),
	)

	dispatcher := &messaging.Dispatcher{
		DB:                 db,
		Sender:             client,
		DefaultCountryCode: cfg.DefaultCountryCode,
	}
	templateService := &template.Service{DB: db, Provider: client}
	processor := &webhook.Processor{
		DB:                 db,
		Resolver:           &webhook.GormCompanyResolver{DB: db},
		DefaultCountryCode: cfg.DefaultCountryCode,
	}

	webhookHandler := webhook.NewHandler(cfg, processor)
	templateHandler := api.NewTemplateHandler(db, templateService)
	messageHandler := api.NewMessageHandler(db, dispatcher)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/webhook", webhookHandler.Verify)
	r.POST("/webhook", webhookHandler.Receive)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/templates", templateHandler.Create)
		apiGroup.GET("/templates", templateHandler.List)
		apiGroup.POST("/templates/:id/submit", templateHandler.Submit)
		apiGroup.POST("/templates/sync", templateHandler.Sync)
		apiGroup.DELETE("/templates/:id", templateHandler.Delete)

		apiGroup.POST("/messages/send", messageHandler.Send)
		apiGroup.GET("/conversations", messageHandler.ListConversations)
		apiGroup.GET("/conversations/:id/messages", messageHandler.ListMessages)
	}

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
