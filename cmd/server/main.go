package main

import (
	"log"
	"time"

	"github.com/kalashagnihotri/debate-backend/internal/config"
	"github.com/kalashagnihotri/debate-backend/internal/database"
	"github.com/kalashagnihotri/debate-backend/internal/engine"
	"github.com/kalashagnihotri/debate-backend/internal/handlers"
	"github.com/kalashagnihotri/debate-backend/internal/middleware"
	"github.com/kalashagnihotri/debate-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// @title           Debate Platform API
// @version         1.0
// @description     API for moderated live debates with viewer voting
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	authService := services.NewAuthService(db, cfg.JWTSecret)
	topicService := services.NewTopicService(db)
	sessionService := services.NewSessionService(db)

	eng := engine.New(authService, sessionService, sessionService, engine.NewMemoryBus(), engine.Options{
		SendQueueDepth:     cfg.SendQueueDepth,
		IdleTimeout:        time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
		VotingWindow:       time.Duration(cfg.VotingWindowSeconds) * time.Second,
		ClosingGrace:       time.Duration(cfg.ClosingGraceSeconds) * time.Second,
		MaxMessageLength:   cfg.MaxMessageLength,
		VoteEligibility:    engine.VoteEligibility(cfg.VoteEligibility),
		AllowRemovedViewer: cfg.AllowRemovedViewer,
	})

	authHandler := handlers.NewAuthHandler(authService)
	topicHandler := handlers.NewTopicHandler(topicService)
	sessionHandler := handlers.NewSessionHandler(sessionService, eng)
	wsHandler := handlers.NewWSHandler(eng)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if cfg.CORSOrigin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.CORSOrigin}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/ws/sessions/:id", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.JWTAuth(authService), authHandler.Me)
		}

		topics := api.Group("/topics")
		{
			topics.GET("", topicHandler.ListTopics)
			topics.GET("/:id", topicHandler.GetTopic)
			topics.POST("", middleware.JWTAuth(authService), topicHandler.CreateTopic)
			topics.PUT("/:id", middleware.JWTAuth(authService), topicHandler.UpdateTopic)
			topics.DELETE("/:id", middleware.JWTAuth(authService), topicHandler.DeleteTopic)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", sessionHandler.ListSessions)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.GET("/:id/transcript", sessionHandler.GetTranscript)
			sessions.GET("/:id/participants", sessionHandler.GetParticipation)

			sessions.POST("", middleware.JWTAuth(authService), sessionHandler.CreateSession)
			sessions.POST("/:id/phase/:action", middleware.JWTAuth(authService), sessionHandler.PhaseControl)
			sessions.GET("/:id/results", middleware.JWTAuth(authService), sessionHandler.GetResults)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
