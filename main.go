package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/basit/filevault-backend/config"
	"github.com/basit/filevault-backend/files"
	"github.com/basit/filevault-backend/handlers"
	"github.com/basit/filevault-backend/initializers"
	"github.com/basit/filevault-backend/jobs"
	"github.com/basit/filevault-backend/middleware"
	"github.com/basit/filevault-backend/repository"
	"github.com/basit/filevault-backend/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := initializers.ConnectToDatabase(cfg)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}

	disks, err := initializers.InitDisks(context.Background(), cfg)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}

	repo := repository.New(db)
	service, err := files.NewService(cfg, disks, repo, logger)
	if err != nil {
		logger.Fatal("file service", zap.Error(err))
	}

	jobs.StartURLRefreshJob(service, repo, logger)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.NewRateLimit(1, 5).Handler())

	routes.RegisterFileRoutes(router, handlers.New(service, repo))

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
