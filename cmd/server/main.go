// Package main starts the API server: database, cache, side-effect queue,
// periodic generation and the HTTP surface.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"domus/internal/config"
	"domus/internal/repositories"
	"domus/internal/repositories/cache"
	"domus/internal/routes"
	"domus/internal/services/notification"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/robfig/cron/v3"
)

func main() {
	config.LoadEnv()

	db, err := repositories.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// The cache is optional: without REDIS_HOST every lookup goes straight
	// to the database.
	var cacheSvc *cache.CacheService
	if host := os.Getenv("REDIS_HOST"); host != "" {
		client := cache.NewRedisClient(&cache.RedisConfig{
			Host:     host,
			Port:     config.GetEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       config.GetIntEnv("REDIS_DB", 0),
		})
		cacheSvc = cache.NewCacheService(client, config.GetDurationEnv("CACHE_TTL", 15*time.Minute))
		// Stale identity data must not survive a deploy.
		if err := cacheSvc.FlushAll(context.Background()); err != nil {
			log.Printf("failed to flush cache on startup: %v", err)
		}
	}

	notifier := notification.NewService(nil)

	app := fiber.New(fiber.Config{
		AppName: "domus",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGIN", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	generator := routes.SetupRoutes(app, db, cacheSvc, notifier)

	// Periodic generation: rent obligations, template firing, invite expiry
	// and overdue flipping. The manual admin trigger runs the same pass.
	scheduler := cron.New()
	interval := config.GetEnv("RECURRENCE_INTERVAL", "@hourly")
	if _, err := scheduler.AddFunc(interval, func() {
		stats := generator.Run()
		log.Printf("generation pass: %d rents, %d flipped overdue, %d requests, %d templates completed, %d invites expired",
			stats.RentRecordsCreated, stats.RentOverdueFlipped, stats.RequestsCreated, stats.TemplatesCompleted, stats.InvitesExpired)
	}); err != nil {
		log.Fatalf("invalid RECURRENCE_INTERVAL %q: %v", interval, err)
	}
	scheduler.Start()

	go func() {
		if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	scheduler.Stop()
	if err := app.Shutdown(); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	notifier.Close()
	if cacheSvc != nil {
		if err := cacheSvc.Close(); err != nil {
			log.Printf("cache close: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("database close: %v", err)
		}
	}
}
