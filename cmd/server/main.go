package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"outreachengine/config"
	"outreachengine/queue"
	"outreachengine/routes"
	"outreachengine/store"
	"outreachengine/worker"
)

func main() {
	logger := log.New(os.Stdout, "ENGINE: ", log.Ldate|log.Ltime|log.Lshortfile)

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(5 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	st := store.New(config.DB)
	q := queue.New(config.AppConfig.Redis)
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := worker.NewCampaignScheduler(st, q)
	scheduler.Tick = time.Duration(config.AppConfig.SchedulerIntervalSeconds) * time.Second

	warmupEngine := worker.NewWarmupEngine(st, q)
	warmupEngine.Tick = time.Duration(config.AppConfig.WarmupIntervalSeconds) * time.Second

	healthMonitor := worker.NewHealthMonitor(st, q)
	healthMonitor.ScoreTick = time.Duration(config.AppConfig.HealthMonitorIntervalSeconds) * time.Second
	healthMonitor.ResetTick = time.Duration(config.AppConfig.DailyResetIntervalSeconds) * time.Second

	sendWorker := worker.NewSendWorker(st, q)
	bounceWorker := worker.NewBounceWorker(st, q)
	replyWorker := worker.NewReplyWorker(st, nil)
	variantShifter := worker.NewVariantShifter(st)

	go scheduler.Start(ctx)
	go warmupEngine.Start(ctx)
	go healthMonitor.Start(ctx)
	go sendWorker.Start(ctx)
	go bounceWorker.Start(ctx)
	go replyWorker.Start(ctx)
	go variantShifter.Start(ctx)

	app := fiber.New()
	app.Use(cors.New())
	routes.SetupRoutes(app, routes.NewHandler(st, q, replyWorker))

	go func() {
		logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
		if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting new work, let in-flight jobs
	// finish up to the grace deadline, then close the queue handle (the DB
	// pool is left to process exit).
	<-ctx.Done()
	logger.Println("Shutdown signal received, draining...")

	grace := time.Duration(config.AppConfig.ShutdownGraceSeconds) * time.Second
	if err := app.ShutdownWithTimeout(grace); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	time.Sleep(grace)
	logger.Println("Workers drained, exiting")
}
