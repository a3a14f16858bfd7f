package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"betpulse/config"
	"betpulse/controllers"
	"betpulse/database"
	"betpulse/models"
	"betpulse/routes"
	"betpulse/services"
	"betpulse/services/mpesa"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var requestCount uint64

var defaultGames = []models.GameDefinition{
	{Key: "lucky-four", Name: "Lucky Four", Description: "Pick one of four doors", Category: "instant", PayoutMultiplier: 3.8, Icon: "door"},
	{Key: "color-rush", Name: "Color Rush", Description: "Call the winning color", Category: "instant", PayoutMultiplier: 3.8, Icon: "palette"},
	{Key: "safari-spin", Name: "Safari Spin", Description: "Back one of four animals", Category: "instant", PayoutMultiplier: 3.6, Icon: "lion"},
	{Key: "cash-compass", Name: "Cash Compass", Description: "North, south, east or west", Category: "instant", PayoutMultiplier: 3.9, Icon: "compass"},
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	_ = godotenv.Load()

	config.NewLogger()
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load("config.yml")
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	logrus.Info("connecting to postgres...")
	if err := database.ConnectPostgres(cfg); err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	db := database.NewDatabase()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.EnsureSchema(ctx); err != nil {
		logrus.Fatalf("failed to apply schema: %v", err)
	}
	if err := db.SeedGames(ctx, defaultGames); err != nil {
		logrus.Fatalf("failed to seed games: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	provider := mpesa.New(cfg.Mpesa)
	go provider.RegisterC2BURLs(ctx)

	userService := services.NewUserService(db, cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	gameService := services.NewGameService(db, db, db)
	financeService := services.NewFinanceService(db, db, provider, cfg.Mpesa.CallbackBaseURL)
	footballService := services.NewFootballService(db)
	chatService := services.NewChatService(db, rdb)

	if err := userService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logrus.Fatalf("failed to bootstrap admin: %v", err)
	}

	controllers.InitUserService(userService)
	controllers.InitGameService(gameService)
	controllers.InitFinanceService(financeService)
	controllers.InitFootballService(footballService)
	controllers.InitChatService(chatService)

	app := fiber.New(fiber.Config{
		IdleTimeout:           60 * time.Second,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		AppName:               "BetPulse API",
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: false}))
	app.Use(fibercors.New(fibercors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type, Authorization",
		MaxAge:       300,
	}))

	// sampled request logging: slow requests always, the rest 1 in 100
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		count := atomic.AddUint64(&requestCount, 1)

		err := c.Next()

		duration := time.Since(start)
		if duration > 500*time.Millisecond || count%100 == 0 {
			logrus.WithFields(logrus.Fields{
				"method":   c.Method(),
				"path":     c.Path(),
				"duration": duration.Milliseconds(),
				"status":   c.Response().StatusCode(),
				"ip":       c.IP(),
			}).Info("request")
		}
		return err
	})

	routes.RegisterRoutes(app, cfg.JWT.Secret)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"service":   "BetPulse API",
			"timestamp": time.Now().Unix(),
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logrus.Infof("starting server on %s", addr)

	serverErr := make(chan error, 1)
	go func() {
		if err := app.Listen(addr); err != nil {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logrus.Info("shutting down server...")
	case err := <-serverErr:
		logrus.Errorf("server error: %v", err)
	}

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logrus.Errorf("error during shutdown: %v", err)
	}
	logrus.Info("server stopped")
}
