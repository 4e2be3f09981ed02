package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv" // Loads .env files in development
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/config"
	"github.com/iliyamo/hold-a-spot/internal/database"
	"github.com/iliyamo/hold-a-spot/internal/handler"
	"github.com/iliyamo/hold-a-spot/internal/middleware"
	"github.com/iliyamo/hold-a-spot/internal/queue"
	"github.com/iliyamo/hold-a-spot/internal/repository"
	"github.com/iliyamo/hold-a-spot/internal/router"
)

func main() {
	// Load a .env file if present; real deployments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis is optional: a nil client disables rate limiting and catalog
	// caching without affecting correctness.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	catalog := repository.NewCatalogRepo(db, rdb, cfg.CacheTTL)
	reservations := repository.NewReservationRepo(db)

	// The audit consumer tails the broker in the background, turning
	// reservation and credit events into an append-only log.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	if cfg.RateLimitEnabled {
		e.Use(middleware.RateLimit(rdb, cfg.RateLimitPerMinute))
	}

	router.RegisterRoutes(e)
	router.RegisterUsers(e, handler.NewUserHandler(users, reservations))
	router.RegisterCatalog(e, handler.NewCatalogHandler(catalog))
	router.RegisterReservations(e, handler.NewReservationHandler(users, catalog, reservations))
	router.RegisterCredits(e, handler.NewResetHandler(users, cfg.CronSecret))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
