package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/localdeals/coupon-engine/internal/config"
	"github.com/localdeals/coupon-engine/internal/handler"
	"github.com/localdeals/coupon-engine/internal/repository"
	"github.com/localdeals/coupon-engine/internal/service"
	"github.com/localdeals/coupon-engine/internal/validator"
	"github.com/localdeals/coupon-engine/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.ConnectRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Coupon Lifecycle Engine",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := validator.New()

	policy := service.Policy{
		CodeLength:          cfg.Coupon.CodeLength,
		CodeMaxAttempts:     cfg.Coupon.CodeMaxAttempts,
		MinWindowGap:        cfg.Coupon.MinWindowGap(),
		StartGrace:          cfg.Coupon.StartGrace(),
		DefaultLimitPerUser: cfg.Coupon.DefaultLimitPerUser,
	}

	defRepo := repository.NewDefinitionRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)
	couponService := service.NewCouponService(pool, defRepo, claimRepo, policy)
	couponHandler := handler.NewCouponHandler(couponService, validate)
	claimHandler := handler.NewClaimHandler(couponService, validate)
	redemptionHandler := handler.NewRedemptionHandler(couponService, validate)

	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	// Store-scoped coupon routes. "verify" must be registered before the
	// ":couponId" routes so it is not captured as a coupon id.
	stores := app.Group("/api/stores/:storeId")
	stores.Post("/coupons/verify", redemptionHandler.VerifyCode)
	stores.Post("/coupons", couponHandler.CreateCoupon)
	stores.Get("/coupons", couponHandler.ListCoupons)
	stores.Get("/coupons/:couponId", couponHandler.GetCoupon)
	stores.Post("/coupons/:couponId/stop", couponHandler.StopCoupon)
	stores.Post("/coupons/:couponId/claims", claimHandler.ClaimCoupon)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
