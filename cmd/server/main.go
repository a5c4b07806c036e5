package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-control/internal/config"
	"parking-control/internal/db"
	httpapi "parking-control/internal/http"
	"parking-control/internal/realtime"
	"parking-control/internal/repository/postgres"
	"parking-control/internal/service"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	log.Info().Str("host", cfg.DB.Host).Str("name", cfg.DB.Name).Msg("database ready")

	zoneRepo := postgres.NewZoneRepository(database)
	vehicleRepo := postgres.NewVehicleRepository(database)

	bus := realtime.NewBus(cfg.Parking.BusBuffer, log.With().Str("component", "bus").Logger())

	resolver := service.NewDefaultZoneResolver(zoneRepo, cfg.Parking.DefaultZone)
	admissions := service.NewAdmissionService(zoneRepo, vehicleRepo, resolver, bus,
		log.With().Str("component", "admission").Logger())
	zones := service.NewZoneService(zoneRepo, bus,
		log.With().Str("component", "zones").Logger())

	wsHandler := realtime.NewWebSocketHandler(bus, log.With().Str("component", "ws").Logger())
	handler := httpapi.NewHandler(admissions, zones, wsHandler, cfg,
		log.With().Str("component", "http").Logger())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.Register(router, httpapi.NewAuthMiddleware(cfg.Auth.JWTSecret, log))

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go runSweeper(sweepCtx, admissions, cfg.Parking, log.With().Str("component", "sweeper").Logger())

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	cancelSweep()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

// runSweeper periodically finalizes stale pending records and purges
// old finalized ones.
func runSweeper(ctx context.Context, admissions *service.AdmissionService, cfg config.ParkingConfig, log zerolog.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if n, err := admissions.FinalizeStale(sweepCtx, cfg.PendingMaxAge); err != nil {
			log.Error().Err(err).Msg("failed to finalize stale records")
		} else if n > 0 {
			log.Info().Int("finalized", n).Msg("finalized stale pending records")
		}
		if _, err := admissions.PurgeOldRecords(sweepCtx, cfg.PurgeAfter); err != nil {
			log.Error().Err(err).Msg("failed to purge old records")
		}
		cancel()
	}
}
