package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/hemolink/platform/pkg/auth"
	"github.com/hemolink/platform/pkg/common/config"
	"github.com/hemolink/platform/pkg/common/database"
	"github.com/hemolink/platform/pkg/common/kafka"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/custody"
	"github.com/hemolink/platform/pkg/disposition"
	"github.com/hemolink/platform/pkg/donors"
	"github.com/hemolink/platform/pkg/inventory"
	"github.com/hemolink/platform/pkg/lab"
	"github.com/hemolink/platform/pkg/logistics"
	"github.com/hemolink/platform/pkg/processing"
	"github.com/hemolink/platform/pkg/quarantine"
	"github.com/hemolink/platform/pkg/relationships"
	"github.com/hemolink/platform/pkg/reports"
	"github.com/hemolink/platform/pkg/requests"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	redisClient := database.GetRedis()

	producer := kafka.NewProducer("custody-events")
	defer producer.Close()

	custodyRepo := custody.NewRepository(db)
	if err := custodyRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate custody tables")
	}
	recorder := custody.NewRecorder(custodyRepo, producer)

	invRepo, err := inventory.NewRepository(db, custodyRepo)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate inventory tables")
	}
	temps := inventory.DefaultTempMatrix()
	if cfg.TempRequirements != "" {
		if temps, err = inventory.LoadTempMatrix(cfg.TempRequirements); err != nil {
			logger.Log.WithError(err).Fatal("failed to load temperature requirements")
		}
	}
	invSvc := inventory.NewService(invRepo, recorder, temps, cfg.ReservationTTL)

	quarantineRepo, err := quarantine.NewRepository(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate quarantine tables")
	}
	quarantineSvc := quarantine.NewService(quarantineRepo, invRepo)

	dispositionRepo, err := disposition.NewRepository(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate disposition tables")
	}
	dispositionSvc := disposition.NewService(dispositionRepo, invRepo)
	invSvc.SetDiscardStats(dispositionRepo)

	requestRepo, err := requests.NewRepository(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate request tables")
	}
	requestSvc := requests.NewService(requestRepo, invSvc, invRepo)

	shipmentRepo, err := logistics.NewRepository(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate shipment tables")
	}
	logisticsSvc := logistics.NewService(shipmentRepo, requestSvc)

	donorRepo, err := donors.NewRepository(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate donor tables")
	}
	donorSvc := donors.NewService(donorRepo, invRepo, recorder, cfg.WholeBloodShelf)

	labRepo, err := lab.NewRepository(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate lab tables")
	}
	labSvc := lab.NewService(labRepo, invRepo, quarantineSvc)

	processingSvc := processing.NewService(invRepo, recorder)
	relationshipSvc := relationships.NewService(invRepo, donorRepo, labRepo)
	reportSvc := reports.NewService(invRepo, donorRepo, requestRepo, quarantineRepo)

	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)

	router := mux.NewRouter()
	router.Use(auth.Recovery, auth.Logging)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Authenticate(sessions))

	inventory.NewHandler(invSvc).Register(api)
	quarantine.NewHandler(quarantineSvc).Register(api)
	disposition.NewHandler(dispositionSvc).Register(api)
	requests.NewHandler(requestSvc).Register(api)
	logistics.NewHandler(logisticsSvc).Register(api)
	donors.NewHandler(donorSvc).Register(api)
	lab.NewHandler(labSvc).Register(api)
	processing.NewHandler(processingSvc).Register(api)
	relationships.NewHandler(relationshipSvc).Register(api)
	reports.NewHandler(reportSvc).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Blood Bank API started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Expired reservations are reclaimed in the background; the admin
	// endpoint triggers the same sweep on demand.
	go func() {
		sweeper := models.UserContext{ID: "system", Role: models.RoleAdmin}
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				result, err := invSvc.AutoRelease(context.Background(), sweeper)
				if err != nil {
					logger.Log.WithError(err).Warn("reservation sweep failed")
					continue
				}
				if result.TotalReleased > 0 {
					logger.Log.WithField("released", result.TotalReleased).Info("expired reservations released")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Blood Bank API...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	database.CloseRedis()
	database.ClosePostgres()
	logger.Log.Info("Blood Bank API stopped")
}
