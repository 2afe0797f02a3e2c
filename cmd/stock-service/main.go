package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	analyticshandler "github.com/stockline/stockline-backend/internal/analytics/handler"
	analyticsrepo "github.com/stockline/stockline-backend/internal/analytics/repository"
	analyticsservice "github.com/stockline/stockline-backend/internal/analytics/service"
	billingevents "github.com/stockline/stockline-backend/internal/billing/events"
	billinghandler "github.com/stockline/stockline-backend/internal/billing/handler"
	"github.com/stockline/stockline-backend/internal/billing/invoice"
	billingrepo "github.com/stockline/stockline-backend/internal/billing/repository"
	billingservice "github.com/stockline/stockline-backend/internal/billing/service"
	cataloghandler "github.com/stockline/stockline-backend/internal/catalog/handler"
	catalogrepo "github.com/stockline/stockline-backend/internal/catalog/repository"
	catalogservice "github.com/stockline/stockline-backend/internal/catalog/service"
	forecasthandler "github.com/stockline/stockline-backend/internal/forecast/handler"
	forecastrepo "github.com/stockline/stockline-backend/internal/forecast/repository"
	forecastservice "github.com/stockline/stockline-backend/internal/forecast/service"
	ledgerevents "github.com/stockline/stockline-backend/internal/ledger/events"
	ledgerhandler "github.com/stockline/stockline-backend/internal/ledger/handler"
	ledgerrepo "github.com/stockline/stockline-backend/internal/ledger/repository"
	ledgerservice "github.com/stockline/stockline-backend/internal/ledger/service"
	warehousehandler "github.com/stockline/stockline-backend/internal/warehouse/handler"
	warehouserepo "github.com/stockline/stockline-backend/internal/warehouse/repository"
	warehouseservice "github.com/stockline/stockline-backend/internal/warehouse/service"
	"github.com/stockline/stockline-backend/pkg/config"
	"github.com/stockline/stockline-backend/pkg/database"
	"github.com/stockline/stockline-backend/pkg/httputil"
	"github.com/stockline/stockline-backend/pkg/logger"
	"github.com/stockline/stockline-backend/pkg/messaging"
)

const serviceName = "stock-service"

func main() {
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// The broker is optional in development; publishers degrade to no-ops.
	var (
		rmq              *messaging.RabbitMQ
		stockPublisher   *messaging.Publisher
		billingPublisher *messaging.Publisher
	)
	rmq, err = messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		if cfg.Server.Environment != config.EnvDevelopment {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled")
	} else {
		defer rmq.Close()

		stockPublisher, err = messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create stock event publisher")
		}
		billingPublisher, err = messaging.NewPublisher(rmq, messaging.ExchangeBillingEvents, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create billing event publisher")
		}
	}

	// Repositories
	ledgerRepository := ledgerrepo.NewRepository(db)
	alertRepository := ledgerrepo.NewAlertRepository(db)
	itemRepository := catalogrepo.NewItemRepository(db)
	categoryRepository := catalogrepo.NewCategoryRepository(db)
	warehouseRepository := warehouserepo.NewWarehouseRepository(db)
	billingRepository := billingrepo.NewRepository(db)
	analyticsRepository := analyticsrepo.NewRepository(db)
	forecastRepository := forecastrepo.NewRepository(db)

	// Event publishers
	stockEvents := ledgerevents.NewPublisher(stockPublisher)
	billEvents := billingevents.NewPublisher(billingPublisher)

	// Services
	engine := ledgerservice.NewEngine(
		ledgerRepository, itemRepository, warehouseRepository, alertRepository,
		stockEvents, log.WithComponent("ledger"),
	)
	catalogService := catalogservice.NewService(itemRepository, categoryRepository, log.WithComponent("catalog"))
	warehouseService := warehouseservice.NewService(warehouseRepository, ledgerRepository, log.WithComponent("warehouse"))
	billingService := billingservice.NewService(
		billingRepository, engine, itemRepository, warehouseRepository,
		invoice.NewTextRenderer(cfg.Invoice.OutputDir),
		billEvents, stockEvents, log.WithComponent("billing"),
	)
	analyticsService := analyticsservice.NewService(analyticsRepository, itemRepository, log.WithComponent("analytics"))
	forecastService := forecastservice.NewService(forecastRepository, itemRepository, ledgerRepository, log.WithComponent("forecast"))

	// Handlers
	ledgerHandler := ledgerhandler.NewHandler(engine, alertRepository, log)
	catalogHandler := cataloghandler.NewHandler(catalogService, log)
	warehouseHandler := warehousehandler.NewHandler(warehouseService, log)
	billingHandler := billinghandler.NewHandler(billingService, log)
	analyticsHandler := analyticshandler.NewHandler(analyticsService, log)
	forecastHandler := forecasthandler.NewHandler(forecastService, log)

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		health := map[string]interface{}{
			"service":  serviceName,
			"database": db.Health(req.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		catalogHandler.RegisterRoutes(r)
		warehouseHandler.RegisterRoutes(r)
		ledgerHandler.RegisterRoutes(r)
		billingHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
		forecastHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}
