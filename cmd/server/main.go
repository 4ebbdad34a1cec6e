package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pizzeria/internal/commons"
	"pizzeria/internal/customer"
	"pizzeria/internal/delivery"
	"pizzeria/internal/discount"
	"pizzeria/internal/infrastructure/logger"
	"pizzeria/internal/infrastructure/mysql"
	"pizzeria/internal/infrastructure/redis"
	"pizzeria/internal/menu"
	"pizzeria/internal/notification"
	"pizzeria/internal/order"
	"pizzeria/internal/pricing"
	"pizzeria/internal/scheduler"
	"pizzeria/internal/server"
)

func main() {
	cfg, err := commons.LoadConfig(".env")
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	if cfg.Database.MigrateOnStart {
		if err := mysql.MigrateDatabase(cfg.Database, zapLogger); err != nil {
			zapLogger.Fatal("running migrations", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var registry scheduler.KeyRegistry
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("connecting to redis", zap.Error(err))
		}
		defer client.Close()
		registry = redis.NewKeyRegistry(client, instanceOwner())
		zapLogger.Info("redis job registry enabled", zap.String("addr", cfg.Redis.Addr))
	}

	jobs := scheduler.New(registry, zapLogger, scheduler.Options{
		JobTimeout: cfg.Scheduler.JobTimeout,
		KeyTTL:     cfg.Scheduler.KeyTTL,
	})

	pricer := pricing.NewEngine(cfg.Pricing.ProfitMargin, cfg.Pricing.VAT)

	menuModule := menu.NewModule(db, pricer, zapLogger)
	customerModule := customer.NewModule(db, zapLogger)
	discountModule := discount.NewModule(db, zapLogger)
	deliveryModule := delivery.NewModule(db, cfg.Order.RestaurantPostalCode, zapLogger)

	orderModule, err := order.NewModule(db, cfg, order.Dependencies{
		Customers: customerModule,
		Menu:      menuModule,
		Delivery:  deliveryModule,
		Discounts: discountModule,
		Pricer:    pricer,
		Scheduler: jobs,
		Notifier:  notification.NewLogNotifier(zapLogger),
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("building order module", zap.Error(err))
	}
	if _, err := orderModule.Lifecycle.ResumeTransitions(ctx); err != nil {
		zapLogger.Error("resuming order transitions", zap.Error(err))
	}

	router := server.NewRouter(server.Handlers{
		Menu:      menuModule.Controller,
		Customers: customerModule.Controller,
		Orders:    orderModule.Controller,
		Discounts: discountModule.Controller,
		DB:        db,
	}, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)
	if err := srv.Run(ctx); err != nil {
		zapLogger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("scheduler shutdown", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}

func instanceOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "pizzeria"
	}
	return host + "-" + uuid.NewString()
}
