package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-registration/internal/config"
	"github.com/iliyamo/hospital-registration/internal/database"
	"github.com/iliyamo/hospital-registration/internal/handler"
	"github.com/iliyamo/hospital-registration/internal/queue"
	"github.com/iliyamo/hospital-registration/internal/repository"
	"github.com/iliyamo/hospital-registration/internal/router"
	"github.com/iliyamo/hospital-registration/internal/service"
)

func main() {
	// Load a local .env when present; real deployments set the
	// environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// One bus for the whole process; the broker connection itself is
	// established lazily on first publish/subscribe and fails open.
	bus := queue.NewBus(queue.BusConfig{
		URL:              cfg.MQURL,
		ConnectRetries:   cfg.MQConnectRetries,
		ConnectBaseDelay: cfg.MQConnectDelay,
	})
	defer bus.Close()

	pools := repository.NewAvailabilityRepo(db)
	orders := repository.NewOrderRepo(db)
	payments := repository.NewPaymentRepo(db)
	notifications := repository.NewNotificationRepo(db)

	events := queue.NewOrderEvents(bus)
	bookingSvc := service.NewBookingService(db, pools, orders, events)
	paymentSvc := service.NewPaymentService(payments, orders)

	// Project order events into the notifications table. A disabled
	// bus turns this into a no-op and booking keeps working.
	projector := queue.NewNotificationConsumer(notifications)
	if err := projector.Run(context.Background(), bus); err != nil {
		log.Printf("notification consumer not started: %v", err)
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewRegistrationHandler(bookingSvc, paymentSvc, orders),
		handler.NewAvailabilityHandler(pools),
		handler.NewDoctorHandler(repository.NewDoctorRepo(db)),
		handler.NewPaymentHandler(paymentSvc, payments),
		cfg.JWTSecret,
		config.NewRedisClient(),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
