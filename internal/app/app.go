package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/staymarket/order/internal/dal/postgres"
	"github.com/staymarket/order/internal/dal/rabbitmq"
	outboxrepo "github.com/staymarket/order/internal/dal/repositories/outbox/postgres"
	"github.com/staymarket/order/internal/jaeger"
	"github.com/staymarket/order/internal/notify"
	"github.com/staymarket/order/internal/service/services/ordersvc"
	httptransport "github.com/staymarket/order/internal/transport/http"
	outboxworker "github.com/staymarket/order/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	outboxWorker   *outboxworker.Worker
	hub            *notify.Hub
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	jaeger.MustSetup()

	postgresClient := postgres.MustNewClient()

	hub := notify.NewHub()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithNotifier(hub),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, hub)
	transport.RegisterRoutes()

	a := &App{
		orderSvc:       orderSvc,
		transport:      transport,
		postgresClient: postgresClient,
		hub:            hub,
	}

	if viper.GetBool("rabbitmq.enabled") {
		a.rabbitClient = rabbitmq.MustNewClient()
		if _, err := a.rabbitClient.DeclareQueue(rabbitmq.DeclareQueueConfig{
			Name:    viper.GetString("rabbitmq.queue"),
			Durable: true,
		}); err != nil {
			panic("Failed to declare order events queue: " + err.Error())
		}
		a.outboxWorker = outboxworker.NewWorker(
			outboxrepo.NewOutboxRepository(postgresClient.Pool()),
			a.rabbitClient,
		)
	}

	return a
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	if a.outboxWorker != nil {
		go a.outboxWorker.Start(workerCtx)
	}

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.rabbitClient != nil {
		if err := a.rabbitClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	slog.Info("Application shutdown complete")
}
