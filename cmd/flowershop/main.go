package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/cart"
	"github.com/Paul-Karonji/framel-sub000/internal/catalog"
	"github.com/Paul-Karonji/framel-sub000/internal/config"
	"github.com/Paul-Karonji/framel-sub000/internal/db"
	"github.com/Paul-Karonji/framel-sub000/internal/events"
	httpapi "github.com/Paul-Karonji/framel-sub000/internal/http"
	"github.com/Paul-Karonji/framel-sub000/internal/order"
	"github.com/Paul-Karonji/framel-sub000/internal/payment"
	"github.com/Paul-Karonji/framel-sub000/internal/payment/mpesa"
	"github.com/Paul-Karonji/framel-sub000/internal/sequence"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := db.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	rabbitConn := events.MustDial(cfg.RabbitURL, logger)
	defer rabbitConn.Close()

	publisher, err := events.NewPublisher(rabbitConn)
	if err != nil {
		logger.Fatalf("rabbitmq publisher: %v", err)
	}
	defer publisher.Close()

	productRepo := catalog.NewPostgresRepository(pool)
	cartRepo := cart.NewRepository(pool)
	orderRepo := order.NewRepository(pool, sequence.NewRepository())

	cartSvc := cart.NewService(cartRepo, productRepo, cfg.DeliveryFee, logger)
	orderSvc := order.NewService(orderRepo, cartRepo, publisher, cfg.DeliveryFee, cfg.OrderCodePrefix, logger)

	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Timeout:        cfg.Mpesa.Timeout,
	})
	paymentSvc := payment.NewService(gateway, orderSvc, logger)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartSvc),
		httpapi.NewOrderHandler(orderSvc),
		httpapi.NewPaymentHandler(paymentSvc, logger),
		httpapi.NewCatalogHandler(productRepo),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Infof("flowershop listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
