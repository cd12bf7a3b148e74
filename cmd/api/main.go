package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront-api/handlers"
	"storefront-api/internal/auth"
	"storefront-api/internal/cart"
	"storefront-api/internal/categories"
	"storefront-api/internal/email"
	"storefront-api/internal/orders"
	"storefront-api/internal/products"
	"storefront-api/internal/stores/kafka"
	"storefront-api/internal/stores/postgres"
	"storefront-api/internal/users"
	"storefront-api/pkg/logkey"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", slog.String(logkey.ERROR, err.Error()))
	}

	prefix := os.Getenv("SERVICE_ENDPOINT_PREFIX")
	if prefix == "" {
		prefix = "/v1"
	}

	keys, err := loadKeys()
	if err != nil {
		return err
	}

	db, err := postgres.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	uConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	pConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	catConf, err := categories.NewConf(db)
	if err != nil {
		return err
	}
	oConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	cartPersister, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	cartStore, err := cart.NewStore(cartPersister, nil)
	if err != nil {
		return err
	}

	mailer, err := email.NewConf(
		os.Getenv("SMTP_HOST"), os.Getenv("SMTP_PORT"),
		os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"),
		os.Getenv("SMTP_FROM"),
	)
	if err != nil {
		// The confirmation mail is best-effort; run without it.
		slog.Warn("email disabled", slog.String(logkey.ERROR, err.Error()))
		mailer = nil
	}

	cfg := handlers.Config{
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:    os.Getenv("CHECKOUT_SUCCESS_URL"),
		CancelURL:     os.Getenv("CHECKOUT_CANCEL_URL"),
	}
	if cfg.WebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is not set")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return errors.New("CHECKOUT_SUCCESS_URL and CHECKOUT_CANCEL_URL must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var producer handlers.Producer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		brokerList := strings.Split(brokers, ",")
		kConf, err := kafka.NewConf(brokerList)
		if err != nil {
			return err
		}
		defer kConf.Close()
		producer = kConf

		go func() {
			if err := kafka.RunStockConsumer(ctx, brokerList, pConf); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("stock consumer stopped", slog.String(logkey.ERROR, err.Error()))
			}
		}()
	} else {
		slog.Warn("KAFKA_BROKERS not set, stock settlement disabled")
	}

	var mailerDep handlers.Mailer
	if mailer != nil {
		mailerDep = mailer
	}

	h := handlers.NewHandler(uConf, pConf, catConf, cartStore, oConf, producer, mailerDep, keys, cfg)
	r := handlers.API(prefix, keys, h)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return srv.Close()
		}
	}
	return nil
}

func loadKeys() (*auth.Keys, error) {
	privatePEM, err := os.ReadFile(os.Getenv("AUTH_PRIVATE_KEY_FILE"))
	if err != nil {
		return nil, errors.New("AUTH_PRIVATE_KEY_FILE is not readable")
	}
	publicPEM, err := os.ReadFile(os.Getenv("AUTH_PUBLIC_KEY_FILE"))
	if err != nil {
		return nil, errors.New("AUTH_PUBLIC_KEY_FILE is not readable")
	}
	return auth.NewKeys(privatePEM, publicPEM)
}
