package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"wedlock-server/internal/ai/gemini"
	"wedlock-server/internal/logger"
	"wedlock-server/internal/matchmaking"
	"wedlock-server/internal/payments"
	"wedlock-server/internal/profile/mongostore"
	"wedlock-server/internal/secrets"
	"wedlock-server/internal/server"
)

const (
	defaultListenAddress = ":8080"
	defaultCollection    = "users"
	shutdownGrace        = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wedlock-server HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Mongo == nil || config.Mongo.URI == "" {
		logger.Fatal("mongo.uri is required")
	}

	logger.Info("starting the wedlock-server", zap.String("version", version))

	store, err := newStore(ctx, config.Mongo)
	if err != nil {
		logger.Fatal("connecting to the profile store", zap.Error(err))
	}

	ranker, err := newRanker(ctx, config, store, logger)
	if err != nil {
		logger.Fatal("building the ranking pipeline", zap.Error(err))
	}

	paymentSvc, err := newPaymentService(config.Payments, store, logger)
	if err != nil {
		logger.Fatal("building the payment service", zap.Error(err))
	}

	adminAuth, err := newAdminAuth(config.Admin)
	if err != nil {
		logger.Fatal("building admin auth", zap.Error(err))
	}

	addr := config.ListenAddress
	if addr == "" {
		addr = defaultListenAddress
	}

	api := server.New(store, ranker, paymentSvc, adminAuth, logger)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newStore(ctx context.Context, cfg *MongoConfig) (*mongostore.Store, error) {
	client, err := mongostore.Connect(ctx, cfg.URI)
	if err != nil {
		return nil, err
	}

	database := cfg.Database
	if database == "" {
		database = "wedlock"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}

	return mongostore.New(client.Database(database), collection), nil
}

func newRanker(ctx context.Context, config *Config, store *mongostore.Store, logger *zap.Logger) (*matchmaking.Ranker, error) {
	if config.AI == nil || config.AI.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}
	if provider := config.AI.Provider; provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", provider)
	}

	gcfg := config.AI.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", gcfg.Model),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	var scoreTimeout time.Duration
	concurrency := 0
	if config.Matching != nil {
		scoreTimeout = config.Matching.ScoreTimeout
		concurrency = config.Matching.Concurrency
	}

	scorer := matchmaking.NewScorer(generator, scoreTimeout, gcfg.MaxLogLength, logger)
	return matchmaking.NewRanker(store, scorer, concurrency, logger), nil
}

func newPaymentService(cfg *PaymentsConfig, store *mongostore.Store, logger *zap.Logger) (*payments.Service, error) {
	if cfg == nil {
		cfg = &PaymentsConfig{}
	}

	keyID, err := secrets.Load(secrets.Source{
		Name:  "razorpay key id",
		Value: cfg.KeyID,
		File:  cfg.KeyIDFile,
		Env:   "RAZORPAY_KEY_ID",
	})
	if err != nil {
		return nil, err
	}

	keySecret, err := secrets.Load(secrets.Source{
		Name:  "razorpay key secret",
		Value: cfg.KeySecret,
		File:  cfg.KeySecretFile,
		Env:   "RAZORPAY_KEY_SECRET",
	})
	if err != nil {
		return nil, err
	}

	return payments.New(keyID, keySecret, store, logger), nil
}

func newAdminAuth(cfg *AdminConfig) (*server.AdminAuth, error) {
	if cfg == nil {
		cfg = &AdminConfig{}
	}

	password, err := secrets.Load(secrets.Source{
		Name:  "admin password",
		Value: cfg.Password,
		File:  cfg.PasswordFile,
		Env:   "ADMIN_PASSWORD",
	})
	if err != nil {
		return nil, err
	}

	tokenSecret, err := secrets.Load(secrets.Source{
		Name:  "admin token secret",
		Value: cfg.TokenSecret,
		File:  cfg.TokenSecretFile,
		Env:   "ADMIN_TOKEN_SECRET",
	})
	if err != nil {
		return nil, err
	}

	return server.NewAdminAuth(password, tokenSecret, cfg.TokenTTL), nil
}
