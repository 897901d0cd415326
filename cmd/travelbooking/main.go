package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	appevents "travelbooking/internal/app/handlers/events"
	"travelbooking/internal/app/middleware"
	"travelbooking/internal/app/outbox"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/app/uow"
	"travelbooking/internal/app/workflow"
	"travelbooking/internal/infra/broker/kafka"
	"travelbooking/internal/infra/config"
	"travelbooking/internal/infra/db/mongo"
	"travelbooking/internal/infra/db/postgres"
	"travelbooking/internal/infra/fixtures"
	ginserver "travelbooking/internal/infra/http/gin"
	"travelbooking/internal/infra/inbox"
	"travelbooking/internal/infra/notify"
	"travelbooking/internal/infra/obs"
	infraoutbox "travelbooking/internal/infra/outbox"
	"travelbooking/internal/infra/pricing"
	"travelbooking/internal/infra/storage/memory"
	"travelbooking/internal/infra/storage/s3"
)

const serviceName = "travelbooking"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if cfg.UnitsFixtures != "" {
		if _, err := fixtures.Load(ctx, cfg.UnitsFixtures, app.store.seeder, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.UnitsFixtures)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox relay stopped", "error", err)
		}
	}()
	if app.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.consumer.Run(ctx, app.topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if app.consumer != nil {
			if err := app.consumer.Close(); err != nil {
				logger.Warn("consumer close failed", "error", err)
			}
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "env", cfg.Env)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	store    storeBackend
	worker   *infraoutbox.Worker
	consumer *kafka.Consumer
	topics   []string
	server   *http.Server
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storeBackend is everything the process needs from the selected store driver.
type storeBackend struct {
	factory     uow.UoWFactory
	seeder      fixtures.Seeder
	relay       infraoutbox.Store
	idempotency middleware.IdempotencyStore
	inbox       inbox.Store
	ping        obs.Check
	close       func()
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.store = store
	app.closers = append(app.closers, store.close)
	checks := map[string]obs.Check{"store": store.ping}

	engine, err := pricing.NewEngine(cfg.Fees, pricing.LoadClampConfig(cfg.ServiceFeeClamps, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}

	archiver, err := receiptArchiver(cfg, logger, checks)
	if err != nil {
		return nil, err
	}
	dispatcher := appevents.NewDispatcher(store.inbox, logger)
	(&appevents.NotificationHandler{Notifier: notify.LogNotifier{Logger: logger}}).Subscribe(dispatcher)
	(&appevents.ReceiptHandler{Archiver: archiver, Logger: logger}).Subscribe(dispatcher)
	for _, name := range dispatcher.Names() {
		topic := infraoutbox.TopicFor(cfg.KafkaTopicPrefix, name)
		if !slices.Contains(app.topics, topic) {
			app.topics = append(app.topics, topic)
		}
	}

	var producer infraoutbox.Producer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func() { _ = p.Close() })
		producer = p
		app.consumer, err = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, kafka.Dispatching{Dispatcher: dispatcher}, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
	} else {
		logger.Info("no kafka brokers configured, delivering events in process")
		producer = kafka.Loopback{Handler: kafka.Dispatching{Dispatcher: dispatcher}}
	}

	worker := infraoutbox.NewWorker(store.relay, producer)
	worker.Logger = logger
	worker.Interval = cfg.OutboxPollInterval
	worker.TopicPrefix = cfg.KafkaTopicPrefix
	worker.Source = serviceName
	worker.Backoff = cfg.RetryBackoff
	app.worker = worker

	wf, err := workflow.New(workflow.Deps{
		UoWFactory:  store.factory,
		Pricing:     engine,
		Idempotency: store.idempotency,
		Flusher:     worker,
		Authorizer:  policies.GuestOrAdmin{},
		Encoder:     outbox.JSONEventEncoder{},
		Logger:      logger,
		Retry:       middleware.RetryPolicy{Attempts: cfg.TxRetryAttempts, Backoff: 10 * time.Millisecond},
	})
	if err != nil {
		return nil, err
	}

	limiter, err := ginserver.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	tokens := ginserver.Tokens{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}
	app.server = ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks, Timeout: 2 * time.Second}, ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Workflow: wf, Logger: logger},
		Payment:        ginserver.PaymentHandler{Workflow: wf, Logger: logger},
		Availability:   ginserver.AvailabilityHandler{Reader: wf, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Tokens: tokens, Logger: logger}.Handle,
		RateLimit:      ginserver.RateLimit(limiter, logger),
	})
	return app, nil
}

// prepare runs setup steps against a freshly opened client and closes it when one fails.
func prepare(closeClient func(), steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			closeClient()
			return err
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storeBackend, error) {
	consumer := cfg.KafkaConsumerGroup
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storeBackend{}, fmt.Errorf("mongo: %w", err)
		}
		closeClient := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		}
		var idem *mongo.IdempotencyStore
		err = prepare(closeClient,
			func() error {
				if err := client.EnsureIndexes(ctx); err != nil {
					return fmt.Errorf("mongo indexes: %w", err)
				}
				return nil
			},
			func() (err error) {
				if idem, err = mongo.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
					return fmt.Errorf("mongo idempotency: %w", err)
				}
				return nil
			},
		)
		if err != nil {
			return storeBackend{}, err
		}
		logger.Info("mongo store ready", "database", cfg.MongoDB)
		return storeBackend{
			factory:     client.Factory(),
			seeder:      client,
			relay:       mongo.NewOutboxStore(client.DB),
			idempotency: idem,
			inbox:       inbox.NewMongoStore(client.DB, consumer),
			ping:        client.Ping,
			close:       closeClient,
		}, nil
	case config.DriverPostgres:
		client, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return storeBackend{}, err
		}
		if err := prepare(client.Close, func() error { return client.Migrate(logger) }); err != nil {
			return storeBackend{}, err
		}
		return storeBackend{
			factory:     client.Factory(),
			seeder:      client,
			relay:       postgres.NewOutboxStore(client.Pool),
			idempotency: postgres.NewIdempotencyStore(client.Pool, cfg.IdempotencyTTL),
			inbox:       inbox.NewPostgresStore(client.Pool, consumer),
			ping:        client.Ping,
			close:       client.Close,
		}, nil
	default:
		store := memory.NewStore()
		logger.Info("using in-memory store")
		return storeBackend{
			factory:     store.Factory(),
			seeder:      store,
			relay:       store,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:       inbox.NewMemory(),
			ping:        store.Ping,
			close:       func() {},
		}, nil
	}
}

// receiptArchiver uploads receipts to object storage when an endpoint is configured.
func receiptArchiver(cfg config.Config, logger *slog.Logger, checks map[string]obs.Check) (policies.ReceiptArchiver, error) {
	if cfg.S3Endpoint == "" {
		return memory.NewReceipts(), nil
	}
	client, err := s3.NewClient(s3.Options{
		Endpoint:  cfg.S3Endpoint,
		UseSSL:    cfg.S3UseSSL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.ReceiptsBucket,
		BaseURL:   cfg.S3PublicEndpoint,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	checks["object_storage"] = client.Ping
	return s3.ReceiptArchiver{Uploader: client}, nil
}
