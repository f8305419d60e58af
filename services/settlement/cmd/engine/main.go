package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/settlement/pkg/keylock"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	"github.com/muhammadchandra19/settlement/pkg/redis"
	app "github.com/muhammadchandra19/settlement/services/settlement/internal/app/engine"
	assetv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/asset/v1"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
	ledgerv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/ledger/v1"
	orderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order/v1"
	transactionv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/transaction/v1"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/memory"
	pgasset "github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/asset"
	pgledger "github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/ledger"
	pgorder "github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/order"
	pgtrade "github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/trade"
	pgtransaction "github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/transaction"
	balancecache "github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/balance-cache"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/dispatch"
	eventpublisher "github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/event-publisher"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/fill"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/ledger"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/matching"
	orderreader "github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/order-reader"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/usecase/validator"
	"github.com/muhammadchandra19/settlement/services/settlement/pkg/config"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = config.MustLoad()

	l, err := logger.NewLogger(logger.WithLoggingLevel(logger.ParseLevel(cfg.App.LogLevel)))
	if err != nil {
		panic(err)
	}
	log = l
}

// stores is the storage backend selected by APP_STORAGE.
type stores struct {
	orders     orderv1.OrderStore
	trades     orderv1.TradeStore
	ledger     ledgerv1.LedgerStore
	transactor transactionv1.Transactor
	registry   assetv1.Registry
	checkers   map[string]healthcheck.Checker
	close      func()
}

func openStores(ctx context.Context) (*stores, error) {
	if cfg.App.Storage == config.StorageMemory {
		store := memory.NewStore()
		log.Warn("Using in-memory storage, state is lost on restart")
		return &stores{
			orders:     store.Orders(),
			trades:     store.Trades(),
			ledger:     store.Ledger(),
			transactor: store,
			registry:   memory.NewAssetRegistry(cfg.App.QuotableAssets...),
			checkers:   map[string]healthcheck.Checker{},
			close:      func() {},
		}, nil
	}

	if cfg.Postgres.ApplicationName == "" {
		cfg.Postgres.ApplicationName = cfg.App.Name
	}
	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	assets := pgasset.NewRepository(db, log)
	for _, assetID := range cfg.App.QuotableAssets {
		if err := assets.Upsert(ctx, &assetv1.Asset{ID: assetID, Name: assetID, Quotable: true}); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to register quotable asset %s: %w", assetID, err)
		}
	}

	return &stores{
		orders:     pgorder.NewRepository(db, log),
		trades:     pgtrade.NewRepository(db, log),
		ledger:     pgledger.NewRepository(db, log),
		transactor: pgtransaction.NewTransactor(db),
		registry:   assets,
		checkers:   map[string]healthcheck.Checker{"postgres": postgresChecker(db)},
		close:      db.Close,
	}, nil
}

// postgresChecker reports pool health, falling back to a ping for clients
// that cannot describe themselves.
func postgresChecker(db postgresql.PostgreSQLClient) healthcheck.Checker {
	client, ok := db.(*postgresql.Client)
	if !ok {
		return db.Ping
	}
	return func(ctx context.Context) error {
		if health := client.CheckHealth(ctx); health.Status != "healthy" {
			return errors.New(health.Error)
		}
		return nil
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	st, err := openStores(ctx)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "open_storage"})
		return
	}
	defer st.close()

	dispatcher := dispatch.NewDispatcher(log, &dispatch.Options{
		QueueSize:      cfg.Dispatch.QueueSize,
		HandlerTimeout: cfg.Dispatch.HandlerTimeout,
	})

	var (
		cache      ledgerv1.BalanceCache
		publishers eventpublisher.Multi
		rclient    redis.Client
	)
	if cfg.App.RedisEnabled {
		rclient = redis.NewClient(log, &cfg.Redis)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
			return
		}
		cache = balancecache.NewCache(rclient, &cfg.Redis, log)
		publishers = append(publishers, eventpublisher.NewRedisPublisher(rclient, &cfg.Redis, log))
		st.checkers["redis"] = rclient.Ping
	}

	var kafkaPublisher *eventpublisher.KafkaPublisher
	if cfg.EventKafka.Enabled {
		kafkaPublisher = eventpublisher.NewKafkaPublisher(cfg.EventKafka, log)
		publishers = append(publishers, kafkaPublisher)
	}

	locks := keylock.New()
	ledgerUsecase := ledger.NewUsecase(st.ledger, st.orders, st.transactor, cache, locks, dispatcher, log)
	matchingUsecase := matching.NewUsecase(
		st.orders,
		st.trades,
		st.transactor,
		ledgerUsecase,
		validator.NewValidator(st.registry),
		fill.NewExecutor(st.orders, st.trades, st.ledger, st.transactor, log),
		locks,
		dispatcher,
		log,
		&matching.Options{
			MarketRemainder: matching.MarketRemainderPolicy(cfg.App.MarketRemainder),
			ListLimit:       matching.DefaultOptions().ListLimit,
		},
	)

	if len(publishers) > 0 {
		dispatcher.Register("publish", dispatch.Publish(eventv1.Publisher(publishers)))
	}
	if cache != nil {
		dispatcher.Register("refresh_balances", dispatch.RefreshBalances(ledgerUsecase))
	}
	if err := dispatcher.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_dispatcher"})
		return
	}

	engine := app.NewEngine(orderreader.NewReader(cfg.OrderKafka, log), matchingUsecase, ledgerUsecase, log)
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_engine"})
		return
	}

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HealthPort),
		Handler:           healthcheck.HealthCheck{Checkers: st.checkers}.Handler(http.NotFoundHandler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, logger.Field{Key: "action", Value: "serve_health"})
		}
	}()

	log.Info("Settlement engine started successfully",
		logger.Field{Key: "storage", Value: cfg.App.Storage},
		logger.Field{Key: "marketRemainder", Value: cfg.App.MarketRemainder},
		logger.Field{Key: "commandTopic", Value: cfg.OrderKafka.Topic},
	)

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_engine"})
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_dispatcher"})
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "close_event_publisher"})
		}
	}
	if rclient != nil {
		if err := rclient.Disconnect(shutdownCtx); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "disconnect_redis"})
		}
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_health_server"})
	}

	log.Info("Settlement engine shutdown complete",
		logger.Field{Key: "stats", Value: engine.GetStats()},
		logger.Field{Key: "droppedEvents", Value: dispatcher.Dropped()},
	)
	_ = log.Sync()
}
