package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/application"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/auction/infra/httpapi"
	"github.com/maverick16108/atlas/internal/auction/infra/kafka"
	redisinfra "github.com/maverick16108/atlas/internal/auction/infra/redis"
	"github.com/maverick16108/atlas/internal/auction/infra/repository/memory"
	"github.com/maverick16108/atlas/internal/auction/infra/repository/postgres"
	auctionws "github.com/maverick16108/atlas/internal/auction/infra/websocket"
	"github.com/maverick16108/atlas/internal/shared/clock"
	"github.com/maverick16108/atlas/internal/shared/config"
	"github.com/maverick16108/atlas/internal/shared/db"
	"github.com/maverick16108/atlas/internal/shared/db/migrations"
	"github.com/maverick16108/atlas/internal/shared/eventbus"
	"github.com/maverick16108/atlas/internal/shared/httpserver"
	"github.com/maverick16108/atlas/internal/shared/lock"
	"github.com/maverick16108/atlas/internal/shared/logger"
	"github.com/maverick16108/atlas/internal/shared/websocket"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
	userpostgres "github.com/maverick16108/atlas/internal/user/infra/repository/postgres"
	"go.uber.org/zap"
)

// reminderTTL outlives any auction's lead time so a restart never re-sends a reminder.
const reminderTTL = 48 * time.Hour

type repositories struct {
	tx           domain.Transactor
	auctions     domain.AuctionRepository
	bids         domain.BidRepository
	offers       domain.OfferRepository
	participants domain.ParticipantRepository
	users        userdomain.UserRepository
	close        func()
}

func main() {
	logger := logger.GetLogger()
	defer logger.Sync()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting atlas auction server...", zap.String("db_driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer repos.close()

	var (
		locker    domain.TickLocker
		reminders domain.ReminderLedger = memory.NewReminderLedger()
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Redis ping failed", zap.Error(err))
		}
		locker = lock.NewRedisLock(rdb, "auction:lifecycle:tick", cfg.Lifecycle.LockTTL)
		reminders = redisinfra.NewReminderLedger(rdb, reminderTTL)
		logger.Info("Redis tick lock and reminder ledger enabled", zap.String("addr", cfg.Redis.Addr))
	}

	hub := websocket.NewHub()
	sinks := []eventbus.Sink[domain.Event]{auctionws.NewNotifier(hub)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		sinks = append(sinks, producer)
		logger.Info("Kafka event sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	bus := eventbus.New[domain.Event](cfg.Events.BufferSize, sinks...)

	clk := clock.New()
	settle := application.NewSettleAuctionUseCase(repos.auctions, repos.bids, clk, bus)
	service := application.NewAuctionService(application.UseCases{
		CreateAuction:   application.NewCreateAuctionUseCase(repos.auctions, clk),
		SetParticipants: application.NewSetParticipantsUseCase(repos.tx, repos.auctions, repos.participants),
		ChangeStatus:    application.NewChangeStatusUseCase(repos.auctions, clk, bus, settle),
		PlaceBid:        application.NewPlaceBidUseCase(repos.tx, repos.auctions, repos.bids, repos.participants, repos.users, clk, bus),
		SubmitOffer:     application.NewSubmitOfferUseCase(repos.auctions, repos.offers, repos.participants, repos.users, clk, bus),
		GetAuctionState: application.NewGetAuctionStateUseCase(repos.auctions, repos.bids, repos.offers, repos.participants),
	})
	transitioner := application.NewTransitioner(repos.auctions, clk, bus, locker, reminders, cfg.Lifecycle.Interval)

	var wg sync.WaitGroup
	busCtx, stopBus := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.Run(busCtx)
	}()
	shutdownBus := func() {
		stopBus()
		wg.Wait()
		if n := bus.Dropped(); n > 0 {
			logger.Warn("Events dropped on full queue", zap.Int64("dropped", n))
		}
	}

	if cfg.Lifecycle.Once {
		report, err := transitioner.Tick(ctx)
		shutdownBus()
		logger.Info("Lifecycle tick done",
			zap.Int("applied", len(report.Applied)),
			zap.Int("lost", report.Lost),
			zap.Int("failed", report.Failed),
			zap.Int("reminded", report.Reminded),
			zap.Bool("skipped", report.Skipped),
		)
		if err != nil {
			logger.Error("Lifecycle tick finished with errors", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	go hub.Run(ctx)

	server := httpserver.NewServer()
	wsHandler := auctionws.NewAuctionWSHandler(service, hub)
	wsHandler.RegisterRoutes(ctx, server.App())
	go wsHandler.ListenForMessages(ctx)
	httpapi.NewAuctionHandler(service).RegisterRoutes(server.App())

	go func() {
		if err := transitioner.Run(ctx); err != nil {
			logger.Error("Lifecycle transitioner failed", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
		stop()
	}

	shutdownBus()
	logger.Info("Server stopped")
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repositories, error) {
	if cfg.Driver == "memory" {
		store := memory.NewStore()
		seedDemoUsers(store)
		return &repositories{
			tx:           store,
			auctions:     memory.NewAuctionRepository(store),
			bids:         memory.NewBidRepository(store),
			offers:       memory.NewOfferRepository(store),
			participants: memory.NewParticipantRepository(store),
			users:        memory.NewUserRepository(store),
			close:        func() {},
		}, nil
	}

	if cfg.Migrate {
		log := logger.GetLogger()
		log.Info("Running database migrations...")
		if err := migrations.RunMigrations(cfg); err != nil {
			return nil, err
		}
		log.Info("Database migrations completed successfully.")
	}

	pool, err := db.GetPostgresDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &repositories{
		tx:           db.NewTxManager(pool),
		auctions:     postgres.NewAuctionRepository(pool),
		bids:         postgres.NewBidRepository(pool),
		offers:       postgres.NewOfferRepository(pool),
		participants: postgres.NewParticipantRepository(pool),
		users:        userpostgres.NewUserRepository(pool),
		close:        pool.Close,
	}, nil
}

// seedDemoUsers gives a memory-backed dev run one regular and one GPB bidder.
func seedDemoUsers(store *memory.Store) {
	log := logger.GetLogger()
	for _, u := range []*userdomain.User{
		{ID: uuid.New(), Name: "demo bidder", IsGPB: false},
		{ID: uuid.New(), Name: "demo gpb", IsGPB: true},
	} {
		store.AddUser(u)
		log.Info("Seeded demo user", zap.String("userID", u.ID.String()), zap.String("name", u.Name), zap.Bool("isGPB", u.IsGPB))
	}
}
