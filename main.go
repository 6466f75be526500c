package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"auctionhouse/internal/archiver"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/config"
	"auctionhouse/internal/database/db_client"
	"auctionhouse/internal/http/adminhandler"
	"auctionhouse/internal/http/bidhandler"
	"auctionhouse/internal/http/http_server"
	"auctionhouse/internal/http/orderhandler"
	"auctionhouse/internal/http/producthandler"
	"auctionhouse/internal/notify"
	"auctionhouse/internal/payments"
	"auctionhouse/internal/redis/redis_client"
	"auctionhouse/internal/services/admin"
	"auctionhouse/internal/services/bidding"
	"auctionhouse/internal/services/listing"
	"auctionhouse/internal/services/settlement"
	"auctionhouse/internal/store"
	"auctionhouse/internal/sweeper"
	"auctionhouse/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (settlement locks + event fan-out)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres archive
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()
	if err := db_client.Migrate(ctx, pgDb); err != nil {
		Log.Fatal("pg-migrate", zap.Error(err))
	}

	// 5. Stores, collaborators, services
	clk := clock.System()
	listings := store.NewMemoryListings()
	ledger := store.NewMemoryLedger()
	orders := store.NewMemoryOrders()
	sink := notify.NewRedisSink(redisClient)

	listingSvc := listing.NewListingService(listings, ledger, clk, cfg.DefaultMinIncrement)
	biddingSvc := bidding.NewBiddingService(listings, ledger, sink, clk)
	settlementSvc := settlement.NewSettlementService(listings, ledger, orders, redisClient, payments.GatewayStub{}, sink, clk)
	adminSvc := admin.NewAdminService(listings, ledger, sink, clk)

	// 6. Background: lifecycle sweep + Postgres mirror
	sweeper.New(listingSvc, settlementSvc, orders, clk).Run(ctx, cfg.SweepInterval)
	archiver.Run(ctx, pgDb, listings, ledger, orders, cfg.ArchiveInterval)

	// 7. WebSockets hub + Redis fan-out
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient, listingSvc, biddingSvc)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, http_server.Handlers{
		Products: producthandler.New(listingSvc),
		Bids:     bidhandler.New(biddingSvc),
		Orders:   orderhandler.New(settlementSvc),
		Admin:    adminhandler.New(adminSvc),
		WsSrv:    wsSrv,
	})
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
