package server

import (
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/config"
	hrest "github.com/maobits/coban365-sub000/internal/handler/rest"
	publisher "github.com/maobits/coban365-sub000/internal/pub"
	"github.com/maobits/coban365-sub000/internal/repository"
	"github.com/maobits/coban365-sub000/internal/usecase"
)

// NewSettlementServer wires the engine and serves it over HTTP. Blocks until
// the server exits.
func NewSettlementServer(cfg config.AppConfig, logger *zap.Logger) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Kafka writer ---
	kafkaWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	defer kafkaWriter.Close()

	// --- Repositories ---
	bankRepo := repository.NewBankDebtRepo(dbpool)
	cashRepo := repository.NewCashRepo(dbpool)
	balanceRepo := repository.NewBalanceRepo(dbpool)
	commissionRepo := repository.NewCommissionRepo(dbpool)
	transactionRepo := repository.NewTransactionRepo(dbpool)
	thirdPartyRepo := repository.NewThirdPartyRepo(dbpool)

	// --- Publishers ---
	events := publisher.NewSettlementEventPublisher(kafkaWriter, rdb, logger)

	// --- Usecases ---
	settlementUC := usecase.NewSettlementUsecase(
		bankRepo,
		cashRepo,
		balanceRepo,
		commissionRepo,
		transactionRepo,
		thirdPartyRepo,
		events,
		logger,
	)
	referenceUC := usecase.NewReferenceUsecase(transactionRepo, thirdPartyRepo, rdb, logger)

	// --- REST handler ---
	settlementHandler := hrest.NewSettlementRestHandler(settlementUC, referenceUC, logger)

	router := NewRouter(settlementHandler, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Settlement HTTP server listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
