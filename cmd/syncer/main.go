package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/retailops/erpsync/cmd/syncer/config"
	"github.com/retailops/erpsync/internal/allocator"
	"github.com/retailops/erpsync/internal/catalog"
	"github.com/retailops/erpsync/internal/decoder"
	"github.com/retailops/erpsync/internal/dedup"
	"github.com/retailops/erpsync/internal/erpclient"
	"github.com/retailops/erpsync/internal/fetcher"
	"github.com/retailops/erpsync/internal/handler"
	"github.com/retailops/erpsync/internal/platform/rabbitmq"
	"github.com/retailops/erpsync/internal/platform/storage"
	"github.com/retailops/erpsync/internal/progress"
	"github.com/retailops/erpsync/internal/sales"
	"github.com/retailops/erpsync/internal/upsert"
	"github.com/rs/zerolog"
)

const (
	// UserAgent is user agent header value used when fetching exchange documents.
	UserAgent = "erpsync/0.0.1"

	sweepEvery = time.Hour
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't parse env variables")
	}

	amqpConnection, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open RabbitMQ connection")
	}

	conn, err := rabbitmq.NewRabbitMQ(amqpConnection, cfg.RabbitMQ.Exchange)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open RabbitMQ connection")
	}

	pgDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open Postgres connection")
	}

	store := storage.NewPostgres(pgDB)

	erpClient := erpclient.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.ERP.BaseURL,
		cfg.ERP.APIKey,
		&logger,
		erpclient.WithAPIKeyHeader(cfg.ERP.APIKeyHeader),
		erpclient.WithMaxRetries(cfg.ERP.MaxRetries),
	)

	catalogSyncer := catalog.NewSyncer(
		fetcher.NewFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, UserAgent),
		&decoder.Decoder{},
		&decoder.TabularDecoder{},
		upsert.NewEngine(store),
		store,
		allocator.NewAllocator(store),
		&logger,
	)

	registry := progress.NewRegistry()

	salesSyncer := sales.NewOrchestrator(erpClient, store, registry, cfg.PageSize, &logger)

	han := handler.NewHandler(
		conn,
		registry,
		catalogSyncer,
		salesSyncer,
		dedup.NewRemediator(store, &logger),
		&logger,
	)

	// start consuming and handling messages
	err = han.Start(ctx, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't start consuming")
	}

	// evict finished tasks past the retention window
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := registry.Sweep(cfg.TaskRetention); evicted > 0 {
					logger.Debug().
						Int("evicted", evicted).
						Msg("swept finished sync tasks")
				}
			}
		}
	}()

	logger.Info().Msg("erp syncer up and running")

	// handle graceful shutdown and context cancellation
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-termChan:
		cancel()
	case <-ctx.Done():
	}

	logger.Info().Msg("graceful shutdown start")

	// wait for consumer to finish
	<-conn.Done()

	// close connections
	wg := sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := pgDB.Close(); err != nil {
			logger.Fatal().
				Err(err).
				Msg("can't close Postgres connection")
		}
	}()

	go func() {
		defer wg.Done()
		if err := amqpConnection.Close(); err != nil {
			logger.Fatal().
				Err(err).
				Msg("can't close RabbitMQ connection")
		}
	}()

	wg.Wait()

	logger.Info().Msg("graceful shutdown successful")
}
