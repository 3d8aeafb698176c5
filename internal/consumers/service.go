package consumers

import (
	"context"
	"log/slog"

	"skylane/internal/config"
	"skylane/internal/database"
	"skylane/internal/messaging"
	"skylane/internal/models"
	"skylane/internal/repository"
	"skylane/internal/search"
)

// ConsumerService runs the durable queue subscribers that archive workflow
// events into Postgres and feed the suggestion index.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

const queueGroup = "archivers"

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	repos := repository.NewRepositories(db)

	// The index is optional. Without it flight.searched events are only
	// acknowledged, and suggestions fall back to the airline API.
	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		slog.Warn("Elasticsearch unavailable, flight indexing disabled", "error", err)
		esClient = nil
	}

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: NewHandlers(repos, esClient),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.EventCheckinStarted, queueGroup, cs.handlers.HandleCheckinStarted); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventBookingCreated, queueGroup, cs.handlers.HandleBookingCreated); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventPaymentInitiated, queueGroup, cs.handlers.HandlePaymentInitiated); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventPaymentCompleted, queueGroup, cs.handlers.HandlePaymentCompleted); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventPaymentFailed, queueGroup, cs.handlers.HandlePaymentFailed); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventSeatsPersisted, queueGroup, cs.handlers.HandleSeatsPersisted); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventCheckinCompleted, queueGroup, cs.handlers.HandleCheckinCompleted); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventFlightSearched, queueGroup, cs.handlers.HandleFlightSearched); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
