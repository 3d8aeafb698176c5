package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"skylane/internal/config"
	"skylane/internal/external"
	"skylane/internal/logger"
	"skylane/internal/models"
	"skylane/internal/search"
	"skylane/internal/service"
)

// One-shot warmer for the suggested-flights index. Pages through the airline
// catalog, normalizes each flight and upserts it into Elasticsearch. Safe to
// re-run: documents are keyed by flight id, and flights that no longer
// normalize are purged from the index.

const pageSize = 100

func main() {
	var maxPages int
	flag.IntVar(&maxPages, "max-pages", 50, "Maximum catalog pages to fetch")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting flight index synchronization")

	airlineClient := external.NewAirlineClient(cfg.Airline)

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	if err := syncFlights(context.Background(), airlineClient, esClient, maxPages); err != nil {
		logger.Fatal("Flight synchronization failed", "error", err)
	}

	slog.Info("Flight synchronization completed successfully")
}

func syncFlights(ctx context.Context, airlineClient *external.AirlineClient, esClient *search.ElasticsearchClient, maxPages int) error {
	start := time.Now()
	indexed := 0
	purged := 0

	for page := 1; page <= maxPages; page++ {
		flights, err := airlineClient.ListFlights(ctx, page, pageSize)
		if err != nil {
			return err
		}
		if len(flights) == 0 {
			break
		}

		for i := range flights {
			flightID := flights[i].FlightID

			doc, err := docForFlight(&flights[i])
			if err != nil {
				slog.Warn("Purging malformed flight from index", "flight_id", flightID, "error", err)
				if err := esClient.DeleteFlight(ctx, flightID); err != nil {
					slog.Error("Failed to purge flight", "flight_id", flightID, "error", err)
				} else {
					purged++
				}
				continue
			}

			if err := esClient.IndexFlight(ctx, doc); err != nil {
				return err
			}
			indexed++
		}

		slog.Info("Indexed catalog page", "page", page, "flights", len(flights))

		if len(flights) < pageSize {
			break
		}
	}

	slog.Info("Flight synchronization finished",
		"indexed", indexed,
		"purged", purged,
		"duration", time.Since(start).String())

	return nil
}

func docForFlight(flight *models.Flight) (*search.FlightDoc, error) {
	view, err := service.Normalize(flight)
	if err != nil {
		return nil, err
	}
	return search.DocFromView(view)
}
