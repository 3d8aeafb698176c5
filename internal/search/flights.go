package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"skylane/internal/models"
)

// ElasticsearchClient indexes normalized flights and answers suggestion
// queries filtered by budget and departure window.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	index  string
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// FlightDoc is the indexed representation of one flight. DepartureHour is
// denormalized so window filters stay cheap range queries.
type FlightDoc struct {
	ID            int64     `json:"id"`
	FlightNumber  string    `json:"flight_number"`
	Airline       string    `json:"airline"`
	DepartureCity string    `json:"departure_city"`
	ArrivalCity   string    `json:"arrival_city"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	DepartureHour int       `json:"departure_hour"`
	EconomyPrice  int64     `json:"economy_price"`
	BusinessPrice int64     `json:"business_price"`
	SeatsLeft     int       `json:"seats_left"`
	IndexedAt     time.Time `json:"indexed_at"`
}

// SuggestQuery filters the flight index. Window is one of all, morning
// (00-12), afternoon (12-18), evening (18-24).
type SuggestQuery struct {
	DepartureCity string
	ArrivalCity   string
	MinPrice      int64
	MaxPrice      int64
	Window        string
	Limit         int
}

// DocFromView converts a normalized flight into its indexable document. The
// raw RFC3339 timestamps must parse; a view that fails here is not indexed.
func DocFromView(view *models.FlightView) (*FlightDoc, error) {
	departure, err := time.Parse(time.RFC3339, view.DepartureTimeRaw)
	if err != nil {
		return nil, fmt.Errorf("bad departure time %q: %w", view.DepartureTimeRaw, err)
	}
	arrival, err := time.Parse(time.RFC3339, view.ArrivalTimeRaw)
	if err != nil {
		return nil, fmt.Errorf("bad arrival time %q: %w", view.ArrivalTimeRaw, err)
	}

	return &FlightDoc{
		ID:            view.ID,
		FlightNumber:  view.FlightNumber,
		Airline:       view.Airline,
		DepartureCity: view.DepartureCity,
		ArrivalCity:   view.ArrivalCity,
		DepartureTime: departure,
		ArrivalTime:   arrival,
		EconomyPrice:  view.EconomyPrice,
		BusinessPrice: view.BusinessPrice,
		SeatsLeft:     view.SeatsLeft,
	}, nil
}

func NewElasticsearchClient(cfg Config) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		index:  cfg.Index,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "long",
				},
				"flight_number": map[string]interface{}{
					"type": "keyword",
				},
				"airline": map[string]interface{}{
					"type": "keyword",
				},
				"departure_city": map[string]interface{}{
					"type": "keyword",
				},
				"arrival_city": map[string]interface{}{
					"type": "keyword",
				},
				"departure_time": map[string]interface{}{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
				"arrival_time": map[string]interface{}{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
				"departure_hour": map[string]interface{}{
					"type": "integer",
				},
				"economy_price": map[string]interface{}{
					"type": "long",
				},
				"business_price": map[string]interface{}{
					"type": "long",
				},
				"seats_left": map[string]interface{}{
					"type": "integer",
				},
				"indexed_at": map[string]interface{}{
					"type": "date",
				},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.index,
		Body:  strings.NewReader(string(mappingJSON)),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.index)
	return nil
}

// IndexFlight upserts one flight document keyed by flight id.
func (c *ElasticsearchClient) IndexFlight(ctx context.Context, doc *FlightDoc) error {
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now()
	}
	doc.DepartureHour = doc.DepartureTime.Hour()

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal flight: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(doc.ID, 10),
		Body:       strings.NewReader(string(docJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index flight: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}
	return nil
}

// Suggest returns flights matching the budget and departure-window filters,
// cheapest first.
func (c *ElasticsearchClient) Suggest(ctx context.Context, q SuggestQuery) ([]FlightDoc, error) {
	size := q.Limit
	if size <= 0 {
		size = 10
	}

	searchRequest := map[string]interface{}{
		"query": buildSuggestQuery(q),
		"sort": []map[string]interface{}{
			{"economy_price": map[string]interface{}{"order": "asc"}},
			{"departure_time": map[string]interface{}{"order": "asc"}},
		},
		"size": size,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  strings.NewReader(string(searchJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source FlightDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]FlightDoc, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		docs[i] = hit.Source
	}
	return docs, nil
}

func buildSuggestQuery(q SuggestQuery) map[string]interface{} {
	mustQueries := []map[string]interface{}{}

	if q.DepartureCity != "" {
		mustQueries = append(mustQueries, map[string]interface{}{
			"term": map[string]interface{}{"departure_city": q.DepartureCity},
		})
	}
	if q.ArrivalCity != "" {
		mustQueries = append(mustQueries, map[string]interface{}{
			"term": map[string]interface{}{"arrival_city": q.ArrivalCity},
		})
	}

	if q.MinPrice > 0 || q.MaxPrice > 0 {
		priceRange := map[string]interface{}{}
		if q.MinPrice > 0 {
			priceRange["gte"] = q.MinPrice
		}
		if q.MaxPrice > 0 {
			priceRange["lte"] = q.MaxPrice
		}
		mustQueries = append(mustQueries, map[string]interface{}{
			"range": map[string]interface{}{"economy_price": priceRange},
		})
	}

	if hourRange, ok := windowHours(q.Window); ok {
		mustQueries = append(mustQueries, map[string]interface{}{
			"range": map[string]interface{}{"departure_hour": hourRange},
		})
	}

	if len(mustQueries) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": mustQueries,
		},
	}
}

func windowHours(window string) (map[string]interface{}, bool) {
	switch window {
	case "morning":
		return map[string]interface{}{"gte": 0, "lt": 12}, true
	case "afternoon":
		return map[string]interface{}{"gte": 12, "lt": 18}, true
	case "evening":
		return map[string]interface{}{"gte": 18, "lt": 24}, true
	default:
		return nil, false
	}
}

// DeleteFlight removes a flight document. Missing documents are fine.
func (c *ElasticsearchClient) DeleteFlight(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(id, 10),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete flight: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

// HealthCheck waits for at least yellow cluster health.
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}
	return nil
}
