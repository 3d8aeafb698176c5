package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyClient backs two concerns: a short-lived cache of normalized flight
// search responses, and seat holds that fence concurrent check-in sessions
// off the same physical seat.
type ValkeyClient struct {
	client      *redis.Client
	searchTTL   time.Duration
	seatHoldTTL time.Duration
}

type Config struct {
	Addr           string
	Password       string
	SearchCacheTTL time.Duration
	SeatHoldTTL    time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.SearchCacheTTL == 0 {
		cfg.SearchCacheTTL = 60 * time.Second
	}
	if cfg.SeatHoldTTL == 0 {
		cfg.SeatHoldTTL = 15 * time.Minute
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client:      rdb,
		searchTTL:   cfg.SearchCacheTTL,
		seatHoldTTL: cfg.SeatHoldTTL,
	}, nil
}

func searchKey(departureCity, arrivalCity, flightDate string) string {
	return fmt.Sprintf("search:%s:%s:%s", departureCity, arrivalCity, flightDate)
}

// GetSearch returns the cached JSON body for a search, or redis.Nil miss as
// (nil, nil).
func (v *ValkeyClient) GetSearch(ctx context.Context, departureCity, arrivalCity, flightDate string) ([]byte, error) {
	body, err := v.client.Get(ctx, searchKey(departureCity, arrivalCity, flightDate)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return body, nil
}

// SetSearch stores a serialized search response under the route+date key.
func (v *ValkeyClient) SetSearch(ctx context.Context, departureCity, arrivalCity, flightDate string, body []byte) error {
	if err := v.client.Set(ctx, searchKey(departureCity, arrivalCity, flightDate), body, v.searchTTL).Err(); err != nil {
		return fmt.Errorf("cache store error: %w", err)
	}
	return nil
}

func seatHoldKey(flightID int64, seatID string) string {
	return fmt.Sprintf("seathold:%d:%s", flightID, seatID)
}

// AcquireSeatHold takes a TTL'd hold on one seat of one flight for a session.
// Returns false when another session already holds it. A session re-acquiring
// its own hold refreshes the TTL and succeeds.
func (v *ValkeyClient) AcquireSeatHold(ctx context.Context, flightID int64, seatID, sessionID string) (bool, error) {
	key := seatHoldKey(flightID, seatID)

	ok, err := v.client.SetNX(ctx, key, sessionID, v.seatHoldTTL).Result()
	if err != nil {
		return false, fmt.Errorf("seat hold error: %w", err)
	}
	if ok {
		return true, nil
	}

	holder, err := v.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			// Hold expired between SetNX and Get; retry once.
			ok, err = v.client.SetNX(ctx, key, sessionID, v.seatHoldTTL).Result()
			if err != nil {
				return false, fmt.Errorf("seat hold error: %w", err)
			}
			return ok, nil
		}
		return false, fmt.Errorf("seat hold lookup error: %w", err)
	}
	if holder == sessionID {
		v.client.Expire(ctx, key, v.seatHoldTTL)
		return true, nil
	}
	return false, nil
}

// ReleaseSeatHold drops a hold if this session owns it. Releasing a foreign or
// expired hold is a no-op.
func (v *ValkeyClient) ReleaseSeatHold(ctx context.Context, flightID int64, seatID, sessionID string) error {
	key := seatHoldKey(flightID, seatID)

	holder, err := v.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("seat hold lookup error: %w", err)
	}
	if holder != sessionID {
		return nil
	}
	if err := v.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("seat hold release error: %w", err)
	}
	return nil
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
