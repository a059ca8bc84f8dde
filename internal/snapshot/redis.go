package snapshot

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"table-service/internal/domain"
)

const keyPrefix = "table-service:snapshot:"

// Store keeps one persisted snapshot per device id in Redis. Each client
// saves on every applied snapshot and loads once at startup.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) Save(ctx context.Context, deviceID string, tables domain.Tables) error {
	b, err := Encode(tables)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+deviceID, b, 0).Err()
}

// Load returns the device's last snapshot, or ok=false when the device has
// never saved one.
func (s *Store) Load(ctx context.Context, deviceID string) (domain.Tables, bool, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+deviceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tables, err := Decode(b)
	if err != nil {
		return nil, false, err
	}
	return tables, true, nil
}
