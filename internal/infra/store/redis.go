package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"askme/internal/domain"
)

const DefaultRedisKey = "askme:exchange"

// Redis keeps the exchange as a JSON value under a single key.
type Redis struct {
	client redis.UniversalClient
	key    string
}

func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Save(ctx context.Context, exchange domain.Exchange) error {
	data, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("marshaling exchange: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: saving exchange: %w", err)
	}
	return nil
}

func (r *Redis) Latest(ctx context.Context) (domain.Exchange, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Exchange{}, false, nil
	}
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("redis: loading exchange: %w", err)
	}

	var exchange domain.Exchange
	if err := json.Unmarshal(data, &exchange); err != nil {
		return domain.Exchange{}, false, fmt.Errorf("redis: decoding exchange: %w", err)
	}
	return exchange, true, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
