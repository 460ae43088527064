package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"StockSentinel/internal/model"
)

// RedisConfig selects the server and key namespace.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisRepository stores each history as CSV bytes under <prefix>:history:<code>
// and tracks known codes in the <prefix>:codes set.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository connects and pings the server.
func NewRedisRepository(ctx context.Context, cfg RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "stocksentinel"
	}
	zap.L().Info("redis store opened", zap.String("addr", cfg.Addr), zap.String("prefix", prefix))
	return &RedisRepository{client: client, prefix: prefix}, nil
}

func (r *RedisRepository) historyKey(code string) string { return r.prefix + ":history:" + code }
func (r *RedisRepository) codesKey() string              { return r.prefix + ":codes" }

func (r *RedisRepository) Load(ctx context.Context, code string) (model.History, bool, error) {
	data, err := r.client.Get(ctx, r.historyKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.History{}, false, nil
	}
	if err != nil {
		return model.History{}, false, fmt.Errorf("get %s: %w", code, err)
	}
	h, err := decodeHistory(data)
	if err != nil {
		return model.History{}, false, fmt.Errorf("decode %s: %w", code, err)
	}
	return h, len(h.Bars) > 0, nil
}

func (r *RedisRepository) Save(ctx context.Context, code string, h model.History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return fmt.Errorf("encode %s: %w", code, err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.historyKey(code), data, 0)
	pipe.SAdd(ctx, r.codesKey(), code)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save %s: %w", code, err)
	}
	return nil
}

func (r *RedisRepository) Codes(ctx context.Context) ([]string, error) {
	codes, err := r.client.SMembers(ctx, r.codesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
