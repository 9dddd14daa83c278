package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

// RedisOptions configures the redis connection.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	Key         string
	PingTimeout time.Duration
}

// RedisStore keeps the collection as one JSON value under Key.
type RedisStore struct {
	client *redis.Client
	key    string
	log    logger.Logger
}

// NewRedisStore connects and pings once. No retry: a dead redis is reported
// to the caller straight away.
func NewRedisStore(ctx context.Context, opts RedisOptions, log logger.Logger) (*RedisStore, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Error("redis unavailable", logger.String("addr", opts.Addr), logger.Error(err))
		return nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}

	log.Info("connected to redis", logger.String("addr", opts.Addr), logger.String("key", opts.Key))
	return NewRedisStoreWithClient(client, opts.Key, log), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string, log logger.Logger) *RedisStore {
	return &RedisStore{client: client, key: key, log: log}
}

func (s *RedisStore) Load(ctx context.Context) ([]bookmark.Bookmark, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []bookmark.Bookmark{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	list, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("redis key %s: %w", s.key, err)
	}
	return list, nil
}

func (s *RedisStore) Replace(ctx context.Context, list []bookmark.Bookmark) error {
	data, err := encode(list)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	s.log.Debug("bookmarks saved", logger.String("key", s.key), logger.Int("count", len(list)))
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
