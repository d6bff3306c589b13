package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// opTimeout ограничивает каждую операцию с Redis, чтобы деградация
// кеша не тянула за собой время ответа API.
const opTimeout = 2 * time.Second

// CacheRepo реализует repository.CacheRepository поверх Redis.
// Используется для короткоживущих JSON-снимков (статистика).
type CacheRepo struct {
	client *redis.Client
}

// NewCacheRepo создает новый репозиторий кеша
func NewCacheRepo(client *redis.Client) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required for CacheRepo")
	}
	return &CacheRepo{client: client}, nil
}

// SetJSON сохраняет структуру в кеше в виде JSON
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %q: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON читает JSON из кеша в dest. Отсутствующий ключ —
// apperrors.ErrNotFound.
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete удаляет ключ из кеша
func (r *CacheRepo) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.client.Del(ctx, key).Err()
}
