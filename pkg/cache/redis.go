package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"langlearn-server/internal/models"
)

const (
	quizTTL            = 24 * time.Hour
	LoginFailureTTL    = 15 * time.Minute
	quizKeyPrefix      = "quiz:"
	loginFailurePrefix = "login_fail:"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func quizKey(id uint) string {
	return fmt.Sprintf("%s%d", quizKeyPrefix, id)
}

// SetQuiz stores a quiz together with its questions and options.
func (c *RedisCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, quizTTL).Err()
}

func (c *RedisCache) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *RedisCache) DeleteQuiz(ctx context.Context, id uint) error {
	return c.client.Del(ctx, quizKey(id)).Err()
}

func loginKey(email string) string {
	return loginFailurePrefix + strings.ToLower(strings.TrimSpace(email))
}

func (c *RedisCache) LoginFailures(ctx context.Context, email string) (int64, error) {
	n, err := c.client.Get(ctx, loginKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RecordLoginFailure increments the counter; the window starts at the first failure.
func (c *RedisCache) RecordLoginFailure(ctx context.Context, email string) (int64, error) {
	key := loginKey(email)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, LoginFailureTTL).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *RedisCache) ResetLoginFailures(ctx context.Context, email string) error {
	return c.client.Del(ctx, loginKey(email)).Err()
}
