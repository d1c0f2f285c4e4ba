package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/mduc/storefront-backend/config"
	"github.com/mduc/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// BlacklistToken marks a token as revoked until its natural expiry.
// Logout writes here; the auth middleware consults it on every request.
func BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	if client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	key := fmt.Sprintf("blacklist:%s", token)
	if err := client.Set(ctx, key, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}

	logger.Debug("Token successfully blacklisted", map[string]interface{}{
		"expiry": expiry.String(),
	})
	return nil
}

// IsTokenBlacklisted checks if a token has been revoked.
// When Redis is not configured the check degrades to "not revoked".
func IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if client == nil {
		return false, nil
	}

	key := fmt.Sprintf("blacklist:%s", token)
	_, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}
	return true, nil
}
