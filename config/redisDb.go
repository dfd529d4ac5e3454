package config

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis only backs the optional request rate limiter. Reconciliation runs
// never touch it.
var rdb atomic.Pointer[redis.Client]

func GetRedisDB() *redis.Client {
	return rdb.Load()
}

func RedisAddress() string {
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// ConnectRedisWithRetry connects and sets the global Redis client.
// Call this from main() AFTER the HTTP server is listening; it gives up once
// ctx is done so a missing Redis never blocks shutdown.
func ConnectRedisWithRetry(ctx context.Context) {
	logger := GetLogger()
	redisAddr := RedisAddress()

	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: "",
			DB:       0, // use default DB
			PoolSize: 20,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb.Store(client)
			logger.WithFields(logrus.Fields{
				"field":   "redis",
				"attempt": attempt,
				"addr":    redisAddr,
			}).Info("connected to redis")
			return
		}
		_ = client.Close()

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "redis",
			"attempt": attempt,
			"addr":    redisAddr,
		}).Warn("failed to connect redis; retrying in " + sleep.String() + ": " + err.Error())

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// CloseRedis is best-effort.
func CloseRedis() {
	if client := rdb.Swap(nil); client != nil {
		_ = client.Close()
	}
}
