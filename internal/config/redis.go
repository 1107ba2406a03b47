package config

// Redis backs the category response cache and the shared booking rate
// limiter.  Both degrade gracefully when the client is nil: the cache is
// skipped and the limiter falls back to per-process buckets.

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_ADDR           host:port shorthand
//	REDIS_HOST/REDIS_PORT take precedence over REDIS_ADDR when both are set
//	REDIS_PASSWORD       optional password
//	REDIS_DB             database number (default 0)
//	REDIS_TLS            "true" or "1" enables TLS
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		dbNum = n
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects and pings the server.  REDIS_ENABLED=false skips
// Redis entirely and yields (nil, nil).
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	if !envBool("REDIS_ENABLED", true) {
		return nil, nil
	}
	opts := RedisOptions()
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
