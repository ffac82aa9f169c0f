// Package rds opens go-redis clients from store config
package rds

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures a single-node redis client
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	// DialTimeout defaults to 5s
	DialTimeout time.Duration
}

// Open builds a client; go-redis connects lazily so errors surface on first command
func Open(cfg Config) *redis.Client {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})
}
