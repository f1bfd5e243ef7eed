// Package storage provides the delivery ledger used to suppress duplicate queue deliveries.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Ledger records which message ids have already been handled.
type Ledger interface {
	Close() error
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// Options controls retention characteristics for concrete ledger implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration

	BBoltPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Ledger backends.
const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
	TypeRedis = "redis"
)

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
	defaultRedisPrefix     = "enricher:delivered:"
)

// NewLedger creates the configured ledger backend.
func NewLedger(typ string, opts Options) (Ledger, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return noopLedger{}, nil
	case TypeBBolt:
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt ledger requires a path")
		}
		ledger, err := openBolt(opts.BBoltPath, opts)
		if err != nil {
			return nil, err
		}
		return ledger, nil
	case TypeRedis:
		if strings.TrimSpace(opts.RedisAddr) == "" {
			return nil, fmt.Errorf("redis ledger requires an address")
		}
		return openRedis(opts)
	default:
		return nil, fmt.Errorf("unsupported ledger type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.RedisPrefix == "" {
		opts.RedisPrefix = defaultRedisPrefix
	}
	return opts
}

type noopLedger struct{}

func (noopLedger) Close() error                               { return nil }
func (noopLedger) Seen(context.Context, string) (bool, error) { return false, nil }
func (noopLedger) Mark(context.Context, string) error         { return nil }
