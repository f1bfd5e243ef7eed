package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltLedgerMarksAndExpires(t *testing.T) {
	ctx := context.Background()
	ledger, err := openBolt(filepath.Join(t.TempDir(), "nested", "ledger.db"), Options{
		TTL:             time.Second,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)
	defer ledger.Close()

	seen, err := ledger.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.Mark(ctx, "m1"))
	seen, err = ledger.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, seen)

	// force the sweep and let the entry expire
	ledger.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = ledger.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestBoltLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := NewLedger(TypeBBolt, Options{BBoltPath: path})
	require.NoError(t, err)
	require.NoError(t, first.Mark(ctx, "m1"))
	require.NoError(t, first.Close())

	second, err := NewLedger(TypeBBolt, Options{BBoltPath: path})
	require.NoError(t, err)
	defer second.Close()
	seen, err := second.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDecodeExpiryRejectsGarbage(t *testing.T) {
	_, ok := decodeExpiry([]byte{1, 2})
	assert.False(t, ok)
	_, ok = decodeExpiry(make([]byte, expiryValueBytes))
	assert.False(t, ok)
}

func TestNewLedgerNoop(t *testing.T) {
	ledger, err := NewLedger("none", Options{})
	require.NoError(t, err)
	require.NoError(t, ledger.Mark(context.Background(), "x"))
	seen, err := ledger.Seen(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewLedgerValidation(t *testing.T) {
	_, err := NewLedger(TypeBBolt, Options{})
	assert.Error(t, err)
	_, err = NewLedger(TypeRedis, Options{})
	assert.Error(t, err)
	_, err = NewLedger("memcached", Options{})
	assert.Error(t, err)
}

func TestRedisLedger(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	ledger := newRedisLedger(client, normalizeOptions(Options{RedisPrefix: "enricher-test:", TTL: time.Minute}))
	defer ledger.Close()

	id := "m-" + time.Now().Format("150405.000000")
	seen, err := ledger.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.Mark(ctx, id))
	seen, err = ledger.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := client.TTL(ctx, "enricher-test:"+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
