// tests_helpers.go

package sessiontoken

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Test Helper Functions

const (
	testAccessKey  = "test-access-key-32-bytes-long-0123456789"
	testRefreshKey = "test-refresh-key-32-bytes-long-987654321"
)

func testConfig() Config {
	return DefaultConfig(testAccessKey, testRefreshKey)
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(0, 50*time.Millisecond)
	t.Cleanup(store.Close)
	return store
}

func newTestEngine(t *testing.T, store SessionStore) *HMACEngine {
	t.Helper()
	engine, err := NewHMACEngine(testConfig(), store, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func testRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     "127.0.0.1:6379",
		Password: "",
		DB:       0,
	}
}

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(testRedisOptions())
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Skip("Redis not available, skipping test")
	}
	return client
}

func testGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

var errBackendDown = fmt.Errorf("connection refused")

// failingStore simulates an unreachable backend: every operation reports a
// retryable infrastructure failure.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, sessionID string, attrs SessionAttributes) error {
	return wrapStoreErr("write session", errBackendDown)
}

func (failingStore) Get(ctx context.Context, sessionID string) (SessionAttributes, error) {
	return SessionAttributes{}, wrapStoreErr("read session", errBackendDown)
}

func (failingStore) Take(ctx context.Context, sessionID string) (SessionAttributes, error) {
	return SessionAttributes{}, wrapStoreErr("take session", errBackendDown)
}

func (failingStore) Remove(ctx context.Context, sessionID string) error {
	return wrapStoreErr("delete session", errBackendDown)
}

// fakeMessenger records delivered codes and optionally fails every send.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeMessenger) Send(ctx context.Context, text, senderName, iconRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("gateway returned status 500")
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) lastSent(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}
