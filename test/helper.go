package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"toolx/pkg/logger"
	"toolx/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Epoch is the start time of every FakeClock created by NewFakeClock.
var Epoch = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock stopped at Epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: Epoch}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SentMessage is one delivery captured by StubSender.
type SentMessage struct {
	Email string
	Code  string
}

// StubSender records OTP deliveries and fails while Err is set.
type StubSender struct {
	mu   sync.Mutex
	Err  error
	Sent []SentMessage
}

func (s *StubSender) SendOTP(ctx context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentMessage{Email: email, Code: code})
	return nil
}

// Count returns the number of successful deliveries.
func (s *StubSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}

// NewMemoryStore returns an in-memory state store driven by clock.
func NewMemoryStore(clock *FakeClock) *repository.MemoryStateStore {
	return repository.NewMemoryStateStore(clock.Now)
}

// SetupRedis starts an in-process Redis server and returns a client for it.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	require.NoError(t, client.Ping(context.Background()).Err(), "Failed to reach miniredis")
	return server, client
}

// GetTestLogger creates a test logger
func GetTestLogger() *logger.Logger {
	log, err := logger.New("debug", "development")
	if err != nil {
		panic(fmt.Sprintf("Failed to create test logger: %v", err))
	}
	return log
}
