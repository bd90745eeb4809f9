package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockCmdable is an in-memory stand-in for the redis command surface, used by tests
// across packages that persist through the Client.
type MockCmdable struct {
	mu   sync.Mutex
	Data map[string]string
	TTLs map[string]time.Duration
	// SetErr, when non-nil, fails every Set call.
	SetErr error
	// GetErr, when non-nil, fails every Get call.
	GetErr error
}

func NewMockCmdable() *MockCmdable {
	return &MockCmdable{
		Data: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

// NewWithCmdable builds a Client over an arbitrary command implementation.
func NewWithCmdable(store *MockCmdable) *Client {
	return &Client{store: store}
}

func (m *MockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *MockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return redis.NewStatusResult("", m.SetErr)
	}
	m.Data[key] = fmt.Sprint(value)
	m.TTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *MockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return redis.NewStringResult("", m.GetErr)
	}
	v, ok := m.Data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.Data, key)
		delete(m.TTLs, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
