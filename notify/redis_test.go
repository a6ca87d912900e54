package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NotYourBr0/GTD-backend/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRedisClient struct {
	mock.Mock
	mu        sync.Mutex
	published chan []byte
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.mu.Lock()
	args := m.Called(channel, message)
	m.mu.Unlock()
	if m.published != nil {
		m.published <- message.([]byte)
	}
	return redis.NewIntResult(1, args.Error(0))
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(key, expiration)
	return redis.NewStatusResult("OK", args.Error(0))
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(keys)
	return redis.NewIntResult(1, args.Error(0))
}

func TestRedisPublisher_Write(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	testCases := []struct {
		name    string
		event   domain.RoomEvent
		setup   func(c *MockRedisClient)
		wantErr bool
	}{
		{
			name:  "created sets the room key",
			event: domain.RoomEvent{Type: domain.RoomCreated, RoomID: "r1"},
			setup: func(c *MockRedisClient) {
				c.On("Set", "room:r1", roomKeyTTL).Return(nil).Once()
				c.On("Publish", DefaultChannel, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:  "destroyed deletes the room key",
			event: domain.RoomEvent{Type: domain.RoomDestroyed, RoomID: "r1"},
			setup: func(c *MockRedisClient) {
				c.On("Del", []string{"room:r1"}).Return(nil).Once()
				c.On("Publish", DefaultChannel, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:  "game ended only publishes",
			event: domain.RoomEvent{Type: domain.RoomGameEnded, RoomID: "r1", Result: &domain.GameResult{RoomID: "r1"}},
			setup: func(c *MockRedisClient) {
				c.On("Publish", DefaultChannel, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:  "set failure skips publish",
			event: domain.RoomEvent{Type: domain.RoomUpdated, RoomID: "r1"},
			setup: func(c *MockRedisClient) {
				c.On("Set", "room:r1", roomKeyTTL).Return(errors.New("down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := &MockRedisClient{}
			tc.setup(client)
			p := NewRedisPublisher(client, "", 1)

			err := p.write(ctx, tc.event)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			client.AssertExpectations(t)
		})
	}
}

func TestRedisPublisher_Run(t *testing.T) {
	t.Parallel()
	client := &MockRedisClient{published: make(chan []byte, 1)}
	client.On("Set", "room:r9", roomKeyTTL).Return(nil)
	client.On("Publish", "events", mock.Anything).Return(nil)

	p := NewRedisPublisher(client, "events", 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Publish(domain.RoomEvent{Type: domain.RoomUpdated, RoomID: "r9", PlayerCount: 2})

	select {
	case data := <-client.published:
		var ev domain.RoomEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "r9", ev.RoomID)
		assert.Equal(t, 2, ev.PlayerCount)
	case <-time.After(time.Second):
		t.Fatal("event was not published")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestRedisPublisher_PublishNeverBlocks(t *testing.T) {
	t.Parallel()
	p := NewRedisPublisher(&MockRedisClient{}, "", 1)

	finished := make(chan struct{})
	go func() {
		p.Publish(domain.RoomEvent{RoomID: "a"})
		p.Publish(domain.RoomEvent{RoomID: "b"})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full backlog")
	}
	assert.Len(t, p.events, 1)
}
