package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// queued decodes everything waiting in the client's send buffer.
func queued(t *testing.T, c *Client) []Envelope {
	t.Helper()
	out := []Envelope{}
	for {
		select {
		case data := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func runReadPump(c *Client, g *Gateway) {
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.ReadPump(g)
	}()
	wg.Wait()
}

func TestReadPump(t *testing.T) {
	t.Parallel()

	t.Run("Read Error", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t)
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Read").Return([]byte{}, assert.AnError)
		client := NewClient("A", mockSocket)

		// on read error, the goroutine must release
		runReadPump(client, g)

		select {
		case <-client.Done():
		default:
			t.Fatal("client context should be cancelled")
		}
		mockSocket.AssertExpectations(t)
		mockSocket.AssertNotCalled(t, "Close")
	})

	t.Run("Read garbage data", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t)
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Read").Return([]byte{1, 5}, nil).Once()
		mockSocket.On("Read").Return([]byte(`{"data":{}}`), nil).Once()
		mockSocket.On("Read").Return([]byte{}, assert.AnError).Once()
		client := NewClient("A", mockSocket)

		runReadPump(client, g)

		envs := queued(t, client)
		require.Len(t, envs, 2)
		for _, env := range envs {
			assert.Equal(t, EventError, env.Event)
			assert.JSONEq(t, `{"message":"Malformed packet"}`, string(env.Data))
		}
		mockSocket.AssertExpectations(t)
	})

	t.Run("Read good data", func(t *testing.T) {
		t.Parallel()
		g, r := newTestGateway(t)
		other := joinedConn(t, g, "B")
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Read").Return([]byte(`{"event":"joinRoom","data":{"roomId":"room1","playerName":"alice"}}`), nil).Once()
		mockSocket.On("Read").Return([]byte{}, assert.AnError).Once()
		client := NewClient("A", mockSocket)

		runReadPump(client, g)

		envs := queued(t, client)
		require.NotEmpty(t, envs)
		assert.Equal(t, EventJoinedRoom, envs[0].Event)

		// the pump leaves the room when the socket goes away
		_, ok := r.RoomOf("A")
		assert.False(t, ok)
		assert.Equal(t, 1, other.count(EventPlayerJoined))
		assert.Equal(t, 1, other.count(EventPlayerLeft))
		mockSocket.AssertExpectations(t)
	})

	t.Run("Spam Messages Rate Limiting", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t)
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Read").Return([]byte(`{"event":"sendMessage","data":{"message":"spam spamm"}}`), nil).Times(50)
		mockSocket.On("Read").Return([]byte{}, assert.AnError).Once()
		client := NewClient("A", mockSocket)

		runReadPump(client, g)

		limited := 0
		for _, env := range queued(t, client) {
			var msg messagePayload
			require.NoError(t, json.Unmarshal(env.Data, &msg))
			if msg.Message == "Too many messages, slow down" {
				limited++
			}
		}
		// burst of 10, refilled at 5 per second
		assert.GreaterOrEqual(t, limited, 35)
		assert.LessOrEqual(t, limited, 40)
		mockSocket.AssertExpectations(t)
	})

	t.Run("Drawing data doesn't get rate limited", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t)
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Read").Return([]byte(`{"event":"drawing","data":{"x":1,"y":1,"tool":"pen","size":2}}`), nil).Times(50)
		mockSocket.On("Read").Return([]byte{}, assert.AnError).Once()
		client := NewClient("A", mockSocket)

		runReadPump(client, g)

		for _, env := range queued(t, client) {
			assert.JSONEq(t, `{"message":"You are not in a room"}`, string(env.Data))
		}
		mockSocket.AssertExpectations(t)
	})
}

func TestWritePump(t *testing.T) {
	t.Parallel()

	t.Run("Writes queued data and closes on cancel", func(t *testing.T) {
		t.Parallel()
		mockSocket := &MockWebsocketConnection{}
		written := make(chan struct{}, 1)
		mockSocket.On("Write", []byte("hello")).Return(nil).Run(func(mock.Arguments) {
			written <- struct{}{}
		}).Once()
		mockSocket.On("Close").Return().Once()
		client := NewClient("A", mockSocket)

		done := make(chan struct{})
		go func() {
			defer close(done)
			client.WritePump(time.Hour)
		}()

		require.NoError(t, client.Send([]byte("hello")))
		<-written
		client.CancelAndRelease()
		<-done

		mockSocket.AssertExpectations(t)
	})

	t.Run("Write error", func(t *testing.T) {
		t.Parallel()
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Write", mock.Anything).Return(assert.AnError).Once()
		mockSocket.On("Close").Return().Once()
		client := NewClient("A", mockSocket)

		require.NoError(t, client.Send([]byte("hello")))
		client.WritePump(time.Hour)

		<-client.Done()
		assert.ErrorIs(t, client.Send([]byte("again")), ErrClientClosed)
		mockSocket.AssertExpectations(t)
	})

	t.Run("Ping error", func(t *testing.T) {
		t.Parallel()
		mockSocket := &MockWebsocketConnection{}
		mockSocket.On("Ping").Return(assert.AnError).Once()
		mockSocket.On("Close").Return().Once()
		client := NewClient("A", mockSocket)

		client.WritePump(5 * time.Millisecond)

		mockSocket.AssertExpectations(t)
	})
}

func TestClientSend(t *testing.T) {
	t.Parallel()
	client := NewClient("A", &MockWebsocketConnection{})

	for i := 0; i < clientSendBuffer; i++ {
		require.NoError(t, client.Send([]byte("x")))
	}
	assert.ErrorIs(t, client.Send([]byte("x")), ErrSendBufferFull)

	select {
	case <-client.Done():
	default:
		t.Fatal("a client that cannot keep up is dropped")
	}
	assert.ErrorIs(t, client.SendEvent(EventError, messagePayload{Message: "late"}), ErrClientClosed)
}
