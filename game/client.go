package game

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type WebsocketConnection interface {
	Close()
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

const (
	clientSendBuffer  = 256
	DefaultPingPeriod = 30 * time.Second
)

// Client is one websocket connection. Its id doubles as the player id.
type Client struct {
	id      string
	socket  WebsocketConnection
	send    chan []byte
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewClient(id string, socket WebsocketConnection) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:      id,
		socket:  socket,
		send:    make(chan []byte, clientSendBuffer),
		limiter: rate.NewLimiter(5, 10),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues data for the write pump. A client that cannot keep up is
// disconnected rather than allowed to stall its room.
func (c *Client) Send(data []byte) error {
	if c.ctx.Err() != nil {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().Str("player", c.id).Msg("send buffer full, dropping client")
		c.CancelAndRelease()
		return ErrSendBufferFull
	}
}

func (c *Client) SendEvent(event string, payload any) error {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Allow reports whether the client may send another chat line or guess.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

// CancelAndRelease stops both pumps. The socket itself is closed by the
// write pump, the only goroutine writing to it.
func (c *Client) CancelAndRelease() {
	c.cancel()
}

func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) ReadPump(g *Gateway) {
	defer func() {
		g.Disconnect(c)
		c.CancelAndRelease()
	}()

	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.SendEvent(EventError, messagePayload{Message: eventErrorMessage(ErrMalformedPacket)})
			continue
		}
		g.Dispatch(c.ctx, c, env)
	}
}

func (c *Client) WritePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.socket.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.send:
			if err := c.socket.Write(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.socket.Ping(); err != nil {
				return
			}
		}
	}
}
