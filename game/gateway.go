package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Connection is what the gateway needs from a connected client.
type Connection interface {
	Peer
	ID() string
	SendEvent(event string, payload any) error
	Allow() bool
}

// Gateway turns inbound events of a connection into registry and room
// calls. Everything coming off the wire is validated here.
type Gateway struct {
	registry     *Registry
	leaveTimeout time.Duration
}

func NewGateway(registry *Registry) *Gateway {
	return &Gateway{registry: registry, leaveTimeout: 5 * time.Second}
}

// Dispatch handles one inbound event. Refusals are reported to the
// connection and also returned.
func (g *Gateway) Dispatch(ctx context.Context, conn Connection, env Envelope) error {
	var err error
	switch env.Event {
	case EventJoinRoom:
		return g.joinRoom(ctx, conn, env.Data)
	case EventLeaveRoom:
		err = g.registry.Leave(ctx, conn.ID())
		if errors.Is(err, ErrNotInRoom) {
			err = nil
		}
	case EventToggleReady:
		err = g.withRoom(conn, func(s *Session) error { return s.ToggleReady(ctx, conn.ID()) })
	case EventStartGame:
		err = g.withRoom(conn, func(s *Session) error { return s.Start(ctx, conn.ID()) })
	case EventDrawing:
		err = g.drawing(ctx, conn, env.Data)
	case EventClearCanvas:
		err = g.withRoom(conn, func(s *Session) error { return s.ClearCanvas(ctx, conn.ID()) })
	case EventMakeGuess:
		err = g.makeGuess(ctx, conn, env.Data)
	case EventSendMessage:
		err = g.sendMessage(ctx, conn, env.Data)
	case EventRequestDrawingHistory:
		err = g.withRoom(conn, func(s *Session) error { return s.RequestDrawingHistory(ctx, conn.ID()) })
	case EventRequestChatHistory:
		err = g.withRoom(conn, func(s *Session) error { return s.RequestChatHistory(ctx, conn.ID()) })
	default:
		err = ErrUnknownEvent
	}

	if err != nil {
		g.reject(conn, env.Event, err)
	}
	return err
}

func (g *Gateway) reject(conn Connection, event string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	log.Debug().Err(err).Str("player", conn.ID()).Str("event", event).Msg("event refused")
	conn.SendEvent(EventError, messagePayload{Message: eventErrorMessage(err)})
}

func (g *Gateway) session(conn Connection) (*Session, error) {
	roomID, ok := g.registry.RoomOf(conn.ID())
	if !ok {
		return nil, ErrNotInRoom
	}
	s, ok := g.registry.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return s, nil
}

func (g *Gateway) withRoom(conn Connection, fn func(s *Session) error) error {
	s, err := g.session(conn)
	if err != nil {
		return err
	}
	return fn(s)
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrMalformedPacket
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(ErrMalformedPacket, err)
	}
	return nil
}

func (g *Gateway) joinRoom(ctx context.Context, conn Connection, data json.RawMessage) error {
	var in joinRoomInput
	if err := decode(data, &in); err != nil {
		in = joinRoomInput{}
	}

	err := func() error {
		if in.RoomID == "" || in.PlayerName == "" {
			return ErrMissingJoinFields
		}
		name, err := ValidatePlayerName(in.PlayerName)
		if err != nil {
			return err
		}
		_, err = g.registry.Join(ctx, in.RoomID, Player{ID: conn.ID(), Name: name}, conn)
		return err
	}()

	if err != nil {
		log.Debug().Err(err).Str("player", conn.ID()).Str("room", in.RoomID).Msg("join refused")
		conn.SendEvent(EventJoinError, messagePayload{Message: joinErrorMessage(err)})
	}
	return err
}

func (g *Gateway) drawing(ctx context.Context, conn Connection, data json.RawMessage) error {
	var in StrokeInput
	if err := decode(data, &in); err != nil {
		return err
	}
	stroke, err := in.Validate()
	if err != nil {
		return err
	}
	err = g.withRoom(conn, func(s *Session) error { return s.Draw(ctx, conn.ID(), stroke) })
	// strokes still in flight when the turn passes are dropped quietly
	if errors.Is(err, ErrNotDrawer) {
		log.Debug().Str("player", conn.ID()).Msg("stroke from non-drawer dropped")
		return nil
	}
	return err
}

func (g *Gateway) makeGuess(ctx context.Context, conn Connection, data json.RawMessage) error {
	if !conn.Allow() {
		return ErrRateLimited
	}
	var in makeGuessInput
	if err := decode(data, &in); err != nil {
		return err
	}
	guess, err := SanitizeMessage(in.Guess)
	if err != nil {
		return err
	}
	return g.withRoom(conn, func(s *Session) error {
		_, err := s.Guess(ctx, conn.ID(), guess)
		return err
	})
}

func (g *Gateway) sendMessage(ctx context.Context, conn Connection, data json.RawMessage) error {
	if !conn.Allow() {
		return ErrRateLimited
	}
	var in sendMessageInput
	if err := decode(data, &in); err != nil {
		return err
	}
	msg, err := SanitizeMessage(in.Message)
	if err != nil {
		return err
	}
	if in.RoomID != "" {
		if current, ok := g.registry.RoomOf(conn.ID()); !ok || current != in.RoomID {
			return ErrNotInRoom
		}
	}
	return g.withRoom(conn, func(s *Session) error { return s.Chat(ctx, conn.ID(), msg) })
}

// Disconnect removes a closed connection from its room.
func (g *Gateway) Disconnect(conn Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), g.leaveTimeout)
	defer cancel()
	if err := g.registry.Leave(ctx, conn.ID()); err != nil && !errors.Is(err, ErrNotInRoom) {
		log.Warn().Err(err).Str("player", conn.ID()).Msg("failed to leave room on disconnect")
	}
}
