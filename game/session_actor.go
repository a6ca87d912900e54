package game

import (
	"context"

	"github.com/rs/zerolog/log"
)

type command interface {
	apply(s *Session)
}

type reply[T any] struct {
	val T
	err error
}

// call runs fn on the room goroutine and hands its result back. If fn
// panics the caller still gets an answer.
type call[T any] struct {
	fn    func(s *Session) (T, error)
	reply chan reply[T]
}

func (c call[T]) apply(s *Session) {
	r := reply[T]{err: ErrSessionFailed}
	defer func() { c.reply <- r }()
	r.val, r.err = c.fn(s)
}

type timerFired struct{ turn uint64 }

func (t timerFired) apply(s *Session) { s.handleTimerFired(t.turn) }

type relayFlush struct{ turn uint64 }

func (f relayFlush) apply(s *Session) { s.handleRelayFlush(f.turn) }

type idleExpired struct{}

func (idleExpired) apply(s *Session) { s.handleIdleExpired() }

type closeRoom struct{}

func (closeRoom) apply(s *Session) { s.shutdown() }

// Run is the room loop. It returns once the room is closed by Close, by
// idling out with nobody in it, or by ctx being cancelled.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	s.armIdle()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case cmd := <-s.inbox:
			s.dispatch(cmd)
			s.flush()
			if s.closed {
				return
			}
		}
	}
}

func (s *Session) dispatch(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("room", s.id).Interface("panic", r).Msg("room command failed, freezing room")
			s.failClosed()
		}
	}()
	cmd.apply(s)
}

func (s *Session) send(ctx context.Context, cmd command) error {
	if s.closedFlag.Load() {
		return ErrRoomNotFound
	}
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.done:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by timers, which have no one to report to.
func (s *Session) post(cmd command) {
	select {
	case s.inbox <- cmd:
	case <-s.done:
	}
}

func await[T any](ctx context.Context, s *Session, fn func(s *Session) (T, error)) (T, error) {
	var zero T
	c := call[T]{fn: fn, reply: make(chan reply[T], 1)}
	if err := s.send(ctx, c); err != nil {
		return zero, err
	}
	select {
	case r := <-c.reply:
		return r.val, r.err
	case <-s.done:
		// the command may have been the one that closed the room
		select {
		case r := <-c.reply:
			return r.val, r.err
		default:
			return zero, ErrRoomNotFound
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func awaitErr(ctx context.Context, s *Session, fn func(s *Session) error) error {
	_, err := await(ctx, s, func(s *Session) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

func (s *Session) Join(ctx context.Context, p Player, peer Peer) (Player, error) {
	return await(ctx, s, func(s *Session) (Player, error) {
		return s.handleJoin(p, peer)
	})
}

func (s *Session) Leave(ctx context.Context, playerID string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleLeave(playerID)
	})
}

func (s *Session) ToggleReady(ctx context.Context, playerID string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleToggleReady(playerID)
	})
}

func (s *Session) Start(ctx context.Context, requester string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleStart(requester)
	})
}

// Guess reports whether text was a correct guess that scored.
func (s *Session) Guess(ctx context.Context, playerID, text string) (bool, error) {
	return await(ctx, s, func(s *Session) (bool, error) {
		return s.handleGuess(playerID, text)
	})
}

func (s *Session) Chat(ctx context.Context, playerID, text string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleChat(playerID, text)
	})
}

func (s *Session) Draw(ctx context.Context, playerID string, stroke Stroke) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleStroke(playerID, stroke)
	})
}

func (s *Session) ClearCanvas(ctx context.Context, playerID string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleClearCanvas(playerID)
	})
}

func (s *Session) RequestDrawingHistory(ctx context.Context, playerID string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleDrawingHistory(playerID)
	})
}

func (s *Session) RequestChatHistory(ctx context.Context, playerID string) error {
	return awaitErr(ctx, s, func(s *Session) error {
		return s.handleChatHistory(playerID)
	})
}

// Snapshot returns the public state of the room.
func (s *Session) Snapshot(ctx context.Context) (GameState, error) {
	return await(ctx, s, func(s *Session) (GameState, error) {
		return s.gameState(), nil
	})
}

func (s *Session) Description(ctx context.Context) (RoomDescription, error) {
	return await(ctx, s, func(s *Session) (RoomDescription, error) {
		return s.description(), nil
	})
}

// Close asks the room to shut down without waiting for it.
func (s *Session) Close() {
	select {
	case s.inbox <- closeRoom{}:
	case <-s.done:
	default:
		go s.post(closeRoom{})
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
