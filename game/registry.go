package game

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/NotYourBr0/GTD-backend/domain"
	"github.com/rs/zerolog/log"
)

// LifecycleNotifier receives room lifecycle events. Publish must not block.
type LifecycleNotifier interface {
	Publish(ev domain.RoomEvent)
}

type ResultRecorder interface {
	RecordGameResult(ctx context.Context, result domain.GameResult) error
}

type logNotifier struct{}

func (logNotifier) Publish(ev domain.RoomEvent) {
	log.Debug().Str("room", ev.RoomID).Str("type", string(ev.Type)).Int("players", ev.PlayerCount).Msg("room event")
}

type nopRecorder struct{}

func (nopRecorder) RecordGameResult(context.Context, domain.GameResult) error { return nil }

type RegistryOption func(r *Registry)

func WithNotifier(n LifecycleNotifier) RegistryOption {
	return func(r *Registry) { r.notifier = n }
}

func WithRecorder(rec ResultRecorder, timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.recorder = rec
		r.recordTimeout = timeout
	}
}

// Registry owns every live room. The lock only guards the maps; no call
// into a session is made while holding it.
type Registry struct {
	mu           sync.RWMutex
	rooms        map[string]*Session
	descriptions map[string]RoomDescription
	playerRooms  map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	config        SessionConfig
	deps          SessionDeps
	notifier      LifecycleNotifier
	recorder      ResultRecorder
	recordTimeout time.Duration
}

func NewRegistry(config SessionConfig, deps SessionDeps, opts ...RegistryOption) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		rooms:         map[string]*Session{},
		descriptions:  map[string]RoomDescription{},
		playerRooms:   map[string]string{},
		ctx:           ctx,
		cancel:        cancel,
		config:        config,
		deps:          deps.withDefaults(),
		notifier:      logNotifier{},
		recorder:      nopRecorder{},
		recordTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// roomHandle is what a session sees of the registry. Tying it to the
// session keeps a late call from a closed room away from a newer room
// reusing the same id.
type roomHandle struct {
	r *Registry
	s *Session
}

func (h roomHandle) UpdateDescription(desc RoomDescription) { h.r.updateDescription(h.s, desc) }
func (h roomHandle) RoomClosed(string)                      { h.r.remove(h.s) }

func (h roomHandle) GameFinished(desc RoomDescription, result domain.GameResult) {
	h.r.gameFinished(desc, result)
}

func (r *Registry) Create(id string) (*Session, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, ok := r.rooms[id]; ok {
		r.mu.Unlock()
		return nil, ErrRoomExists
	}
	s := NewSession(id, r.config, r.deps)
	s.dir = roomHandle{r: r, s: s}
	desc := s.description()
	r.rooms[id] = s
	r.descriptions[id] = desc
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		s.Run(r.ctx)
	}()

	log.Info().Str("room", id).Msg("room created")
	r.publish(domain.RoomCreated, desc, nil)
	return s, nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[id]
	return s, ok
}

func (r *Registry) RoomOf(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.playerRooms[playerID]
	return id, ok
}

// Join puts p into roomID. The room p was in before is only left once the
// new room accepted p, so a refused join changes nothing.
func (r *Registry) Join(ctx context.Context, roomID string, p Player, peer Peer) (Player, error) {
	prev, hadPrev := r.RoomOf(p.ID)
	if hadPrev && prev == roomID {
		return Player{}, ErrAlreadyInRoom
	}

	s, ok := r.Get(roomID)
	if !ok {
		return Player{}, ErrRoomNotFound
	}
	joined, err := s.Join(ctx, p, peer)
	if err != nil {
		return Player{}, err
	}

	r.mu.Lock()
	if r.rooms[roomID] != s {
		// torn down while the join was queued
		r.mu.Unlock()
		if err := r.leaveRoom(ctx, s, p.ID); err != nil {
			log.Warn().Err(err).Str("room", roomID).Str("player", p.ID).Msg("failed to undo join")
		}
		return Player{}, ErrRoomNotFound
	}
	r.playerRooms[p.ID] = roomID
	r.mu.Unlock()

	if hadPrev {
		if old, ok := r.Get(prev); ok {
			if err := r.leaveRoom(ctx, old, p.ID); err != nil {
				log.Warn().Err(err).Str("room", prev).Str("player", p.ID).Msg("failed to leave previous room")
			}
		}
	}
	return joined, nil
}

func (r *Registry) Leave(ctx context.Context, playerID string) error {
	r.mu.Lock()
	roomID, ok := r.playerRooms[playerID]
	delete(r.playerRooms, playerID)
	r.mu.Unlock()
	if !ok {
		return ErrNotInRoom
	}

	s, ok := r.Get(roomID)
	if !ok {
		return nil
	}
	return r.leaveRoom(ctx, s, playerID)
}

func (r *Registry) leaveRoom(ctx context.Context, s *Session, playerID string) error {
	err := s.Leave(ctx, playerID)
	if err != nil && !errors.Is(err, ErrRoomNotFound) && !errors.Is(err, ErrNotInRoom) {
		return err
	}
	r.DestroyIfEmpty(s.id)
	return nil
}

// DestroyIfEmpty drops the room if nobody is left in it. It reports
// whether the room went away.
func (r *Registry) DestroyIfEmpty(id string) bool {
	r.mu.Lock()
	s, ok := r.rooms[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	desc := r.descriptions[id]
	if !s.Closed() && desc.PlayerCount > 0 {
		r.mu.Unlock()
		return false
	}
	r.dropLocked(id)
	r.mu.Unlock()

	s.Close()
	log.Info().Str("room", id).Msg("room destroyed")
	r.publish(domain.RoomDestroyed, desc, nil)
	return true
}

func (r *Registry) dropLocked(id string) {
	delete(r.rooms, id)
	delete(r.descriptions, id)
	for pid, rid := range r.playerRooms {
		if rid == id {
			delete(r.playerRooms, pid)
		}
	}
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	if r.rooms[s.id] != s {
		r.mu.Unlock()
		return
	}
	desc := r.descriptions[s.id]
	r.dropLocked(s.id)
	r.mu.Unlock()

	log.Info().Str("room", s.id).Msg("room closed")
	desc.PlayerCount = 0
	r.publish(domain.RoomDestroyed, desc, nil)
}

func (r *Registry) updateDescription(s *Session, desc RoomDescription) {
	r.mu.Lock()
	if r.rooms[s.id] != s {
		r.mu.Unlock()
		return
	}
	r.descriptions[s.id] = desc
	r.mu.Unlock()
	r.publish(domain.RoomUpdated, desc, nil)
}

func (r *Registry) gameFinished(desc RoomDescription, result domain.GameResult) {
	r.publish(domain.RoomGameEnded, desc, &result)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), r.recordTimeout)
		defer cancel()
		if err := r.recorder.RecordGameResult(ctx, result); err != nil {
			log.Error().Err(err).Str("room", result.RoomID).Msg("failed to record game result")
		}
	}()
}

func (r *Registry) publish(t domain.RoomEventType, desc RoomDescription, result *domain.GameResult) {
	r.notifier.Publish(domain.RoomEvent{
		Type:        t,
		RoomID:      desc.ID,
		PlayerCount: desc.PlayerCount,
		GameState:   string(desc.GameState),
		MaxPlayers:  desc.MaxPlayers,
		Result:      result,
		At:          r.deps.Now(),
	})
}

// List returns the description of every room, ordered by id.
func (r *Registry) List() []RoomDescription {
	r.mu.RLock()
	out := make([]RoomDescription, 0, len(r.descriptions))
	for _, d := range r.descriptions {
		out = append(out, d)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b RoomDescription) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Shutdown closes every room and waits for their loops to return.
func (r *Registry) Shutdown() {
	r.cancel()
	r.wg.Wait()
}
