package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NotYourBr0/GTD-backend/domain"
	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close() {
	m.Called()
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- WordSource ---

type MockWordSource struct {
	mock.Mock
}

func (m *MockWordSource) Generate(count int) []string {
	args := m.Called(count)
	return args.Get(0).([]string)
}

// --- ResultRecorder ---

type MockResultRecorder struct {
	mock.Mock
}

func (m *MockResultRecorder) RecordGameResult(ctx context.Context, result domain.GameResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// --- LifecycleNotifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.RoomEvent
}

func (n *recordingNotifier) Publish(ev domain.RoomEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types(roomID string) []domain.RoomEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []domain.RoomEventType{}
	for _, ev := range n.events {
		if ev.RoomID == roomID {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (n *recordingNotifier) find(roomID string, t domain.RoomEventType) (domain.RoomEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ev := range n.events {
		if ev.RoomID == roomID && ev.Type == t {
			return ev, true
		}
	}
	return domain.RoomEvent{}, false
}

// --- Timers ---

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	owner   *fakeTimers
}

func (t *fakeTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) Stopped() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.stopped
}

// Fire runs the callback even if the timer was stopped, the way a real
// timer that already fired races with Stop.
func (t *fakeTimer) Fire() {
	t.f()
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f, owner: ft}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) all() []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]*fakeTimer{}, ft.timers...)
}

// armed returns the timers of duration d that were not stopped.
func (ft *fakeTimers) armed(d time.Duration) []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := []*fakeTimer{}
	for _, t := range ft.timers {
		if t.d == d && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// --- Clock and ids ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("msg-%d", s.n)
}

// --- Peer ---

type frame struct {
	Event string
	Data  json.RawMessage
}

type recordingPeer struct {
	mu     sync.Mutex
	frames []frame
	err    error
}

func (p *recordingPeer) Send(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame{Event: env.Event, Data: env.Data})
	return p.err
}

func (p *recordingPeer) events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.frames))
	for _, f := range p.frames {
		out = append(out, f.Event)
	}
	return out
}

func (p *recordingPeer) count(event string) int {
	n := 0
	for _, e := range p.events() {
		if e == event {
			n++
		}
	}
	return n
}

// last decodes the most recent frame carrying event into v.
func (p *recordingPeer) last(event string, v any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].Event == event {
			if v != nil {
				if err := json.Unmarshal(p.frames[i].Data, v); err != nil {
					panic(err)
				}
			}
			return true
		}
	}
	return false
}

func (p *recordingPeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = nil
}

// --- Connection ---

type fakeConnection struct {
	recordingPeer
	id    string
	allow bool
}

func newFakeConnection(id string) *fakeConnection {
	return &fakeConnection{id: id, allow: true}
}

func (c *fakeConnection) ID() string {
	return c.id
}

func (c *fakeConnection) SendEvent(event string, payload any) error {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *fakeConnection) Allow() bool {
	return c.allow
}
