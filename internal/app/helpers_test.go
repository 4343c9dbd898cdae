package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
	"github.com/dkeye/Plaza/internal/storage"
)

var errConnClosed = errors.New("connection closed")

// fakeConn records every frame it is handed.
type fakeConn struct {
	id core.ConnID

	mu      sync.Mutex
	frames  []core.Frame
	closed  bool
	sendErr error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: core.ConnID(id)}
}

func (c *fakeConn) ID() core.ConnID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, f)
	return nil
}

// failSends makes every subsequent TrySend report backpressure.
func (c *fakeConn) failSends() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = errConnClosed
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// eventTypes decodes the "type" field of every recorded frame.
func (c *fakeConn) eventTypes(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env.Type)
	}
	return out
}

// lastSnapshot decodes the most recent roomState frame, if any.
func (c *fakeConn) lastSnapshot(t *testing.T) (core.RoomSnapshot, bool) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		var ev struct {
			Type string `json:"type"`
			core.RoomSnapshot
		}
		require.NoError(t, json.Unmarshal(c.frames[i], &ev))
		if ev.Type == "roomState" {
			return ev.RoomSnapshot, true
		}
	}
	return core.RoomSnapshot{}, false
}

// messageTexts decodes the text of every newMessage frame, in order.
func (c *fakeConn) messageTexts(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.frames {
		var ev struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(f, &ev))
		if ev.Type == "newMessage" {
			out = append(out, ev.Text)
		}
	}
	return out
}

// fakeClock drives the time seams of Movement and Membership.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

type fixture struct {
	store    *storage.MemoryStore
	rooms    *core.RoomStore
	registry *Registry
	dispatch *Dispatcher
	members  *Membership
	moves    *Movement
	chat     *ChatRelay
	signals  *SignalRelay
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMemoryStore(),
		registry: NewRegistry(),
		clock:    newFakeClock(),
	}
	f.rooms = core.NewRoomStore(f.store, time.Second)
	f.dispatch = NewDispatcher(f.registry, f.rooms, DropPolicy{})
	f.members = NewMembership(f.registry, f.rooms, f.dispatch, 1, time.Millisecond)
	f.moves = NewMovement(f.registry, f.rooms, f.dispatch, 50*time.Millisecond, 0.1)
	f.chat = NewChatRelay(f.registry, f.dispatch, f.store, nil, 500)
	f.signals = NewSignalRelay(f.registry)
	f.members.now = f.clock.Now
	f.moves.now = f.clock.Now
	f.chat.now = f.clock.Now
	return f
}

func (f *fixture) seedRoom(id string, capacity int) {
	f.store.SeedRoom(&storage.RoomDoc{
		ID:       id,
		Name:     "room " + id,
		Capacity: capacity,
		Bounds:   storage.BoundsDoc{MinX: 20, MaxX: 780, MinY: 20, MaxY: 580},
		Spawn:    storage.PointDoc{X: 400, Y: 300},
	})
}

// connect registers an authenticated identity with a recording conn.
func (f *fixture) connect(id string) (*fakeConn, domain.Identity) {
	conn := newFakeConn("conn-" + id)
	identity := domain.Identity{ID: domain.IdentityID(id), Name: "user " + id}
	f.registry.Register(identity, conn)
	return conn, identity
}
