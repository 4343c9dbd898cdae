package core

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Plaza/internal/domain"
	"github.com/dkeye/Plaza/internal/storage"
)

func seedStore(capacity int) *storage.MemoryStore {
	store := storage.NewMemoryStore()
	store.SeedRoom(&storage.RoomDoc{
		ID:       "r",
		Name:     "test room",
		Capacity: capacity,
		Bounds:   storage.BoundsDoc{MinX: 0, MaxX: 800, MinY: 0, MaxY: 600},
		Spawn:    storage.PointDoc{X: 400, Y: 300},
	})
	return store
}

func identity(id string) domain.Identity {
	return domain.Identity{ID: domain.IdentityID(id), Name: "user " + id}
}

func TestGetOrLoadUnknownRoom(t *testing.T) {
	s := NewRoomStore(storage.NewMemoryStore(), time.Second)

	_, err := s.GetOrLoad(context.Background(), "nowhere")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetOrLoadCachesRoom(t *testing.T) {
	store := seedStore(4)
	s := NewRoomStore(store, time.Second)
	ctx := context.Background()

	room, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "test room", room.Name)

	// A later document change is invisible while the room is resident.
	store.SeedRoom(&storage.RoomDoc{ID: "r", Name: "renamed"})
	again, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "test room", again.Name)
}

func TestAddParticipantSpawnAndCapacity(t *testing.T) {
	s := NewRoomStore(seedStore(2), time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)

	p, added, err := s.AddParticipant(ctx, "r", identity("x"), now)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, domain.Position{X: 400, Y: 300}, p.Position)

	_, added, err = s.AddParticipant(ctx, "r", identity("y"), now)
	require.NoError(t, err)
	assert.True(t, added)

	_, _, err = s.AddParticipant(ctx, "r", identity("z"), now)
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestAddParticipantRejoinOnlyTouches(t *testing.T) {
	s := NewRoomStore(seedStore(4), time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)

	t0 := time.Unix(1700000000, 0)
	_, _, err = s.AddParticipant(ctx, "r", identity("x"), t0)
	require.NoError(t, err)
	require.True(t, s.SetPosition(ctx, "r", "x", domain.Position{X: 10, Y: 10}, t0))

	p, added, err := s.AddParticipant(ctx, "r", identity("x"), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, domain.Position{X: 10, Y: 10}, p.Position, "rejoin must not reset position to spawn")
	assert.Equal(t, t0.Add(time.Minute), p.LastActive)
}

// failingStore refuses participant upserts so the rollback path can be
// observed.
type failingStore struct {
	*storage.MemoryStore
}

func (f failingStore) UpsertParticipant(context.Context, string, string, storage.ParticipantDoc) error {
	return errors.New("write concern not satisfied")
}

func TestAddParticipantRollsBackOnPersistFailure(t *testing.T) {
	s := NewRoomStore(failingStore{seedStore(4)}, time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)

	_, _, err = s.AddParticipant(ctx, "r", identity("x"), time.Unix(1700000000, 0))
	require.Error(t, err)

	snap, ok := s.Snapshot("r")
	require.True(t, ok)
	assert.Equal(t, 0, snap.Count, "failed join must not leave a resident participant")
}

func TestSetPositionPersistsFields(t *testing.T) {
	store := seedStore(4)
	s := NewRoomStore(store, time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	_, _, err = s.AddParticipant(ctx, "r", identity("x"), now)
	require.NoError(t, err)

	require.True(t, s.SetPosition(ctx, "r", "x", domain.Position{X: 120, Y: 90}, now))

	doc, err := store.LoadRoom(ctx, "r")
	require.NoError(t, err)
	pd := doc.Participants["x"]
	assert.Equal(t, 120.0, pd.X)
	assert.Equal(t, 90.0, pd.Y)
	assert.Equal(t, 400.0, pd.PrevX, "previous position is the spawn point")
	assert.Equal(t, 300.0, pd.PrevY)
}

func TestSetPositionUnknownParticipant(t *testing.T) {
	s := NewRoomStore(seedStore(4), time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)

	assert.False(t, s.SetPosition(ctx, "r", "ghost", domain.Position{X: 1, Y: 1}, time.Now()))
}

func TestRemoveParticipantIsSpeculative(t *testing.T) {
	s := NewRoomStore(seedStore(4), time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)

	removed, remaining := s.RemoveParticipant(ctx, "r", "never-joined")
	assert.False(t, removed)
	assert.Equal(t, 0, remaining)
}

func TestEvictIfEmpty(t *testing.T) {
	s := NewRoomStore(seedStore(4), time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
	_, _, err = s.AddParticipant(ctx, "r", identity("x"), time.Now())
	require.NoError(t, err)

	assert.False(t, s.EvictIfEmpty("r"), "occupied room must stay resident")

	s.RemoveParticipant(ctx, "r", "x")
	assert.True(t, s.EvictIfEmpty("r"))
	_, ok := s.Room("r")
	assert.False(t, ok)

	// The document survives eviction; the next reference reloads it.
	_, err = s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
}

func TestLoadDiscardsStaleParticipants(t *testing.T) {
	store := seedStore(2)
	doc, err := store.LoadRoom(context.Background(), "r")
	require.NoError(t, err)
	doc.Participants = map[string]storage.ParticipantDoc{
		"ghost-1": {Name: "ghost-1", X: 100, Y: 100},
		"ghost-2": {Name: "ghost-2", X: 200, Y: 200},
	}
	store.SeedRoom(doc)

	// Fresh store: the entries were persisted by a process that died
	// before running their cleanup. They must not occupy capacity.
	s := NewRoomStore(store, time.Second)
	ctx := context.Background()
	_, err = s.GetOrLoad(ctx, "r")
	require.NoError(t, err)

	_, added, err := s.AddParticipant(ctx, "r", identity("x"), time.Now())
	require.NoError(t, err)
	assert.True(t, added)
	snap, ok := s.Snapshot("r")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Count)

	stored, err := store.LoadRoom(ctx, "r")
	require.NoError(t, err)
	assert.NotContains(t, stored.Participants, "ghost-1", "stale entries are cleared from the document")
	assert.Contains(t, stored.Participants, "x")
}

func TestOccupied(t *testing.T) {
	store := seedStore(4)
	s := NewRoomStore(store, time.Second)
	ctx := context.Background()
	_, err := s.GetOrLoad(ctx, "r")
	require.NoError(t, err)
	_, _, err = s.AddParticipant(ctx, "r", identity("x"), time.Now())
	require.NoError(t, err)

	rooms := s.Occupied()
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomID("r"), rooms[0].ID)
	assert.Equal(t, 1, rooms[0].Count)
}
