package domain

import "math"

type RoomID string

// Position is a point in a room's 2D coordinate space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are real numbers. NaN and Inf
// arrive from broken or hostile clients and are dropped upstream.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Near reports whether p is within eps of o on both axes.
func (p Position) Near(o Position, eps float64) bool {
	return math.Abs(p.X-o.X) <= eps && math.Abs(p.Y-o.Y) <= eps
}

// Bounds is the walkable rectangle of a room. Client coordinates are
// clamped into it, never rejected: pushing past a wall sticks to the wall.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

func (b Bounds) Clamp(p Position) Position {
	return Position{
		X: math.Min(math.Max(p.X, b.MinX), b.MaxX),
		Y: math.Min(math.Max(p.Y, b.MinY), b.MaxY),
	}
}

func (b Bounds) Center() Position {
	return Position{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Object is a static layout element (wall, furniture). Immutable after
// room creation; carried in snapshots so clients can draw the room.
type Object struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// Room is the static definition of a room. Rooms are created out-of-band;
// the live participant set is owned by core.RoomStore, not by this struct.
type Room struct {
	ID       RoomID   `json:"id"`
	Name     string   `json:"name"`
	Private  bool     `json:"private"`
	Capacity int      `json:"capacity"`
	Bounds   Bounds   `json:"bounds"`
	Spawn    Position `json:"spawn"`
	Objects  []Object `json:"objects,omitempty"`
}

// SpawnPoint returns the configured spawn, falling back to the room
// center when the document carries none.
func (r *Room) SpawnPoint() Position {
	if r.Spawn == (Position{}) && r.Bounds != (Bounds{}) {
		return r.Bounds.Center()
	}
	return r.Bounds.Clamp(r.Spawn)
}
