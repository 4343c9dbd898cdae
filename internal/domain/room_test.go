package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	b := Bounds{MinX: 20, MaxX: 780, MinY: 20, MaxY: 580}

	cases := []struct {
		name string
		in   Position
		want Position
	}{
		{"inside", Position{X: 100, Y: 100}, Position{X: 100, Y: 100}},
		{"past left wall", Position{X: -500, Y: 300}, Position{X: 20, Y: 300}},
		{"past both", Position{X: 99999, Y: -99999}, Position{X: 780, Y: 20}},
		{"on edge", Position{X: 780, Y: 580}, Position{X: 780, Y: 580}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, b.Clamp(tc.in))
		})
	}
}

func TestFinite(t *testing.T) {
	assert.True(t, Position{X: 1, Y: 2}.Finite())
	assert.False(t, Position{X: math.NaN(), Y: 2}.Finite())
	assert.False(t, Position{X: 1, Y: math.Inf(1)}.Finite())
	assert.False(t, Position{X: math.Inf(-1), Y: 2}.Finite())
}

func TestNear(t *testing.T) {
	p := Position{X: 100, Y: 100}
	assert.True(t, p.Near(Position{X: 100.05, Y: 99.95}, 0.1))
	assert.False(t, p.Near(Position{X: 100.2, Y: 100}, 0.1))
}

func TestSpawnPoint(t *testing.T) {
	b := Bounds{MinX: 0, MaxX: 800, MinY: 0, MaxY: 600}

	r := Room{Bounds: b, Spawn: Position{X: 100, Y: 100}}
	assert.Equal(t, Position{X: 100, Y: 100}, r.SpawnPoint())

	// No configured spawn: fall back to the room center.
	r = Room{Bounds: b}
	assert.Equal(t, Position{X: 400, Y: 300}, r.SpawnPoint())

	// A spawn outside the bounds is pulled inside.
	r = Room{Bounds: b, Spawn: Position{X: 5000, Y: -5}}
	assert.Equal(t, Position{X: 800, Y: 0}, r.SpawnPoint())
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("u1", "Ada", "")
	assert.NoError(t, err)
	assert.Equal(t, IdentityID("u1"), id.ID)

	_, err = NewIdentity("u1", "", "")
	assert.ErrorIs(t, err, ErrNameEmpty)

	_, err = NewIdentity("u1", string(make([]byte, MaxNameLen+1)), "")
	assert.ErrorIs(t, err, ErrNameTooLong)
}
