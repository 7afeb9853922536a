package swarm

import (
	"fmt"
	"math"

	"hivemind.ai/internal/protocol"
)

// Territory is one fixed-size grid cell of world space. Cells are created
// lazily the first time a position maps into them and are never removed.
type Territory struct {
	ID      string
	MinX    float64
	MinZ    float64
	MaxX    float64
	MaxZ    float64
	Claimed bool
}

func (s *Swarm) territoryFor(pos protocol.Vec3) *Territory {
	size := s.cfg.TerritoryCellSize
	gx := int(math.Floor(pos.X / size))
	gz := int(math.Floor(pos.Z / size))
	id := fmt.Sprintf("%d,%d", gx, gz)
	if t := s.territories[id]; t != nil {
		return t
	}
	t := &Territory{
		ID:   id,
		MinX: float64(gx) * size,
		MinZ: float64(gz) * size,
		MaxX: float64(gx+1) * size,
		MaxZ: float64(gz+1) * size,
	}
	s.territories[id] = t
	return t
}

func distance(a, b protocol.Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func truncate(p protocol.Vec3) (int, int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))
}
