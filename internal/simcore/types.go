// Package simcore implements the authoritative, deterministic simulation
// state: units, commands, the economy, transport/garrison subsystems, and
// the checksum protocol used to detect desyncs between lockstep clients.
//
// Nothing in this package reads wall-clock time or process-global
// randomness; every source of entropy flows through the RNG owned by the
// enclosing AuthoritativeGame.
package simcore

import "math"

// Vec2 is an (x, z) pair in world units. Elevation (y) is derived from
// terrain by the renderer and is never part of simulation identity.
type Vec2 struct {
	X float64
	Z float64
}

// Add returns the component-wise sum of v and o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Z: v.Z + o.Z} }

// Sub returns the component-wise difference v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Z: v.Z - o.Z} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Z: v.Z * s} }

// Length returns the Euclidean length of v.
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Z) }

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec2) DistanceTo(o Vec2) float64 { return v.Sub(o).Length() }

// Normalized returns v scaled to unit length, or the zero vector if v is
// the zero vector.
func (v Vec2) Normalized() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Z: v.Z / l}
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Z*o.Z }

// UnitId, PlayerId, SessionCode and BuildingId are opaque strings, unique
// within their scope.
type (
	UnitId     string
	PlayerId   string
	SessionCode string
	BuildingId string
)

// Team is one of the two sides of a match.
type Team int

const (
	TeamNone Team = iota
	Team1
	Team2
)

// Opponent returns the other team, or TeamNone for TeamNone.
func (t Team) Opponent() Team {
	switch t {
	case Team1:
		return Team2
	case Team2:
		return Team1
	default:
		return TeamNone
	}
}

// GamePhase is the coarse lifecycle stage of a match. The core only drives
// Setup -> Battle and Battle -> Victory; other phases are client
// presentation and are never set by simulation code.
type GamePhase int

const (
	PhaseLoading GamePhase = iota
	PhaseSetup
	PhaseBattle
	PhaseVictory
)

func (p GamePhase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSetup:
		return "deployment"
	case PhaseBattle:
		return "battle"
	case PhaseVictory:
		return "victory"
	default:
		return "unknown"
	}
}

// TerrainCell describes one cell of the map's terrain grid.
type TerrainCell struct {
	Elevation  float64
	CoverBonus float64 // fraction of damage absorbed by terrain, 0..1
	Passable   bool
}

// DeploymentZone is a team's allowed setup-phase spawn region.
type DeploymentZone struct {
	Team   Team
	Center Vec2
	Width  float64
	Height float64
}

// GameMap is the immutable map value passed into AuthoritativeGame.initialize.
// The core never mutates it.
type GameMap struct {
	Seed            uint32
	CellSize        float64
	Width           int
	Height          int
	Terrain         [][]TerrainCell
	CaptureZones    []CaptureZoneSpec
	Buildings       []BuildingSpec
	DeploymentZones []DeploymentZone
}

// Contains reports whether p lies within the map's world extents.
func (m GameMap) Contains(p Vec2) bool {
	maxX := float64(m.Width) * m.CellSize
	maxZ := float64(m.Height) * m.CellSize
	return p.X >= 0 && p.X <= maxX && p.Z >= 0 && p.Z <= maxZ
}

// Clamp clamps p to the map's world extents.
func (m GameMap) Clamp(p Vec2) Vec2 {
	maxX := float64(m.Width) * m.CellSize
	maxZ := float64(m.Height) * m.CellSize
	return Vec2{
		X: clampFloat(p.X, 0, maxX),
		Z: clampFloat(p.Z, 0, maxZ),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CaptureZoneSpec is the read-only map definition of a capture zone;
// CaptureZone (in economy.go) is its mutable runtime counterpart.
type CaptureZoneSpec struct {
	ID            string
	Center        Vec2
	Width         float64
	Height        float64
	PointsPerTick int
}

// Contains reports whether p lies inside the zone's axis-aligned footprint.
func (z CaptureZoneSpec) Contains(p Vec2) bool {
	halfW, halfH := z.Width/2, z.Height/2
	return p.X >= z.Center.X-halfW && p.X <= z.Center.X+halfW &&
		p.Z >= z.Center.Z-halfH && p.Z <= z.Center.Z+halfH
}

// BuildingSpec is the read-only map definition of a building.
type BuildingSpec struct {
	ID          BuildingId
	Position    Vec2
	Capacity    int
	IsHighGround bool
}

// TeamScore holds the accumulated victory-point totals per team.
type TeamScore struct {
	Team1 int
	Team2 int
}

// For returns the score for team, or 0 for TeamNone.
func (s TeamScore) For(team Team) int {
	switch team {
	case Team1:
		return s.Team1
	case Team2:
		return s.Team2
	default:
		return 0
	}
}
