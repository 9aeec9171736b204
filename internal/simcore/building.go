package simcore

import (
	"math"
	"strconv"

	"github.com/ironclad-rts/core/internal/rng"
)

// Building is the mutable runtime counterpart to a map's BuildingSpec.
type Building struct {
	Spec      BuildingSpec
	Occupants map[UnitId]struct{}
	Owner     Team // team currently garrisoning, TeamNone if empty
}

// BuildingManager owns the set of buildings on the map plus any
// player-constructed defensive structures.
type BuildingManager struct {
	buildings    map[BuildingId]*Building
	order        []BuildingId
	nextStructID int

	// AllowCoGarrison permits opposing teams to occupy the same building
	// simultaneously. Default false: a building is single-team occupancy.
	AllowCoGarrison bool
}

// NewBuildingManager registers the map's buildings.
func NewBuildingManager(specs []BuildingSpec) *BuildingManager {
	bm := &BuildingManager{buildings: make(map[BuildingId]*Building, len(specs))}
	for _, s := range specs {
		bm.buildings[s.ID] = &Building{Spec: s, Occupants: make(map[UnitId]struct{})}
		bm.order = append(bm.order, s.ID)
	}
	return bm
}

// Building returns the runtime building state by id.
func (bm *BuildingManager) Building(id BuildingId) (*Building, bool) {
	b, ok := bm.buildings[id]
	return b, ok
}

// Buildings returns all buildings in registration order.
func (bm *BuildingManager) Buildings() []*Building {
	out := make([]*Building, 0, len(bm.order))
	for _, id := range bm.order {
		out = append(out, bm.buildings[id])
	}
	return out
}

// TryGarrison attempts to place unit into building. Fails if the
// building is at capacity, or (absent AllowCoGarrison) already held by
// the opposing team.
func (bm *BuildingManager) TryGarrison(unit *SimUnit, buildingID BuildingId) bool {
	b, ok := bm.buildings[buildingID]
	if !ok {
		return false
	}
	if len(b.Occupants) >= b.Spec.Capacity {
		return false
	}
	if !bm.AllowCoGarrison && b.Owner != TeamNone && b.Owner != unit.Team {
		return false
	}
	b.Occupants[unit.ID] = struct{}{}
	b.Owner = unit.Team
	unit.GarrisonedIn = &buildingID
	return true
}

// Ungarrison removes unit from its building and returns a deterministic
// exit position chosen around the building's footprint using r.
func (bm *BuildingManager) Ungarrison(unit *SimUnit, r *rng.RNG) (Vec2, bool) {
	if unit.GarrisonedIn == nil {
		return Vec2{}, false
	}
	b, ok := bm.buildings[*unit.GarrisonedIn]
	if !ok {
		unit.GarrisonedIn = nil
		return Vec2{}, false
	}
	delete(b.Occupants, unit.ID)
	if len(b.Occupants) == 0 {
		b.Owner = TeamNone
	}
	unit.GarrisonedIn = nil

	angle := r.NextFloat(0, 2*math.Pi)
	dist := r.NextFloat(30, 80)
	exit := b.Spec.Position.Add(Vec2{X: dist * math.Cos(angle), Z: dist * math.Sin(angle)})
	return exit, true
}

// SpawnDefensiveStructure constructs a new building at position for
// heavy-weapon units only; the caller is responsible for verifying the
// spawning unit's spec before calling.
func (bm *BuildingManager) SpawnDefensiveStructure(position Vec2, capacity int) *Building {
	bm.nextStructID++
	id := BuildingId(structureIDPrefix + strconv.Itoa(bm.nextStructID))
	b := &Building{
		Spec:      BuildingSpec{ID: id, Position: position, Capacity: capacity},
		Occupants: make(map[UnitId]struct{}),
	}
	bm.buildings[id] = b
	bm.order = append(bm.order, id)
	return b
}

// RemoveUnit clears a destroyed unit's occupancy from any building.
func (bm *BuildingManager) RemoveUnit(unit *SimUnit) {
	if unit.GarrisonedIn == nil {
		return
	}
	if b, ok := bm.buildings[*unit.GarrisonedIn]; ok {
		delete(b.Occupants, unit.ID)
		if len(b.Occupants) == 0 {
			b.Owner = TeamNone
		}
	}
	unit.GarrisonedIn = nil
}

const structureIDPrefix = "structure-"
