// Package registry defines the read-only UnitDataRegistry collaborator and
// ships a static in-memory implementation for tests and standalone runs.
//
// Deck building, division rosters, and unit data authoring live outside
// this module; a real deployment supplies its own Registry implementation
// (typically loaded from data files maintained by another team). The
// StaticRegistry here exists only as a reference double.
package registry

import "fmt"

// WeaponSpec is a read-only weapon definition referenced by UnitSpec.
type WeaponSpec struct {
	ID           string
	Name         string
	AP           int     // armor penetration
	Damage       float64 // base damage before armor mitigation
	Range        float64 // world units
	ReloadTicks  int     // cooldown between shots, in simulation ticks
	Accuracy     float64 // 0..1 base hit chance before modifiers
	SuppressOnly bool    // weapon can suppress but never kill (e.g. smoke rounds)
}

// UnitSpec is a read-only unit definition.
type UnitSpec struct {
	ID             string
	Name           string
	MaxHealth      float64
	Speed          float64 // world units per second
	RotationSpeed  float64 // radians per second
	Armor          Armor
	Weapons        []string // weapon ids, resolved via Registry.Weapon
	TransportSlots int      // 0 means this unit cannot carry passengers
	TransportCost  int      // slots consumed when mounted in another unit
	IsHeavyWeapon  bool     // eligible to build defensive structures
	IsLogistics    bool     // eligible to capture zones
	SpawnCost      int      // credits
}

// Armor holds facing-dependent armor values.
type Armor struct {
	Front int
	Side  int
	Rear  int
}

// Registry is the read-only lookup the simulation core consumes. It is
// safe for concurrent use by many sessions without external locking —
// implementations must not mutate state after construction.
type Registry interface {
	Unit(unitType string) (UnitSpec, bool)
	Weapon(weaponID string) (WeaponSpec, bool)
}

// StaticRegistry is an in-memory Registry seeded from Go literals.
type StaticRegistry struct {
	units   map[string]UnitSpec
	weapons map[string]WeaponSpec
}

// NewStaticRegistry builds the reference registry used by tests and the
// standalone command-line server.
func NewStaticRegistry() *StaticRegistry {
	weapons := map[string]WeaponSpec{
		"rifle": {
			ID: "rifle", Name: "Rifle squad weapon",
			AP: 1, Damage: 6, Range: 600, ReloadTicks: 40, Accuracy: 0.65,
		},
		"at_rocket": {
			ID: "at_rocket", Name: "Light AT rocket",
			AP: 10, Damage: 22, Range: 900, ReloadTicks: 120, Accuracy: 0.55,
		},
		"tank_gun_105": {
			ID: "tank_gun_105", Name: "105mm main gun",
			AP: 16, Damage: 40, Range: 1800, ReloadTicks: 180, Accuracy: 0.7,
		},
		"tank_gun_120": {
			ID: "tank_gun_120", Name: "120mm main gun",
			AP: 21, Damage: 55, Range: 2000, ReloadTicks: 210, Accuracy: 0.72,
		},
		"autocannon_30": {
			ID: "autocannon_30", Name: "30mm autocannon",
			AP: 6, Damage: 10, Range: 1400, ReloadTicks: 20, Accuracy: 0.6,
		},
	}

	units := map[string]UnitSpec{
		"inf_rifle": {
			ID: "inf_rifle", Name: "Rifle Infantry",
			MaxHealth: 60, Speed: 1.4, RotationSpeed: 6.0,
			Armor:          Armor{Front: 0, Side: 0, Rear: 0},
			Weapons:        []string{"rifle", "at_rocket"},
			TransportCost:  1,
			IsLogistics:    true,
			SpawnCost:      40,
		},
		"ifv_scout": {
			ID: "ifv_scout", Name: "Light Scout IFV",
			MaxHealth: 90, Speed: 14, RotationSpeed: 2.2,
			Armor:          Armor{Front: 4, Side: 2, Rear: 1},
			Weapons:        []string{"autocannon_30"},
			TransportSlots: 6,
			TransportCost:  2,
			SpawnCost:      60,
		},
		"mbt_main": {
			ID: "mbt_main", Name: "Main Battle Tank",
			MaxHealth: 180, Speed: 11, RotationSpeed: 1.4,
			Armor:          Armor{Front: 18, Side: 9, Rear: 4},
			Weapons:        []string{"tank_gun_105"},
			TransportCost:  6,
			SpawnCost:      140,
		},
		"mbt_heavy": {
			ID: "mbt_heavy", Name: "Heavy Battle Tank",
			MaxHealth: 240, Speed: 9, RotationSpeed: 1.1,
			Armor:          Armor{Front: 24, Side: 12, Rear: 5},
			Weapons:        []string{"tank_gun_120"},
			TransportCost:  7,
			IsHeavyWeapon:  true,
			SpawnCost:      200,
		},
		"apc_transport": {
			ID: "apc_transport", Name: "Armored Personnel Carrier",
			MaxHealth: 100, Speed: 12, RotationSpeed: 2.0,
			Armor:          Armor{Front: 6, Side: 3, Rear: 2},
			Weapons:        []string{"autocannon_30"},
			TransportSlots: 8,
			TransportCost:  3,
			SpawnCost:      75,
		},
	}

	return &StaticRegistry{units: units, weapons: weapons}
}

// Unit resolves a unit type id.
func (r *StaticRegistry) Unit(unitType string) (UnitSpec, bool) {
	spec, ok := r.units[unitType]
	return spec, ok
}

// Weapon resolves a weapon id.
func (r *StaticRegistry) Weapon(weaponID string) (WeaponSpec, bool) {
	spec, ok := r.weapons[weaponID]
	return spec, ok
}

// MustUnit panics if unitType is unknown; intended for test fixtures where
// the type is a compile-time constant.
func (r *StaticRegistry) MustUnit(unitType string) UnitSpec {
	spec, ok := r.Unit(unitType)
	if !ok {
		panic(fmt.Sprintf("registry: unknown unit type %q", unitType))
	}
	return spec
}
