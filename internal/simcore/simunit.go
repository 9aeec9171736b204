package simcore

import (
	"math"

	"github.com/ironclad-rts/core/internal/registry"
	"github.com/ironclad-rts/core/internal/rng"
)

const (
	epsilonDistance = 0.05 // close enough to a move target to consider it reached

	moraleMax          = 100.0
	moraleRecoverRate  = 4.0 // morale points per second when unsuppressed
	moraleDecayPerSupp = 1.5 // morale lost per point of suppression per second
	suppressionDecay   = 6.0 // suppression points recovered per second when not being fired on

	returnFireMemorySeconds = 5.0 // bounded recency window for SetReturnFireOnly targeting

	attackCosFront = 0.70710678 // cos(45 degrees)
)

// WeaponState tracks per-weapon cooldown on a SimUnit.
type WeaponState struct {
	WeaponID      string
	CooldownTicks int
}

// attackerMemory records a recent attacker for return-fire-only targeting.
type attackerMemory struct {
	unitID    UnitId
	expiresAt float64 // simulation seconds
}

// SimUnit is the central simulated entity: a single unit's immutable
// spec-derived attributes, mutable battlefield state, and command queue.
type SimUnit struct {
	// Immutable attributes, set at spawn.
	ID            UnitId
	UnitType      string
	Team          Team
	OwnerID       PlayerId
	MaxHealth     float64
	Speed         float64
	RotationSpeed float64
	Weapons       []string

	// Mutable attributes.
	Position     Vec2
	RotationY    float64
	Health       float64
	Morale       float64
	Suppression  float64
	IsFrozen     bool
	GarrisonedIn *BuildingId
	Transport    *UnitId
	Passengers   map[UnitId]struct{}
	DugIn        bool
	ReturnFireOnly bool

	// Command state.
	CurrentCommand UnitCommand
	CommandQueue   []UnitCommand

	weaponStates   map[string]*WeaponState
	recentAttacks  []attackerMemory
	attackTarget   UnitId // resolved transient attack target while on AttackMove
}

// NewSimUnit constructs a freshly spawned unit at full health and morale.
func NewSimUnit(id UnitId, unitType string, team Team, owner PlayerId, spec registry.UnitSpec, pos Vec2, rotationY float64) *SimUnit {
	return &SimUnit{
		ID:             id,
		UnitType:       unitType,
		Team:           team,
		OwnerID:        owner,
		MaxHealth:      spec.MaxHealth,
		Speed:          spec.Speed,
		RotationSpeed:  spec.RotationSpeed,
		Weapons:        append([]string(nil), spec.Weapons...),
		Position:       pos,
		RotationY:      rotationY,
		Health:         spec.MaxHealth,
		Morale:         moraleMax,
		Passengers:     make(map[UnitId]struct{}),
		CurrentCommand: UnitCommand{Kind: CmdIdle},
		weaponStates:   map[string]*WeaponState{},
	}
}

// IsRouting is derived state: a unit whose morale has collapsed ignores
// commands until morale recovers.
func (u *SimUnit) IsRouting() bool { return u.Morale <= 0 }

// IsMounted reports whether the unit is currently riding a transport,
// meaning it is invisible, non-raycastable and cannot fire.
func (u *SimUnit) IsMounted() bool { return u.Transport != nil }

// IsGarrisoned reports whether the unit occupies a building.
func (u *SimUnit) IsGarrisoned() bool { return u.GarrisonedIn != nil }

// IsActive reports whether the unit participates in spatial queries,
// combat, and movement this tick.
func (u *SimUnit) IsActive() bool {
	return u.Health > 0 && !u.IsMounted() && !u.IsGarrisoned()
}

// ClearCommands empties the queue and returns the unit to Idle.
func (u *SimUnit) ClearCommands() {
	u.CommandQueue = u.CommandQueue[:0]
	u.CurrentCommand = UnitCommand{Kind: CmdIdle}
	u.attackTarget = ""
}

// EnqueueCommand applies cmd according to its Queue flag: queued commands
// append (dropped silently if the queue is already at capacity); replacing
// commands clear the queue and become current immediately.
func (u *SimUnit) EnqueueCommand(cmd UnitCommand) {
	if !cmd.Queue {
		u.CommandQueue = u.CommandQueue[:0]
		u.CurrentCommand = cmd
		u.attackTarget = ""
		return
	}
	if len(u.CommandQueue) >= commandQueueCap {
		return
	}
	u.CommandQueue = append(u.CommandQueue, cmd)
}

// popNextCommand advances to the next queued command, or Idle if the queue
// is empty.
func (u *SimUnit) popNextCommand() {
	if len(u.CommandQueue) == 0 {
		u.CurrentCommand = UnitCommand{Kind: CmdIdle}
		return
	}
	u.CurrentCommand = u.CommandQueue[0]
	u.CommandQueue = u.CommandQueue[1:]
}

// recordAttacker appends attacker to the bounded recency list used by
// return-fire-only targeting, evicting anything older than the window.
func (u *SimUnit) recordAttacker(attacker UnitId, nowSeconds float64) {
	u.pruneAttackers(nowSeconds)
	u.recentAttacks = append(u.recentAttacks, attackerMemory{
		unitID:    attacker,
		expiresAt: nowSeconds + returnFireMemorySeconds,
	})
}

func (u *SimUnit) pruneAttackers(nowSeconds float64) {
	kept := u.recentAttacks[:0]
	for _, a := range u.recentAttacks {
		if a.expiresAt > nowSeconds {
			kept = append(kept, a)
		}
	}
	u.recentAttacks = kept
}

// mostRecentAttacker returns the most recently recorded attacker still
// within the recency window. It does not check whether that unit is still
// alive.
func (u *SimUnit) mostRecentAttacker(nowSeconds float64) (UnitId, bool) {
	u.pruneAttackers(nowSeconds)
	if len(u.recentAttacks) == 0 {
		return "", false
	}
	return u.recentAttacks[len(u.recentAttacks)-1].unitID, true
}

// UnitWorld is the read-only/query surface SimUnit needs from its owning
// AuthoritativeGame during fixedUpdate: unit lookups, spatial queries,
// terrain/smoke modifiers, and the single shared RNG. It deliberately
// exposes no mutation beyond what a unit may do to itself or a resolvable
// target.
type UnitWorld interface {
	RNG() *rng.RNG
	Registry() registry.Registry
	NowSeconds() float64
	FindUnit(id UnitId) (*SimUnit, bool)
	NearestEnemyInRange(from *SimUnit, rangeUnits float64) (*SimUnit, bool)
	TerrainCoverAt(p Vec2) float64
	IsObscured(p Vec2) bool
	Map() GameMap
}

// FixedUpdate advances the unit by dt seconds. It is a no-op for dead or
// frozen units. Steps run in a fixed order: morale, command dispatch,
// movement, target acquisition, weapon cycle.
func (u *SimUnit) FixedUpdate(dt float64, w UnitWorld) {
	if u.Health <= 0 || u.IsFrozen || !u.IsActive() {
		return
	}

	u.updateMorale(dt)
	if u.IsRouting() {
		// Routing units ignore commands outright but still cool down.
		u.coolWeapons(dt)
		return
	}

	u.dispatchCommand(dt, w)
	u.integrateMovement(dt)
	u.acquireTarget(w)
	u.cycleWeapons(dt, w)
}

func (u *SimUnit) updateMorale(dt float64) {
	if u.Suppression > 0 {
		u.Morale -= u.Suppression * moraleDecayPerSupp * dt
		u.Suppression -= suppressionDecay * dt
		if u.Suppression < 0 {
			u.Suppression = 0
		}
	} else if u.Morale < moraleMax {
		u.Morale += moraleRecoverRate * dt
	}
	if u.Morale > moraleMax {
		u.Morale = moraleMax
	}
	if u.Morale < 0 {
		u.Morale = 0
	}
}

func (u *SimUnit) dispatchCommand(dt float64, w UnitWorld) {
	switch u.CurrentCommand.Kind {
	case CmdMove, CmdFastMove, CmdReverse:
		if u.Position.DistanceTo(u.CurrentCommand.Target) <= epsilonDistance {
			u.popNextCommand()
		}
	case CmdAttack:
		target, ok := w.FindUnit(u.CurrentCommand.TargetUnitID)
		if !ok || target.Health <= 0 {
			u.attackTarget = ""
			u.popNextCommand()
		}
	case CmdAttackMove:
		// Handled by acquireTarget once movement has been integrated.
	case CmdGarrison, CmdUngarrison, CmdMount, CmdUnload, CmdSpawnUnit, CmdDigIn, CmdSetReturnFireOnly:
		// These are one-shot commands: AuthoritativeGame.execute performs
		// the state change at command-acceptance time, not here. By the
		// time FixedUpdate sees them as CurrentCommand they've already
		// been actioned, so fall through to idle.
		u.popNextCommand()
	case CmdStop:
		u.ClearCommands()
	case CmdIdle:
		// nothing to do
	}
}

func (u *SimUnit) integrateMovement(dt float64) {
	var target Vec2
	var reverse bool
	switch u.CurrentCommand.Kind {
	case CmdMove, CmdFastMove:
		target = u.CurrentCommand.Target
	case CmdReverse:
		target = u.CurrentCommand.Target
		reverse = true
	case CmdAttackMove:
		target = u.CurrentCommand.Target
	default:
		return
	}

	toTarget := target.Sub(u.Position)
	if toTarget.Length() <= epsilonDistance {
		return
	}

	desiredHeading := toTarget.Normalized()
	if reverse {
		desiredHeading = desiredHeading.Scale(-1)
	}
	u.rotateToward(desiredHeading, dt)

	facing := u.forward()
	if reverse {
		facing = facing.Scale(-1)
	}

	speed := u.Speed
	if u.CurrentCommand.Kind == CmdFastMove {
		speed *= 1.3
	}
	step := speed * dt
	if step > toTarget.Length() {
		step = toTarget.Length()
	}
	u.Position = u.Position.Add(facing.Scale(step))
}

// forward returns the unit's current facing direction. At RotationY == 0
// the unit faces -Z.
func (u *SimUnit) forward() Vec2 {
	return Vec2{X: math.Sin(u.RotationY), Z: -math.Cos(u.RotationY)}
}

// rotateToward turns the unit towards heading at most RotationSpeed*dt
// radians.
func (u *SimUnit) rotateToward(heading Vec2, dt float64) {
	if heading.Length() == 0 {
		return
	}
	desiredAngle := math.Atan2(heading.X, -heading.Z)
	diff := normalizeAngle(desiredAngle - u.RotationY)
	maxStep := u.RotationSpeed * dt
	if math.Abs(diff) <= maxStep {
		u.RotationY = normalizeAngle(desiredAngle)
		return
	}
	if diff > 0 {
		u.RotationY = normalizeAngle(u.RotationY + maxStep)
	} else {
		u.RotationY = normalizeAngle(u.RotationY - maxStep)
	}
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func (u *SimUnit) acquireTarget(w UnitWorld) {
	if u.CurrentCommand.Kind != CmdAttackMove {
		return
	}
	spec, ok := w.Registry().Unit(u.UnitType)
	if !ok || len(spec.Weapons) == 0 {
		return
	}
	maxRange := 0.0
	for _, wid := range spec.Weapons {
		if ws, ok := w.Registry().Weapon(wid); ok && ws.Range > maxRange {
			maxRange = ws.Range
		}
	}
	enemy, found := w.NearestEnemyInRange(u, maxRange)
	if !found {
		return
	}
	// Transition to a transient Attack while keeping the move order queued
	// at the head so the unit resumes moving once the target is gone.
	resume := UnitCommand{Kind: CmdAttackMove, Target: u.CurrentCommand.Target, Queue: true}
	u.CommandQueue = append([]UnitCommand{resume}, u.CommandQueue...)
	u.CurrentCommand = UnitCommand{Kind: CmdAttack, TargetUnitID: enemy.ID}
	u.attackTarget = enemy.ID
}

func (u *SimUnit) coolWeapons(dt float64) {
	for _, ws := range u.weaponStates {
		if ws.CooldownTicks > 0 {
			ws.CooldownTicks--
		}
	}
	_ = dt
}

func (u *SimUnit) weaponState(weaponID string) *WeaponState {
	ws, ok := u.weaponStates[weaponID]
	if !ok {
		ws = &WeaponState{WeaponID: weaponID}
		u.weaponStates[weaponID] = ws
	}
	return ws
}

func (u *SimUnit) cycleWeapons(dt float64, w UnitWorld) {
	for _, ws := range u.weaponStates {
		if ws.CooldownTicks > 0 {
			ws.CooldownTicks--
		}
	}

	targetID := u.currentAttackTargetID(w.NowSeconds())
	if targetID == "" {
		return
	}
	target, ok := w.FindUnit(targetID)
	if !ok || target.Health <= 0 {
		return
	}

	for _, weaponID := range u.Weapons {
		spec, ok := w.Registry().Weapon(weaponID)
		if !ok {
			continue
		}
		state := u.weaponState(weaponID)
		if state.CooldownTicks > 0 {
			continue
		}
		dist := u.Position.DistanceTo(target.Position)
		if dist > spec.Range {
			continue
		}
		if !w.RNG().NextBool(spec.Accuracy) {
			state.CooldownTicks = spec.ReloadTicks
			continue
		}
		armor := registry.Armor{}
		if targetSpec, ok := w.Registry().Unit(target.UnitType); ok {
			armor = targetSpec.Armor
		}
		ResolveDamage(u.Position, target, armor, spec, w.TerrainCoverAt(target.Position), 1.0)
		target.recordAttacker(u.ID, w.NowSeconds())
		state.CooldownTicks = spec.ReloadTicks
	}
}

// currentAttackTargetID resolves who this unit is firing at this tick: the
// most recently recorded attacker within the recency window when
// ReturnFireOnly is set, otherwise the unit's own CmdAttack target. A dead
// target is not skipped here; cycleWeapons holds fire at it.
func (u *SimUnit) currentAttackTargetID(nowSeconds float64) UnitId {
	if u.ReturnFireOnly {
		if id, ok := u.mostRecentAttacker(nowSeconds); ok {
			return id
		}
		return ""
	}
	if u.CurrentCommand.Kind == CmdAttack {
		return u.CurrentCommand.TargetUnitID
	}
	return ""
}

// ArmorFacing names which armor value a hit should use.
type ArmorFacing int

const (
	FacingFront ArmorFacing = iota
	FacingSide
	FacingRear
)

// ResolveFacing computes which armor facing a shot from attackerPos hits
// on a defender with the given rotation.
func ResolveFacing(attackerPos, defenderPos Vec2, defenderRotationY float64) ArmorFacing {
	forward := Vec2{X: math.Sin(defenderRotationY), Z: -math.Cos(defenderRotationY)}
	toSource := attackerPos.Sub(defenderPos).Normalized()
	facing := forward.Dot(toSource)
	switch {
	case facing > attackCosFront:
		return FacingFront
	case facing < -attackCosFront:
		return FacingRear
	default:
		return FacingSide
	}
}

// ResolveDamage applies one weapon hit from attackerPos to defender, given
// the defender's per-facing armor. Health damage is
// max(floor((AP-facingArmor)/2)+1, 0) * multiplier, with terrain cover
// reducing up to 20% and garrison and dug-in further reducing the result;
// a SuppressOnly weapon zeroes its health component entirely. Morale (via
// suppression) is reduced by 1.5x the weapon's projected damage (its
// pre-armor-mitigation Damage rating) regardless of armor, cover,
// garrison, dug-in, or SuppressOnly, so it still lands on a ricochet or a
// suppress-only hit. Returns the health damage actually applied and the
// facing the shot landed on.
func ResolveDamage(attackerPos Vec2, defender *SimUnit, armor registry.Armor, weapon registry.WeaponSpec, terrainCoverFrac, multiplier float64) (applied float64, facing ArmorFacing) {
	facing = ResolveFacing(attackerPos, defender.Position, defender.RotationY)

	var facingArmor int
	switch facing {
	case FacingFront:
		facingArmor = armor.Front
	case FacingRear:
		facingArmor = armor.Rear
	default:
		facingArmor = armor.Side
	}

	moraleHit := weapon.Damage * multiplier * 1.5
	defender.Suppression += moraleHit

	raw := math.Max(math.Floor(float64(weapon.AP-facingArmor)/2)+1, 0) * multiplier
	raw *= 1 - clamp01(terrainCoverFrac)*0.2
	if defender.IsGarrisoned() {
		raw *= 0.5
	}
	if defender.DugIn {
		raw *= 0.8
	}
	if weapon.SuppressOnly {
		raw = 0
	}

	if raw > 0 {
		defender.Health -= raw
	}
	return raw, facing
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
