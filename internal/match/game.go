// Package match implements the per-match orchestration layer: the
// authoritative tick-driven simulation (AuthoritativeGame), the session
// that binds it to a player roster and their client channels (GameSession),
// and the process-wide session registry (SessionManager). Everything in
// simcore is pure and deterministic; this package is where that core meets
// goroutines, timers, and the network.
package match

import (
	"math"
	"sync"
	"time"

	"github.com/ironclad-rts/core/internal/logging"
	"github.com/ironclad-rts/core/internal/protocol"
	"github.com/ironclad-rts/core/internal/registry"
	"github.com/ironclad-rts/core/internal/rng"
	"github.com/ironclad-rts/core/internal/simcore"
)

// zoneCaptureRatePerSecond is how fast an uncontested zone's render-only
// capture progress advances toward the 100 that triggers applyZoneCapture.
// Not specified by the wire contract (§4.D calls captureProgress
// "merely carried for clients to render"); five seconds to flip a zone is
// a reasonable, bounded default recorded as a design decision.
const zoneCaptureRatePerSecond = 20.0

// BroadcastFn is invoked by AuthoritativeGame whenever it has a message for
// every connected client. The payload is one of the protocol.*Message
// types; GameSession.broadcast is the production implementation, which
// serializes once (json.Marshal) and fans the bytes out to every channel.
type BroadcastFn func(payload any)

// AuthoritativeGame is the per-match simulation: it owns the unit set, the
// deterministic RNG, every manager (economy/transport/building/smoke), the
// inbound command buffer, and the 60 Hz tick scheduler.
type AuthoritativeGame struct {
	reg    registry.Registry
	rng    *rng.RNG
	logger logging.Logger

	broadcast BroadcastFn

	cfg     GameConfig
	gameMap simcore.GameMap

	// stateMu guards every field below against concurrent reads from
	// GetStateSnapshot while the tick goroutine is the sole mutator. The
	// tick takes the write lock for the full duration of processTick; the
	// RNG is still only ever touched from the tick itself, honoring
	// invariant 6. The command buffer has its own lock, cmdMu.
	stateMu sync.RWMutex

	units       map[simcore.UnitId]*simcore.SimUnit
	unitOrder   []simcore.UnitId // insertion order, per spec §4.H step 4
	unitsByTeam map[simcore.Team]map[simcore.UnitId]struct{}

	economy   *simcore.EconomyManager
	transport *simcore.TransportManager
	building  *simcore.BuildingManager
	smoke     *simcore.SmokeManager

	playerTeams map[simcore.PlayerId]simcore.Team

	tick              int64
	phase             simcore.GamePhase
	deploymentEndTick int64

	nextUnitSeq int

	// cmdMu guards only the command buffer append/swap (spec §5: "a mutex
	// held only for the append").
	cmdMu  sync.Mutex
	cmdBuf []simcore.GameCommand

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup

	// OnPanic is invoked if the tick loop recovers from a panic, letting
	// the owning GameSession/SessionManager terminate just this session
	// rather than letting a single fatal bug crash the whole process.
	OnPanic func(recovered any)
}

// New constructs an AuthoritativeGame. Call Initialize before Start.
func New(reg registry.Registry, seed uint32, logger logging.Logger, broadcast BroadcastFn) *AuthoritativeGame {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &AuthoritativeGame{
		reg:         reg,
		rng:         rng.New(seed),
		logger:      logger,
		broadcast:   broadcast,
		units:       make(map[simcore.UnitId]*simcore.SimUnit),
		unitsByTeam: map[simcore.Team]map[simcore.UnitId]struct{}{simcore.Team1: {}, simcore.Team2: {}},
		playerTeams: make(map[simcore.PlayerId]simcore.Team),
		phase:       simcore.PhaseLoading,
	}
}

// Initialize stores the map, configures the economy and buildings, enters
// Setup phase with a deployment timer armed, and broadcasts phase_change.
func (g *AuthoritativeGame) Initialize(gameMap simcore.GameMap, playerTeams map[simcore.PlayerId]simcore.Team, cfg GameConfig) {
	g.stateMu.Lock()
	g.gameMap = gameMap
	g.cfg = cfg
	g.playerTeams = playerTeams
	g.economy = simcore.NewEconomyManager(gameMap.CaptureZones, cfg.IncomePerTick, cfg.TickDuration, cfg.VictoryThreshold, cfg.StartingCredits)
	g.building = simcore.NewBuildingManager(gameMap.Buildings)
	g.transport = simcore.NewTransportManager()
	g.smoke = simcore.NewSmokeManager()
	g.phase = simcore.PhaseSetup
	// Stored as an integer tick count, not a float accumulator, so the
	// Setup->Battle transition lands on exactly this tick regardless of
	// float rounding error accumulated over many ticks.
	g.deploymentEndTick = int64(math.Round(cfg.DeploymentDuration * cfg.TickRate))
	g.stateMu.Unlock()

	duration := cfg.DeploymentDuration
	g.emit(protocol.NewPhaseChangeMessage("deployment", &duration))
}

// Start schedules processTick to run every 1/TickRate seconds on a single
// dedicated goroutine, grounded on the teacher's time.NewTicker-driven
// gameLoop. Ticks never overlap: the loop body runs to completion before
// the next fires.
func (g *AuthoritativeGame) Start() {
	g.done = make(chan struct{})
	g.ticker = time.NewTicker(time.Duration(float64(time.Second) / g.cfg.TickRate))
	g.wg.Add(1)
	go g.runLoop()
}

func (g *AuthoritativeGame) runLoop() {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic in game tick loop", logging.Fields{"tick": g.tick, "panic": r})
			if g.OnPanic != nil {
				g.OnPanic(r)
			}
		}
	}()
	// Deferred after the recover handler so it runs first: OnPanic ends the
	// session through Stop, which waits on wg.
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case <-g.ticker.C:
			g.processTick()
		}
	}
}

// Stop cancels the scheduler. Any in-flight tick completes normally; the
// next does not start. Further ReceiveCommand calls are accepted but never
// drained.
func (g *AuthoritativeGame) Stop() {
	if g.ticker != nil {
		g.ticker.Stop()
	}
	if g.done != nil {
		select {
		case <-g.done:
			// already closed
		default:
			close(g.done)
		}
	}
	g.wg.Wait()
}

// ReceiveCommand appends cmd to the pending buffer under a mutex held only
// for the append. It MUST NOT mutate simulation state.
func (g *AuthoritativeGame) ReceiveCommand(cmd simcore.GameCommand) {
	g.cmdMu.Lock()
	g.cmdBuf = append(g.cmdBuf, cmd)
	g.cmdMu.Unlock()
}

// drainCommands atomically swaps in a fresh empty buffer and returns what
// had accumulated, lock-free after the swap.
func (g *AuthoritativeGame) drainCommands() []simcore.GameCommand {
	g.cmdMu.Lock()
	drained := g.cmdBuf
	g.cmdBuf = nil
	g.cmdMu.Unlock()
	return drained
}

// Tick returns the current tick count.
func (g *AuthoritativeGame) Tick() int64 {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.tick
}

// Phase returns the current game phase.
func (g *AuthoritativeGame) Phase() simcore.GamePhase {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.phase
}

// processTick is the exact seven-step contract from spec §4.H.
func (g *AuthoritativeGame) processTick() {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()

	// 1. Increment tick.
	g.tick++

	// 2. Drain, validate, execute.
	drained := g.drainCommands()
	accepted := make([]simcore.GameCommand, 0, len(drained))
	for _, cmd := range drained {
		if !g.validate(cmd) {
			g.logger.Warn("command rejected", logging.Fields{"tick": g.tick, "kind": cmd.Kind, "player": cmd.PlayerId})
			continue
		}
		g.execute(cmd)
		accepted = append(accepted, cmd)
	}

	dt := 1.0 / g.cfg.TickRate

	// 3. Setup-phase deployment timer, compared as an integer tick count
	// (see deploymentEndTick) rather than a float accumulator.
	if g.phase == simcore.PhaseSetup {
		if g.tick >= g.deploymentEndTick {
			g.transitionToBattleLocked()
		}
	}

	// 4. Battle-phase simulation pass.
	if g.phase == simcore.PhaseBattle {
		for _, id := range g.unitOrder {
			u, ok := g.units[id]
			if !ok || u.Health <= 0 {
				continue
			}
			u.FixedUpdate(dt, g)
		}
		g.reapDeadUnitsLocked()
		g.tickZonesLocked(dt)
		g.economy.Update(dt)
		g.smoke.Update(dt)
		g.transport.Update(dt)
	}

	// 5. Checksum.
	checksum := simcore.ChecksumUnits(g.units, g.rng.GetState())

	// 6. Broadcast tick_update.
	wireCommands := make([]protocol.GameCommand, len(accepted))
	for i, c := range accepted {
		wireCommands[i] = protocol.FromDomain(c)
	}
	g.emitLocked(protocol.TickUpdateMessage{Type: "tick_update", Tick: g.tick, Commands: wireCommands, Checksum: checksum})

	// 7. Victory check.
	if g.phase == simcore.PhaseBattle {
		if winner := g.economy.GetVictoryWinner(); winner != simcore.TeamNone {
			g.phase = simcore.PhaseVictory
			score := g.economy.Score()
			g.emitLocked(protocol.NewVictoryMessage(teamWireName(winner), protocol.Score{Team1: score.Team1, Team2: score.Team2}))
			go g.Stop()
		}
	}
}

func (g *AuthoritativeGame) transitionToBattleLocked() {
	g.phase = simcore.PhaseBattle
	for _, u := range g.units {
		u.IsFrozen = false
	}
	g.emitLocked(protocol.NewPhaseChangeMessage("battle", nil))
}

// reapDeadUnitsLocked removes every unit whose health has dropped to zero
// or below since the last tick, honoring invariant 1 (dead units are
// removed before the next tick begins).
func (g *AuthoritativeGame) reapDeadUnitsLocked() {
	var dead []simcore.UnitId
	for _, id := range g.unitOrder {
		if u, ok := g.units[id]; ok && u.Health <= 0 {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		g.destroyUnitLocked(id)
	}
}

// tickZonesLocked refreshes contested state and advances the render-only
// capture progress of each zone, flipping ownership via ApplyZoneCapture
// once a sole occupant has held a zone long enough. Only units whose spec
// has IsLogistics set count as zone occupants.
func (g *AuthoritativeGame) tickZonesLocked(dt float64) {
	g.economy.UpdateZones(func(spec simcore.CaptureZoneSpec) map[simcore.UnitId]simcore.Team {
		occupants := make(map[simcore.UnitId]simcore.Team)
		for _, id := range g.unitOrder {
			u, ok := g.units[id]
			if !ok || !u.IsActive() {
				continue
			}
			if us, ok := g.reg.Unit(u.UnitType); !ok || !us.IsLogistics {
				continue
			}
			if spec.Contains(u.Position) {
				occupants[u.ID] = u.Team
			}
		}
		return occupants
	})

	for _, z := range g.economy.Zones() {
		if z.IsContested() {
			continue
		}
		team, ok := z.SoleOccupyingTeam()
		if !ok || team == z.Owner {
			continue
		}
		z.CaptureProgress += zoneCaptureRatePerSecond * dt
		if z.CaptureProgress >= 100 {
			g.economy.ApplyZoneCapture(z.Spec.ID, team)
		}
	}
}

func teamWireName(t simcore.Team) string {
	switch t {
	case simcore.Team1:
		return "player"
	case simcore.Team2:
		return "enemy"
	default:
		return ""
	}
}

// emit marshals and broadcasts payload without holding stateMu (used
// outside processTick, e.g. from Initialize).
func (g *AuthoritativeGame) emit(payload any) {
	if g.broadcast != nil {
		g.broadcast(payload)
	}
}

// emitLocked is identical to emit but documents that it is only ever
// called while stateMu is already held by the caller.
func (g *AuthoritativeGame) emitLocked(payload any) {
	g.emit(payload)
}

// DestroyUnit removes u from every index: the unit map, its team index,
// transport/building membership. Safe to call outside a tick (e.g. from
// administrative cleanup); normal destruction happens via reapDeadUnitsLocked.
func (g *AuthoritativeGame) DestroyUnit(id simcore.UnitId) {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	g.destroyUnitLocked(id)
}

func (g *AuthoritativeGame) destroyUnitLocked(id simcore.UnitId) {
	u, ok := g.units[id]
	if !ok {
		return
	}
	delete(g.units, id)
	delete(g.unitsByTeam[u.Team], id)
	for i, existing := range g.unitOrder {
		if existing == id {
			g.unitOrder = append(g.unitOrder[:i], g.unitOrder[i+1:]...)
			break
		}
	}
	g.transport.RemoveUnit(id)
	g.building.RemoveUnit(u)
}

// GetStateSnapshot returns a full, serializable snapshot for resync.
// perspective selects whose credits/score are reported as "player" vs "enemy" in the
// returned frame.
func (g *AuthoritativeGame) GetStateSnapshot(perspective simcore.Team) protocol.StateSnapshotMessage {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	units := make([]protocol.UnitSnapshot, 0, len(g.unitOrder))
	for _, id := range g.unitOrder {
		u, ok := g.units[id]
		if !ok {
			continue
		}
		units = append(units, protocol.UnitSnapshot{
			ID:        string(u.ID),
			UnitType:  u.UnitType,
			Team:      teamWireName(u.Team),
			OwnerID:   string(u.OwnerID),
			X:         u.Position.X,
			Y:         0,
			Z:         u.Position.Z,
			Health:    u.Health,
			Morale:    u.Morale,
			RotationY: u.RotationY,
		})
	}

	opponent := perspective.Opponent()
	score := g.economy.Score()
	return protocol.StateSnapshotMessage{
		Type:  "state_snapshot",
		Tick:  g.tick,
		Units: units,
		Economy: protocol.EconomySnapshot{
			PlayerCredits: g.economy.Credits(perspective),
			EnemyCredits:  g.economy.Credits(opponent),
		},
		Score: protocol.ScoreSnapshot{
			Player: score.For(perspective),
			Enemy:  score.For(opponent),
		},
		Phase: g.phase.String(),
	}
}

// --- UnitWorld implementation: the read-only surface SimUnit.FixedUpdate
// queries. All of it runs from within processTick, which already holds
// stateMu for writing, so no additional locking is needed here.

func (g *AuthoritativeGame) RNG() *rng.RNG            { return g.rng }
func (g *AuthoritativeGame) Registry() registry.Registry { return g.reg }
func (g *AuthoritativeGame) NowSeconds() float64      { return float64(g.tick) / g.cfg.TickRate }
func (g *AuthoritativeGame) Map() simcore.GameMap      { return g.gameMap }

func (g *AuthoritativeGame) FindUnit(id simcore.UnitId) (*simcore.SimUnit, bool) {
	u, ok := g.units[id]
	return u, ok
}

// NearestEnemyInRange scans units in insertion order (never map iteration
// order) so the result is reproducible across nodes given identical state.
func (g *AuthoritativeGame) NearestEnemyInRange(from *simcore.SimUnit, rangeUnits float64) (*simcore.SimUnit, bool) {
	var best *simcore.SimUnit
	bestDist := rangeUnits
	for _, id := range g.unitOrder {
		u, ok := g.units[id]
		if !ok || u.Health <= 0 || !u.IsActive() || u.Team == from.Team {
			continue
		}
		d := from.Position.DistanceTo(u.Position)
		if d <= bestDist {
			best = u
			bestDist = d
		}
	}
	return best, best != nil
}

// TerrainCoverAt resolves the cover fraction of the terrain cell under p,
// or 0 if p falls outside the map grid.
func (g *AuthoritativeGame) TerrainCoverAt(p simcore.Vec2) float64 {
	if g.gameMap.CellSize <= 0 {
		return 0
	}
	col := int(p.X / g.gameMap.CellSize)
	row := int(p.Z / g.gameMap.CellSize)
	if row < 0 || row >= len(g.gameMap.Terrain) {
		return 0
	}
	if col < 0 || col >= len(g.gameMap.Terrain[row]) {
		return 0
	}
	return g.gameMap.Terrain[row][col].CoverBonus
}

// IsObscured reports whether p falls inside an active smoke cloud.
func (g *AuthoritativeGame) IsObscured(p simcore.Vec2) bool {
	return g.smoke.IsPointObscured(p)
}
