package match

import (
	"testing"
	"time"

	"github.com/ironclad-rts/core/internal/protocol"
	"github.com/ironclad-rts/core/internal/registry"
	"github.com/ironclad-rts/core/internal/simcore"
)

func flatTestMap(width, height int, cellSize float64) simcore.GameMap {
	terrain := make([][]simcore.TerrainCell, height)
	for row := range terrain {
		terrain[row] = make([]simcore.TerrainCell, width)
		for col := range terrain[row] {
			terrain[row][col] = simcore.TerrainCell{Passable: true}
		}
	}
	return simcore.GameMap{CellSize: cellSize, Width: width, Height: height, Terrain: terrain}
}

func testConfig() GameConfig {
	cfg := DefaultGameConfig()
	cfg.DeploymentDuration = 0 // skip straight to battle in most tests
	return cfg
}

func newTestGame(t *testing.T, playerTeams map[simcore.PlayerId]simcore.Team) (*AuthoritativeGame, []any) {
	t.Helper()
	var captured []any
	g := New(registry.NewStaticRegistry(), 42, nil, func(payload any) {
		captured = append(captured, payload)
	})
	g.Initialize(flatTestMap(64, 64, 10), playerTeams, testConfig())
	return g, captured
}

func TestInitializeEntersSetupPhase(t *testing.T) {
	g, _ := newTestGame(t, map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1})
	if g.Phase() != simcore.PhaseSetup {
		t.Fatalf("expected Setup phase after Initialize, got %v", g.Phase())
	}
}

func TestDeploymentTimerTransitionsToBattle(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.DeploymentDuration = 2.0 / cfg.TickRate // exactly 2 ticks
	g := New(registry.NewStaticRegistry(), 1, nil, func(any) {})
	g.Initialize(flatTestMap(64, 64, 10), map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1}, cfg)

	g.processTick()
	if g.Phase() != simcore.PhaseSetup {
		t.Fatalf("expected still Setup after 1 tick, got %v", g.Phase())
	}
	g.processTick()
	if g.Phase() != simcore.PhaseBattle {
		t.Fatalf("expected Battle after deployment timer expiry, got %v", g.Phase())
	}
}

func TestSpawnRequiresSufficientCredits(t *testing.T) {
	g, _ := newTestGame(t, map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1})
	g.processTick() // enters Battle immediately (DeploymentDuration=0)

	x, z := 100.0, 100.0
	cmd := simcore.GameCommand{Kind: simcore.CmdSpawnUnit, PlayerId: "p1", UnitType: "mbt_heavy", TargetX: &x, TargetZ: &z}
	// mbt_heavy costs 200; starting credits default 500, affordable.
	g.ReceiveCommand(cmd)
	g.processTick()

	if len(g.units) != 1 {
		t.Fatalf("expected 1 unit spawned, got %d", len(g.units))
	}

	// A second heavy tank costs another 200, leaving 100 credits — the
	// third should be rejected for insufficient funds.
	g.ReceiveCommand(cmd)
	g.processTick()
	g.ReceiveCommand(cmd)
	g.processTick()

	if got := g.economy.Credits(simcore.Team1); got != 100 {
		t.Fatalf("expected 100 credits left (500 - 200 - 200, third spawn rejected), got %d", got)
	}
	if len(g.units) != 2 {
		t.Fatalf("expected exactly 2 units (third spawn should be rejected), got %d", len(g.units))
	}
}

func TestCrossTeamCommandRejected(t *testing.T) {
	g, _ := newTestGame(t, map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1, "p2": simcore.Team2})
	g.processTick()

	x, z := 10.0, 10.0
	spawn := simcore.GameCommand{Kind: simcore.CmdSpawnUnit, PlayerId: "p1", UnitType: "inf_rifle", TargetX: &x, TargetZ: &z}
	g.ReceiveCommand(spawn)
	g.processTick()

	var unitID simcore.UnitId
	for id := range g.units {
		unitID = id
	}
	originalPos := g.units[unitID].Position

	tx, tz := 500.0, 500.0
	move := simcore.GameCommand{Kind: simcore.CmdMove, PlayerId: "p2", UnitIds: []simcore.UnitId{unitID}, TargetX: &tx, TargetZ: &tz}
	g.ReceiveCommand(move)
	g.processTick()

	if g.units[unitID].Position != originalPos {
		t.Fatalf("cross-team move command should have been rejected, unit moved from %+v to %+v", originalPos, g.units[unitID].Position)
	}
}

func TestChecksumDeterministicAcrossReplay(t *testing.T) {
	run := func() uint32 {
		g := New(registry.NewStaticRegistry(), 42, nil, func(any) {})
		cfg := DefaultGameConfig()
		cfg.DeploymentDuration = 0
		g.Initialize(flatTestMap(64, 64, 10), map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1}, cfg)
		g.processTick() // -> Battle

		for tick := int64(1); tick <= 20; tick++ {
			if tick == 5 {
				x, z := 10.0, 10.0
				g.ReceiveCommand(simcore.GameCommand{Kind: simcore.CmdSpawnUnit, PlayerId: "p1", UnitType: "inf_rifle", TargetX: &x, TargetZ: &z})
			}
			if tick == 10 {
				var id simcore.UnitId
				for uid := range g.units {
					id = uid
				}
				tx, tz := 20.0, 10.0
				g.ReceiveCommand(simcore.GameCommand{Kind: simcore.CmdMove, PlayerId: "p1", UnitIds: []simcore.UnitId{id}, TargetX: &tx, TargetZ: &tz})
			}
			g.processTick()
		}
		return simcore.ChecksumUnits(g.units, g.rng.GetState())
	}

	a := run()
	b := run()
	if a != b {
		t.Fatalf("replaying the same seed and command stream produced different checksums: %d != %d", a, b)
	}
}

func TestVictoryBroadcastsGameEvent(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.DeploymentDuration = 0
	cfg.VictoryThreshold = 5
	cfg.TickDuration = 1.0 / cfg.TickRate // one tick per economy event
	cfg.IncomePerTick = 0

	gameMap := flatTestMap(64, 64, 10)
	gameMap.CaptureZones = []simcore.CaptureZoneSpec{{ID: "z1", Center: simcore.Vec2{X: 0, Z: 0}, Width: 1000, Height: 1000, PointsPerTick: 10}}

	var captured []any
	g := New(registry.NewStaticRegistry(), 1, nil, func(payload any) { captured = append(captured, payload) })
	g.Initialize(gameMap, map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1}, cfg)
	g.processTick() // -> Battle
	g.economy.ApplyZoneCapture("z1", simcore.Team1)

	foundVictory := false
	for i := 0; i < 5 && !foundVictory; i++ {
		g.processTick()
		for _, payload := range captured {
			if ev, ok := payload.(protocol.GameEventMessage); ok && ev.EventType == "victory" {
				foundVictory = true
			}
		}
	}
	if !foundVictory {
		t.Fatalf("expected a victory game_event broadcast once the threshold was crossed")
	}
	if g.Phase() != simcore.PhaseVictory {
		t.Fatalf("expected phase Victory, got %v", g.Phase())
	}
	g.wg.Wait()
}

func TestStartStopDoesNotDeadlock(t *testing.T) {
	g, _ := newTestGame(t, map[simcore.PlayerId]simcore.Team{"p1": simcore.Team1})
	g.Start()
	time.Sleep(20 * time.Millisecond)
	g.Stop()
	if g.Tick() == 0 {
		t.Fatalf("expected at least one tick to have run")
	}
}
