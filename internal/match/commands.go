package match

import (
	"fmt"

	"github.com/ironclad-rts/core/internal/simcore"
)

// validate applies spec §4.H's command validation rules. It must not
// mutate simulation state — only execute does that, and only for commands
// that pass validate. Call sites already hold stateMu for writing.
func (g *AuthoritativeGame) validate(cmd simcore.GameCommand) bool {
	team, known := g.playerTeams[cmd.PlayerId]
	if !known {
		return false
	}

	if cmd.Kind == simcore.CmdSpawnUnit {
		spec, ok := g.reg.Unit(cmd.UnitType)
		if !ok {
			return false
		}
		if g.economy.Credits(team) < spec.SpawnCost {
			return false
		}
		return cmd.HasTarget()
	}

	for _, id := range cmd.UnitIds {
		u, ok := g.units[id]
		if !ok || u.Health <= 0 {
			return false
		}
		if u.Team != team {
			return false
		}
	}

	switch cmd.Kind {
	case simcore.CmdAttack:
		target, ok := g.units[cmd.TargetUnitID]
		if !ok || target.Health <= 0 {
			return false
		}
	case simcore.CmdMove, simcore.CmdFastMove, simcore.CmdReverse, simcore.CmdAttackMove:
		if !cmd.HasTarget() {
			return false
		}
	case simcore.CmdMount:
		if _, ok := g.units[cmd.TargetUnitID]; !ok {
			return false
		}
	}
	return true
}

// execute applies a validated command to simulation state. Call sites
// already hold stateMu for writing.
func (g *AuthoritativeGame) execute(cmd simcore.GameCommand) {
	switch cmd.Kind {
	case simcore.CmdSpawnUnit:
		g.executeSpawn(cmd)
		return
	case simcore.CmdMount:
		g.executeMount(cmd)
		return
	case simcore.CmdUnload:
		g.executeUnload(cmd)
		return
	case simcore.CmdGarrison:
		g.executeGarrison(cmd)
		return
	case simcore.CmdUngarrison:
		g.executeUngarrison(cmd)
		return
	}

	for _, id := range cmd.UnitIds {
		u, ok := g.units[id]
		if !ok {
			continue
		}
		g.executeOnUnit(u, cmd)
	}
}

func (g *AuthoritativeGame) executeOnUnit(u *simcore.SimUnit, cmd simcore.GameCommand) {
	switch cmd.Kind {
	case simcore.CmdMove:
		u.DugIn = false
		u.EnqueueCommand(simcore.UnitCommand{Kind: simcore.CmdMove, Target: g.gameMap.Clamp(cmd.Target()), Queue: cmd.Queue})
	case simcore.CmdFastMove:
		u.DugIn = false
		u.EnqueueCommand(simcore.UnitCommand{Kind: simcore.CmdFastMove, Target: g.gameMap.Clamp(cmd.Target()), Queue: cmd.Queue})
	case simcore.CmdReverse:
		u.DugIn = false
		u.EnqueueCommand(simcore.UnitCommand{Kind: simcore.CmdReverse, Target: g.gameMap.Clamp(cmd.Target()), Queue: cmd.Queue})
	case simcore.CmdAttackMove:
		u.DugIn = false
		u.EnqueueCommand(simcore.UnitCommand{Kind: simcore.CmdAttackMove, Target: g.gameMap.Clamp(cmd.Target()), Queue: cmd.Queue})
	case simcore.CmdAttack:
		u.EnqueueCommand(simcore.UnitCommand{Kind: simcore.CmdAttack, TargetUnitID: cmd.TargetUnitID, Queue: cmd.Queue})
	case simcore.CmdStop:
		u.ClearCommands()
	case simcore.CmdDigIn:
		u.ClearCommands()
		u.DugIn = true
	case simcore.CmdSetReturnFireOnly:
		u.ReturnFireOnly = cmd.Value
	}
}

func (g *AuthoritativeGame) executeSpawn(cmd simcore.GameCommand) {
	team := g.playerTeams[cmd.PlayerId]
	spec, ok := g.reg.Unit(cmd.UnitType)
	if !ok {
		return
	}
	if !g.economy.SpendCredits(team, spec.SpawnCost) {
		return
	}
	g.nextUnitSeq++
	id := simcore.UnitId(fmt.Sprintf("unit-%d", g.nextUnitSeq))
	pos := g.gameMap.Clamp(cmd.Target())
	u := simcore.NewSimUnit(id, cmd.UnitType, team, cmd.PlayerId, spec, pos, 0)
	g.units[id] = u
	g.unitOrder = append(g.unitOrder, id)
	g.unitsByTeam[team][id] = struct{}{}
}

func (g *AuthoritativeGame) executeMount(cmd simcore.GameCommand) {
	transport, ok := g.units[cmd.TargetUnitID]
	if !ok {
		return
	}
	transportSpec, ok := g.reg.Unit(transport.UnitType)
	if !ok || transportSpec.TransportSlots <= 0 {
		return
	}
	for _, id := range cmd.UnitIds {
		passenger, ok := g.units[id]
		if !ok {
			continue
		}
		passengerSpec, ok := g.reg.Unit(passenger.UnitType)
		if !ok {
			continue
		}
		g.transport.TryMount(passenger, transport, transportSpec.TransportSlots, passengerSpec.TransportCost)
	}
}

func (g *AuthoritativeGame) executeUnload(cmd simcore.GameCommand) {
	for _, id := range cmd.UnitIds {
		transport, ok := g.units[id]
		if !ok {
			continue
		}
		g.transport.UnloadAll(transport, g.units, g.rng)
	}
}

func (g *AuthoritativeGame) executeGarrison(cmd simcore.GameCommand) {
	for _, id := range cmd.UnitIds {
		u, ok := g.units[id]
		if !ok {
			continue
		}
		g.building.TryGarrison(u, cmd.BuildingID)
	}
}

func (g *AuthoritativeGame) executeUngarrison(cmd simcore.GameCommand) {
	for _, id := range cmd.UnitIds {
		u, ok := g.units[id]
		if !ok {
			continue
		}
		if pos, ok := g.building.Ungarrison(u, g.rng); ok {
			u.Position = g.gameMap.Clamp(pos)
		}
	}
}
