// Package protocol defines the JSON wire shapes exchanged between a
// session and its client channels, and the conversions between those
// shapes and the simulation-internal simcore types. Nothing in simcore
// imports this package; the dependency runs one way, from protocol down
// to simcore.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/ironclad-rts/core/internal/simcore"
)

// Wire command-type tags. Stable across versions — see spec §6.2.
const (
	TypeMove              = 1
	TypeFastMove          = 2
	TypeReverse           = 3
	TypeAttack            = 4
	TypeAttackMove        = 5
	TypeStop              = 6
	TypeGarrison          = 7
	TypeUngarrison        = 8
	TypeSpawnUnit         = 9
	TypeMount             = 10
	TypeUnload            = 11
	TypeDigIn             = 12
	TypeSetReturnFireOnly = 13
)

var wireToKind = map[int]simcore.CommandKind{
	TypeMove:              simcore.CmdMove,
	TypeFastMove:          simcore.CmdFastMove,
	TypeReverse:           simcore.CmdReverse,
	TypeAttack:            simcore.CmdAttack,
	TypeAttackMove:        simcore.CmdAttackMove,
	TypeStop:              simcore.CmdStop,
	TypeGarrison:          simcore.CmdGarrison,
	TypeUngarrison:        simcore.CmdUngarrison,
	TypeSpawnUnit:         simcore.CmdSpawnUnit,
	TypeMount:             simcore.CmdMount,
	TypeUnload:            simcore.CmdUnload,
	TypeDigIn:             simcore.CmdDigIn,
	TypeSetReturnFireOnly: simcore.CmdSetReturnFireOnly,
}

var kindToWire = func() map[simcore.CommandKind]int {
	out := make(map[simcore.CommandKind]int, len(wireToKind))
	for wire, kind := range wireToKind {
		out[kind] = wire
	}
	return out
}()

// GameCommand is the wire shape of a player-issued command (spec §3, §6.2).
type GameCommand struct {
	Type         int      `json:"type"`
	Tick         int64    `json:"tick"`
	PlayerId     string   `json:"playerId"`
	UnitIds      []string `json:"unitIds"`
	TargetX      *float64 `json:"targetX,omitempty"`
	TargetZ      *float64 `json:"targetZ,omitempty"`
	TargetUnitID string   `json:"targetUnitId,omitempty"`
	Queue        bool     `json:"queue,omitempty"`
	UnitType     string   `json:"unitType,omitempty"`
	BuildingID   string   `json:"buildingId,omitempty"`
	Value        bool     `json:"value,omitempty"`
}

// ClientMessage is the single envelope clients send over their command
// stream (spec §6.2: `{type:"command", command: GameCommand}`).
type ClientMessage struct {
	Type    string      `json:"type"`
	Command GameCommand `json:"command"`
}

// IsValidCommand rejects wire commands missing required envelope fields,
// per spec §6.3. It does not check game-state validity — team ownership,
// credits, resolvability — that is AuthoritativeGame's job at tick time.
func IsValidCommand(c GameCommand) bool {
	if _, ok := wireToKind[c.Type]; !ok {
		return false
	}
	if c.PlayerId == "" {
		return false
	}
	if c.UnitIds == nil {
		return false
	}
	return true
}

// ToDomain converts a wire GameCommand into the simcore.GameCommand the
// simulation core operates on. Tick is copied through but is advisory
// only: the server executes on its own next tick, per spec §6.3.
func ToDomain(c GameCommand) (simcore.GameCommand, error) {
	kind, ok := wireToKind[c.Type]
	if !ok {
		return simcore.GameCommand{}, fmt.Errorf("protocol: unknown command type %d", c.Type)
	}
	unitIds := make([]simcore.UnitId, len(c.UnitIds))
	for i, id := range c.UnitIds {
		unitIds[i] = simcore.UnitId(id)
	}
	return simcore.GameCommand{
		Kind:         kind,
		Tick:         c.Tick,
		UnitIds:      unitIds,
		TargetX:      c.TargetX,
		TargetZ:      c.TargetZ,
		TargetUnitID: simcore.UnitId(c.TargetUnitID),
		Queue:        c.Queue,
		UnitType:     c.UnitType,
		BuildingID:   simcore.BuildingId(c.BuildingID),
		Value:        c.Value,
		// PlayerId is intentionally left zero: GameSession.HandleCommand
		// stamps it from the authenticated connection, never from the wire.
	}, nil
}

// FromDomain converts a simcore.GameCommand back into its wire shape, used
// when echoing accepted commands in a tick_update broadcast.
func FromDomain(c simcore.GameCommand) GameCommand {
	unitIds := make([]string, len(c.UnitIds))
	for i, id := range c.UnitIds {
		unitIds[i] = string(id)
	}
	return GameCommand{
		Type:         kindToWire[c.Kind],
		Tick:         c.Tick,
		PlayerId:     string(c.PlayerId),
		UnitIds:      unitIds,
		TargetX:      c.TargetX,
		TargetZ:      c.TargetZ,
		TargetUnitID: string(c.TargetUnitID),
		Queue:        c.Queue,
		UnitType:     c.UnitType,
		BuildingID:   string(c.BuildingID),
		Value:        c.Value,
	}
}

// Serialize marshals a ClientMessage to its wire bytes.
func Serialize(msg ClientMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DeserializeClientMessage parses a client-sent frame into a ClientMessage.
func DeserializeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}
