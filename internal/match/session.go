package match

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ironclad-rts/core/internal/logging"
	"github.com/ironclad-rts/core/internal/protocol"
	"github.com/ironclad-rts/core/internal/simcore"
)

// ClientChannel is the abstraction a GameSession sends to and receives
// from (spec §6.1). Production code wraps a *websocket.Conn
// (internal/transport); tests use an in-memory fake.
type ClientChannel interface {
	Send(messageBytes []byte) error
	IsAlive() bool
	Close() error
}

// SessionPlayer is one seat in a Session: identity, team, and the channel
// currently bound to them.
type SessionPlayer struct {
	ID        simcore.PlayerId
	Name      string
	Team      simcore.Team
	DeckID    string
	Channel   ClientChannel
	Connected bool
	LastSeen  time.Time
}

// GameSession binds an AuthoritativeGame to a player roster and their
// ClientChannels: it routes inbound commands, fans out broadcasts, and owns
// the match's start/end lifecycle.
type GameSession struct {
	Code      simcore.SessionCode
	Game      *AuthoritativeGame
	StartedAt time.Time
	EndedAt   *time.Time

	logger logging.Logger

	mu      sync.Mutex
	players map[simcore.PlayerId]*SessionPlayer
	active  bool

	// onGameEnd is invoked once, when EndGame takes the session out of
	// active: abandonment (HandleDisconnect), a fatal tick-loop error, or
	// an explicit end. A victory reached inside the simulation stops the
	// game but does not call EndGame, so it leaves the session active and
	// does not invoke this hook.
	onGameEnd func(code simcore.SessionCode, winner simcore.Team)
}

// NewGameSession constructs a session with its roster fixed at creation.
// The caller must have already initialized game (map, player teams).
func NewGameSession(code simcore.SessionCode, game *AuthoritativeGame, roster []SessionPlayer, logger logging.Logger, onGameEnd func(simcore.SessionCode, simcore.Team)) *GameSession {
	players := make(map[simcore.PlayerId]*SessionPlayer, len(roster))
	for i := range roster {
		p := roster[i]
		p.Connected = p.Channel != nil
		p.LastSeen = time.Now()
		players[p.ID] = &p
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	s := &GameSession{
		Code:      code,
		Game:      game,
		StartedAt: time.Now(),
		logger:    logger,
		players:   players,
		onGameEnd: onGameEnd,
	}
	return s
}

// StartGame marks the session active and starts the tick scheduler. The
// AuthoritativeGame must already have had Initialize called.
func (s *GameSession) StartGame() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	s.Game.Start()
}

// IsActive reports whether the session currently accepts commands.
func (s *GameSession) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// HandleCommand validates the wire envelope, stamps the sender's id, and
// forwards the command to the game's buffer. Rejects if the session is not
// active or the player is unknown.
func (s *GameSession) HandleCommand(playerID simcore.PlayerId, wire protocol.GameCommand) error {
	s.mu.Lock()
	active := s.active
	_, known := s.players[playerID]
	s.mu.Unlock()

	if !active {
		return fmt.Errorf("match: session %s is not active", s.Code)
	}
	if !known {
		return fmt.Errorf("match: unknown player %s", playerID)
	}
	if !protocol.IsValidCommand(wire) {
		return fmt.Errorf("match: malformed command from player %s", playerID)
	}

	cmd, err := protocol.ToDomain(wire)
	if err != nil {
		return err
	}
	cmd.PlayerId = playerID
	s.Game.ReceiveCommand(cmd)
	return nil
}

// HandleDisconnect marks a player disconnected. If no player remains
// connected, the session ends with the default winner (team1) — see
// DESIGN.md for the Open Question this resolves.
func (s *GameSession) HandleDisconnect(playerID simcore.PlayerId) {
	s.mu.Lock()
	p, ok := s.players[playerID]
	if ok {
		p.Connected = false
		p.LastSeen = time.Now()
	}
	anyConnected := false
	for _, player := range s.players {
		if player.Connected {
			anyConnected = true
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("player disconnected", logging.Fields{"session_code": string(s.Code), "player_id": string(playerID)})

	if !anyConnected {
		s.EndGame(simcore.Team1)
	}
}

// HandleReconnect swaps in a new channel for playerID and immediately sends
// it a fresh state_snapshot, per scenario S5.
func (s *GameSession) HandleReconnect(playerID simcore.PlayerId, channel ClientChannel) error {
	s.mu.Lock()
	p, ok := s.players[playerID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("match: unknown player %s", playerID)
	}
	p.Channel = channel
	p.Connected = true
	p.LastSeen = time.Now()
	team := p.Team
	s.mu.Unlock()

	snapshot := s.Game.GetStateSnapshot(team)
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return channel.Send(data)
}

// EndGame stops the simulation, broadcasts game_event(game_ended), and
// invokes the onGameEnd hook exactly once.
func (s *GameSession) EndGame(winner simcore.Team) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	now := time.Now()
	s.EndedAt = &now
	s.mu.Unlock()

	s.Game.Stop()

	score := s.Game.economy.Score()
	duration := now.Sub(s.StartedAt).Seconds()
	s.broadcast(protocol.NewGameEndedMessage(teamWireName(winner), protocol.Score{Team1: score.Team1, Team2: score.Team2}, duration))

	if s.onGameEnd != nil {
		s.onGameEnd(s.Code, winner)
	}
}

// broadcast serializes payload once and sends it to every connected
// channel. A per-channel send failure marks that channel disconnected but
// never affects the simulation.
func (s *GameSession) broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal broadcast payload", logging.Fields{"session_code": string(s.Code), "error": err.Error()})
		return
	}

	s.mu.Lock()
	recipients := make([]*SessionPlayer, 0, len(s.players))
	for _, p := range s.players {
		if p.Connected && p.Channel != nil {
			recipients = append(recipients, p)
		}
	}
	s.mu.Unlock()

	for _, p := range recipients {
		if err := p.Channel.Send(data); err != nil {
			s.mu.Lock()
			p.Connected = false
			s.mu.Unlock()
			s.logger.Warn("dropping disconnected channel", logging.Fields{"session_code": string(s.Code), "player_id": string(p.ID)})
		}
	}
}
