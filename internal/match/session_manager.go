package match

import (
	"fmt"
	"sync"
	"time"

	"github.com/ironclad-rts/core/internal/logging"
	"github.com/ironclad-rts/core/internal/registry"
	"github.com/ironclad-rts/core/internal/simcore"
)

// disposalDelay is how long a terminated session is kept registered after
// it ends, so its final broadcasts have time to reach every channel before
// the session is forgotten (spec §3 Lifecycle, §4.J).
const disposalDelay = 5 * time.Second

// LoadInfo reports the process-wide session load.
type LoadInfo struct {
	ActiveGames   int
	MaxGames      int
	ActivePlayers int
}

// SessionManager is the process-wide registry of active sessions. It
// enforces a concurrent-session cap and schedules deferred disposal after a
// session ends.
type SessionManager struct {
	reg    registry.Registry
	logger logging.Logger
	maxGames int

	mu       sync.Mutex
	sessions map[simcore.SessionCode]*GameSession
}

// NewSessionManager constructs a manager capped at maxGames concurrent
// sessions (spec default 20).
func NewSessionManager(reg registry.Registry, logger logging.Logger, maxGames int) *SessionManager {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &SessionManager{
		reg:      reg,
		logger:   logger,
		maxGames: maxGames,
		sessions: make(map[simcore.SessionCode]*GameSession),
	}
}

// CreateSession registers a new session under code, failing if the cap is
// reached or the code is already in use. The returned session's game has
// already been Initialized with gameMap/cfg/playerTeams but is not yet
// started — call StartGame to begin ticking.
func (m *SessionManager) CreateSession(code simcore.SessionCode, seed uint32, gameMap simcore.GameMap, playerTeams map[simcore.PlayerId]simcore.Team, roster []SessionPlayer, cfg GameConfig) (*GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxGames {
		return nil, fmt.Errorf("match: session cap reached (%d/%d)", len(m.sessions), m.maxGames)
	}
	if _, exists := m.sessions[code]; exists {
		return nil, fmt.Errorf("match: session code %q already in use", code)
	}

	game := New(m.reg, seed, m.logger, nil)

	var session *GameSession
	session = NewGameSession(code, game, roster, m.logger, func(endedCode simcore.SessionCode, winner simcore.Team) {
		m.scheduleDisposal(endedCode)
	})
	game.broadcast = session.broadcast
	game.OnPanic = func(recovered any) {
		m.logger.Error("fatal session error, terminating session", logging.Fields{"session_code": string(code), "panic": recovered})
		// The failure is generic to the tick loop, not attributable to
		// either side, so the match ends abandoned rather than crediting
		// either team a win.
		m.TerminateSession(code, simcore.TeamNone)
	}

	game.Initialize(gameMap, playerTeams, cfg)

	m.sessions[code] = session
	m.logger.Info("session created", logging.Fields{"session_code": string(code), "players": len(roster)})
	return session, nil
}

// Get returns the session registered under code, if any.
func (m *SessionManager) Get(code simcore.SessionCode) (*GameSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	return s, ok
}

// scheduleDisposal removes the session from the registry after
// disposalDelay, giving its final broadcasts time to flush first.
func (m *SessionManager) scheduleDisposal(code simcore.SessionCode) {
	time.AfterFunc(disposalDelay, func() {
		m.mu.Lock()
		delete(m.sessions, code)
		m.mu.Unlock()
		m.logger.Info("session disposed", logging.Fields{"session_code": string(code)})
	})
}

// TerminateSession force-ends a session immediately — used by the fatal
// session-error recovery path (spec §7): a panic inside one session's tick
// loop must never take down any other session.
func (m *SessionManager) TerminateSession(code simcore.SessionCode, winner simcore.Team) {
	m.mu.Lock()
	s, ok := m.sessions[code]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.EndGame(winner)
}

// GetLoadInfo reports the current process-wide session load.
func (m *SessionManager) GetLoadInfo() LoadInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := 0
	for _, s := range m.sessions {
		s.mu.Lock()
		players += len(s.players)
		s.mu.Unlock()
	}
	return LoadInfo{ActiveGames: len(m.sessions), MaxGames: m.maxGames, ActivePlayers: players}
}
