package transport

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ironclad-rts/core/internal/logging"
	"github.com/ironclad-rts/core/internal/match"
	"github.com/ironclad-rts/core/internal/protocol"
	"github.com/ironclad-rts/core/internal/simcore"
)

// Server binds a match.SessionManager to an HTTP listener, upgrading
// `/ws` connections and routing their frames into the addressed session,
// grounded on the teacher's main.go http.HandleFunc wiring and
// HandleWebSocket in server/websocket.go.
type Server struct {
	Sessions *match.SessionManager
	logger   logging.Logger
}

// NewServer constructs a transport Server.
func NewServer(sessions *match.SessionManager, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Server{Sessions: sessions, logger: logger}
}

// Mux builds the HTTP handler: /ws for the game protocol, /healthz for
// liveness checks. allowedOrigins extends the default same-origin/
// localhost allow-list used by the websocket upgrader.
func (s *Server) Mux(allowedOrigins []string) *http.ServeMux {
	mux := http.NewServeMux()
	upgrader := NewUpgrader(allowedOrigins)
	mux.HandleFunc("/ws", s.handleWebSocket(upgrader))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	load := s.Sessions.GetLoadInfo()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"active_games":   load.ActiveGames,
		"max_games":      load.MaxGames,
		"active_players": load.ActivePlayers,
	})
}

// handleWebSocket upgrades the connection and wires it into the session
// named by the `session`/`player` query parameters. The same path serves
// both a player's first connection and a reconnect — GameSession.
// HandleReconnect covers both, since a roster seat's channel starts nil.
func (s *Server) handleWebSocket(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionCode := simcore.SessionCode(r.URL.Query().Get("session"))
		playerID := simcore.PlayerId(r.URL.Query().Get("player"))
		if sessionCode == "" || playerID == "" {
			http.Error(w, "session and player query parameters are required", http.StatusBadRequest)
			return
		}

		session, ok := s.Sessions.Get(sessionCode)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", logging.Fields{"error": err.Error()})
			return
		}

		onMessage := func(data []byte) {
			msg, err := protocol.DeserializeClientMessage(data)
			if err != nil {
				s.logger.Warn("malformed client frame", logging.Fields{"session_code": string(sessionCode), "player_id": string(playerID)})
				return
			}
			if msg.Type != "command" {
				return
			}
			if err := session.HandleCommand(playerID, msg.Command); err != nil {
				s.logger.Warn("command rejected", logging.Fields{"session_code": string(sessionCode), "player_id": string(playerID), "error": err.Error()})
			}
		}
		onClose := func() {
			session.HandleDisconnect(playerID)
		}

		channel := NewChannel(conn, onMessage, onClose)
		if err := session.HandleReconnect(playerID, channel); err != nil {
			s.logger.Warn("connect rejected", logging.Fields{"session_code": string(sessionCode), "player_id": string(playerID), "error": err.Error()})
			channel.Close()
		}
	}
}
