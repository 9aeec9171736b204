package transport

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ironclad-rts/core/internal/logging"
	"github.com/ironclad-rts/core/internal/match"
	"github.com/ironclad-rts/core/internal/simcore"
)

// createSessionRequest is the minimal matchmaking request this reference
// server accepts. Real deployments own matchmaking and map generation
// (both explicitly out of scope) and would call SessionManager.CreateSession
// directly instead of going through HTTP like this.
type createSessionRequest struct {
	Code    string                    `json:"code"`
	Seed    uint32                    `json:"seed"`
	Players []createSessionPlayerSpec `json:"players"`
	Map     *GameMapRequest           `json:"map,omitempty"`
}

type createSessionPlayerSpec struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"` // "team1" | "team2"
}

// GameMapRequest is a flat, demo-sized map description. Not a map
// generator — it exists so the reference server can be driven end to end
// without a real map-authoring pipeline.
type GameMapRequest struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	CellSize float64 `json:"cellSize"`
}

// RegisterCreateSession adds the matchmaking endpoint to mux. Kept
// separate from Mux so a production deployment that supplies sessions
// out-of-band can omit it entirely.
func (s *Server) RegisterCreateSession(mux *http.ServeMux, gameCfg match.GameConfig) {
	mux.HandleFunc("/sessions", s.handleCreateSession(gameCfg))
}

func (s *Server) handleCreateSession(gameCfg match.GameConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if len(req.Players) == 0 {
			http.Error(w, "players are required", http.StatusBadRequest)
			return
		}
		// Matchmaking owns code allocation in a real deployment; this
		// reference endpoint mints one with uuid when the caller doesn't
		// supply it, since session codes aren't part of the deterministic
		// simulation path and never need to be replay-reproducible.
		code := req.Code
		if code == "" {
			code = uuid.NewString()
		}

		gameMap := defaultGameMap(req.Map)

		playerTeams := make(map[simcore.PlayerId]simcore.Team, len(req.Players))
		roster := make([]match.SessionPlayer, 0, len(req.Players))
		for _, p := range req.Players {
			team := simcore.Team1
			if p.Team == "team2" {
				team = simcore.Team2
			}
			playerTeams[simcore.PlayerId(p.ID)] = team
			roster = append(roster, match.SessionPlayer{ID: simcore.PlayerId(p.ID), Name: p.Name, Team: team})
		}

		session, err := s.Sessions.CreateSession(simcore.SessionCode(code), req.Seed, gameMap, playerTeams, roster, gameCfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		session.StartGame()

		s.logger.Info("session started", logging.Fields{"session_code": code, "players": len(req.Players)})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"code": code})
	}
}

func defaultGameMap(req *GameMapRequest) simcore.GameMap {
	width, height, cellSize := 64, 64, 10.0
	if req != nil {
		if req.Width > 0 {
			width = req.Width
		}
		if req.Height > 0 {
			height = req.Height
		}
		if req.CellSize > 0 {
			cellSize = req.CellSize
		}
	}
	terrain := make([][]simcore.TerrainCell, height)
	for row := range terrain {
		terrain[row] = make([]simcore.TerrainCell, width)
		for col := range terrain[row] {
			terrain[row][col] = simcore.TerrainCell{Passable: true}
		}
	}
	return simcore.GameMap{
		CellSize: cellSize,
		Width:    width,
		Height:   height,
		Terrain:  terrain,
		CaptureZones: []simcore.CaptureZoneSpec{
			{ID: "zone-center", Center: simcore.Vec2{X: float64(width) * cellSize / 2, Z: float64(height) * cellSize / 2}, Width: 100, Height: 100, PointsPerTick: 5},
		},
	}
}
