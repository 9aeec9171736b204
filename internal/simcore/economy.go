package simcore

// Default game-balance constants; overridable via the configuration
// surface at process startup.
const (
	DefaultIncomePerTick     = 10
	DefaultTickDuration      = 4.0 // seconds between economy tick events
	DefaultVictoryThreshold  = 2000
	DefaultStartingCredits   = 500
)

// ZoneCaptureEvent is published only when a capture zone's ownership
// actually changes, driven by an authoritative applyZoneCapture call —
// never by internal progress accrual alone.
type ZoneCaptureEvent struct {
	ZoneID   string
	NewOwner Team
}

// CaptureZone is the mutable runtime counterpart to a map's
// CaptureZoneSpec: current ownership, render-only progress, and the
// per-team occupant bookkeeping needed to detect contested transitions.
type CaptureZone struct {
	Spec            CaptureZoneSpec
	Owner           Team
	CaptureProgress float64 // 0..100, render-only; ownership changes only via applyZoneCapture
	contested       bool
	occupants       map[UnitId]Team
}

// EconomyManager tracks each team's credit pool, the running TeamScore,
// and the set of capture zones that feed both.
type EconomyManager struct {
	incomePerTick    int
	tickDuration     float64
	victoryThreshold int

	credits map[Team]int
	score   TeamScore

	zones     map[string]*CaptureZone
	zoneOrder []string // stable iteration order, matches spec's map load order

	accumulator float64
	pending     []ZoneCaptureEvent
}

// NewEconomyManager configures the economy with the map's capture zones
// and the starting credit pool for both teams.
func NewEconomyManager(zones []CaptureZoneSpec, incomePerTick int, tickDuration float64, victoryThreshold, startingCredits int) *EconomyManager {
	em := &EconomyManager{
		incomePerTick:    incomePerTick,
		tickDuration:     tickDuration,
		victoryThreshold: victoryThreshold,
		credits:          map[Team]int{Team1: startingCredits, Team2: startingCredits},
		zones:            make(map[string]*CaptureZone, len(zones)),
	}
	for _, z := range zones {
		em.zones[z.ID] = &CaptureZone{Spec: z, Owner: TeamNone, occupants: map[UnitId]Team{}}
		em.zoneOrder = append(em.zoneOrder, z.ID)
	}
	return em
}

// Credits returns team's current credit balance.
func (e *EconomyManager) Credits(team Team) int { return e.credits[team] }

// Score returns the current TeamScore.
func (e *EconomyManager) Score() TeamScore { return e.score }

// SpendCredits deducts cost from team if affordable, returning false
// (and leaving the balance unchanged) otherwise.
func (e *EconomyManager) SpendCredits(team Team, cost int) bool {
	if e.credits[team] < cost {
		return false
	}
	e.credits[team] -= cost
	return true
}

// Zone returns the runtime zone state by id.
func (e *EconomyManager) Zone(id string) (*CaptureZone, bool) {
	z, ok := e.zones[id]
	return z, ok
}

// Zones returns runtime zone state in the map's declared order.
func (e *EconomyManager) Zones() []*CaptureZone {
	out := make([]*CaptureZone, 0, len(e.zoneOrder))
	for _, id := range e.zoneOrder {
		out = append(out, e.zones[id])
	}
	return out
}

// IsContested reports whether the zone currently has live occupants from
// both sides, as of the last UpdateZones call.
func (z *CaptureZone) IsContested() bool { return z.contested }

// SoleOccupyingTeam reports the one team currently occupying the zone, if
// exactly one side is present (never both, never neither).
func (z *CaptureZone) SoleOccupyingTeam() (Team, bool) {
	if z.contested || len(z.occupants) == 0 {
		return TeamNone, false
	}
	var team Team
	for _, t := range z.occupants {
		team = t
		break
	}
	return team, true
}

// ZoneOccupantQuery is the caller's spatial query callback: it reports the
// units currently inside zone, each mapped to its team.
type ZoneOccupantQuery func(zone CaptureZoneSpec) map[UnitId]Team

// UpdateZones runs the per-sim-tick zone pass: refresh occupancy, detect
// contested transitions. It does not change ownership — that only
// happens via ApplyZoneCapture, driven by the authoritative caller once
// progress or game rules decide a zone should flip.
func (e *EconomyManager) UpdateZones(query ZoneOccupantQuery) (becameContested []string) {
	for _, id := range e.zoneOrder {
		z := e.zones[id]
		occupants := query(z.Spec)
		if occupants == nil {
			occupants = map[UnitId]Team{}
		}

		playerCount, enemyCount := 0, 0
		for _, t := range occupants {
			switch {
			case z.Owner != TeamNone && t == z.Owner:
				playerCount++
			case z.Owner == TeamNone && t == Team1:
				playerCount++
			default:
				enemyCount++
			}
		}
		isContested := playerCount > 0 && enemyCount > 0
		if isContested && !z.contested {
			becameContested = append(becameContested, id)
		}
		z.contested = isContested
		z.occupants = occupants
	}
	return becameContested
}

// ApplyZoneCapture is the sole path by which a zone's ownership changes.
// It publishes a ZoneCaptureEvent only when the owner actually changes.
func (e *EconomyManager) ApplyZoneCapture(zoneID string, team Team) {
	z, ok := e.zones[zoneID]
	if !ok || z.Owner == team {
		return
	}
	z.Owner = team
	z.CaptureProgress = 0
	e.pending = append(e.pending, ZoneCaptureEvent{ZoneID: zoneID, NewOwner: team})
}

// DrainEvents returns and clears pending ZoneCaptureEvents accumulated
// since the last call.
func (e *EconomyManager) DrainEvents() []ZoneCaptureEvent {
	out := e.pending
	e.pending = nil
	return out
}

// Update advances the tick-event accumulator by dt seconds. When a tick
// event fires, both teams accrue incomePerTick plus pointsPerTick for
// each zone they own, in team1-then-team2 order so that simultaneous
// threshold crossings break ties toward team1.
func (e *EconomyManager) Update(dt float64) {
	e.accumulator += dt
	for e.accumulator >= e.tickDuration {
		e.accumulator -= e.tickDuration
		e.fireTickEvent()
	}
}

func (e *EconomyManager) fireTickEvent() {
	for _, team := range []Team{Team1, Team2} {
		e.credits[team] += e.incomePerTick
		points := 0
		for _, id := range e.zoneOrder {
			z := e.zones[id]
			if z.Owner == team {
				points += z.Spec.PointsPerTick
			}
		}
		switch team {
		case Team1:
			e.score.Team1 += points
		case Team2:
			e.score.Team2 += points
		}
	}
}

// GetVictoryWinner returns the team that has reached the victory
// threshold this tick, or TeamNone if neither has. Team1 is checked
// first, matching the team1-before-team2 tie-break in fireTickEvent.
func (e *EconomyManager) GetVictoryWinner() Team {
	if e.score.Team1 >= e.victoryThreshold {
		return Team1
	}
	if e.score.Team2 >= e.victoryThreshold {
		return Team2
	}
	return TeamNone
}
