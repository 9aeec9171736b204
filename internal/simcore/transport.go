package simcore

import (
	"math"
	"sort"

	"github.com/ironclad-rts/core/internal/rng"
)

// TransportEvent is emitted whenever a mount/unload relationship changes,
// consumed by the broadcast layer so clients can animate the transition.
type TransportEvent struct {
	Kind      TransportEventKind
	Transport UnitId
	Passenger UnitId
	Position  Vec2 // unload/ungarrison exit position, zero otherwise
}

// TransportEventKind tags a TransportEvent's variant.
type TransportEventKind int

const (
	TransportMounted TransportEventKind = iota
	TransportUnloaded
)

// TransportManager owns the passenger<->transport relation. Units are
// referenced by id through the owning game's unit map; TransportManager
// itself holds no *SimUnit pointers so the relation survives independent
// of map iteration order.
type TransportManager struct {
	transportOf map[UnitId]UnitId            // passenger -> transport
	passengersOf map[UnitId]map[UnitId]struct{} // transport -> passengers
	pending     []TransportEvent
}

// NewTransportManager constructs an empty TransportManager.
func NewTransportManager() *TransportManager {
	return &TransportManager{
		transportOf:  make(map[UnitId]UnitId),
		passengersOf: make(map[UnitId]map[UnitId]struct{}),
	}
}

// TransportOf returns the transport carrying passenger, if any.
func (t *TransportManager) TransportOf(passenger UnitId) (UnitId, bool) {
	id, ok := t.transportOf[passenger]
	return id, ok
}

// PassengersOf returns the set of units mounted in transport.
func (t *TransportManager) PassengersOf(transport UnitId) map[UnitId]struct{} {
	return t.passengersOf[transport]
}

// TryMount attempts to mount passenger into transport. Fails on capacity
// exhaustion, mounting a unit into itself, or cross-team mounting.
func (t *TransportManager) TryMount(passenger, transport *SimUnit, capacity, cost int) bool {
	if passenger.ID == transport.ID {
		return false
	}
	if passenger.Team != transport.Team {
		return false
	}
	if passenger.IsMounted() || passenger.IsGarrisoned() {
		return false
	}
	used := 0
	for p := range t.passengersOf[transport.ID] {
		_ = p
		used += cost
	}
	if used+cost > capacity {
		return false
	}

	if t.passengersOf[transport.ID] == nil {
		t.passengersOf[transport.ID] = make(map[UnitId]struct{})
	}
	t.passengersOf[transport.ID][passenger.ID] = struct{}{}
	t.transportOf[passenger.ID] = transport.ID

	transportID := transport.ID
	passenger.Transport = &transportID
	transport.Passengers[passenger.ID] = struct{}{}

	t.pending = append(t.pending, TransportEvent{Kind: TransportMounted, Transport: transport.ID, Passenger: passenger.ID})
	return true
}

// UnloadAll dismounts every passenger of transport, placing each at a
// deterministic offset drawn from the shared RNG — never a local or
// process-global source.
func (t *TransportManager) UnloadAll(transport *SimUnit, passengers map[UnitId]*SimUnit, r *rng.RNG) {
	ids := t.passengersOf[transport.ID]
	if len(ids) == 0 {
		return
	}
	// Passengers are visited in id order, never map iteration order, so
	// every node assigns the same offsets; each dismount draws two RNG
	// values (angle, then distance).
	order := make([]UnitId, 0, len(ids))
	for passengerID := range ids {
		order = append(order, passengerID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	for _, passengerID := range order {
		passenger, ok := passengers[passengerID]
		if !ok {
			continue
		}
		angle := r.NextFloat(0, 2*math.Pi)
		dist := r.NextFloat(40, 120)
		offset := Vec2{X: dist, Z: 0}
		offset = rotateVec2(offset, angle)
		exitPos := transport.Position.Add(offset)

		passenger.Transport = nil
		passenger.Position = exitPos

		t.pending = append(t.pending, TransportEvent{Kind: TransportUnloaded, Transport: transport.ID, Passenger: passengerID, Position: exitPos})
	}
	delete(t.passengersOf, transport.ID)
	for passengerID := range ids {
		delete(t.transportOf, passengerID)
	}
	transport.Passengers = make(map[UnitId]struct{})
}

func rotateVec2(v Vec2, angle float64) Vec2 {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return Vec2{X: v.X*cos - v.Z*sin, Z: v.X*sin + v.Z*cos}
}

// RemoveUnit clears transport/passenger bookkeeping for a destroyed unit,
// whichever side of the relation it was on.
func (t *TransportManager) RemoveUnit(id UnitId) {
	if transportID, ok := t.transportOf[id]; ok {
		delete(t.passengersOf[transportID], id)
		delete(t.transportOf, id)
	}
	if passengers, ok := t.passengersOf[id]; ok {
		for p := range passengers {
			delete(t.transportOf, p)
		}
		delete(t.passengersOf, id)
	}
}

// Update is a per-tick hook kept for parity with the tick algorithm's
// contract (economy.update, smoke.update, transport.update run every
// battle-phase tick). TransportManager carries no time-based state of its
// own today — mounting and unloading are instantaneous — so this is
// presently a no-op, left in place for a future revision (e.g. boarding
// delays) that would need it.
func (t *TransportManager) Update(dt float64) {}

// DrainEvents returns and clears pending TransportEvents.
func (t *TransportManager) DrainEvents() []TransportEvent {
	out := t.pending
	t.pending = nil
	return out
}
