package simcore

import (
	"testing"

	"github.com/ironclad-rts/core/internal/rng"
)

func TestTryMountRejectsSelfAndCrossTeam(t *testing.T) {
	tm := NewTransportManager()
	carrier := &SimUnit{ID: "t1", Team: Team1, Passengers: map[UnitId]struct{}{}}

	if tm.TryMount(carrier, carrier, 8, 1) {
		t.Fatalf("expected mounting a unit into itself to be rejected")
	}

	passenger := &SimUnit{ID: "p1", Team: Team2, Passengers: map[UnitId]struct{}{}}
	if tm.TryMount(passenger, carrier, 8, 1) {
		t.Fatalf("expected cross-team mounting to be rejected")
	}
}

func TestTryMountRespectsCapacity(t *testing.T) {
	tm := NewTransportManager()
	carrier := &SimUnit{ID: "t1", Team: Team1, Passengers: map[UnitId]struct{}{}}
	p1 := &SimUnit{ID: "p1", Team: Team1, Passengers: map[UnitId]struct{}{}}
	p2 := &SimUnit{ID: "p2", Team: Team1, Passengers: map[UnitId]struct{}{}}

	if !tm.TryMount(p1, carrier, 1, 1) {
		t.Fatalf("expected the first passenger to fit within capacity 1")
	}
	if tm.TryMount(p2, carrier, 1, 1) {
		t.Fatalf("expected a second passenger to be rejected once capacity is exhausted")
	}
}

func TestTryMountRejectsAlreadyMountedOrGarrisoned(t *testing.T) {
	tm := NewTransportManager()
	carrier := &SimUnit{ID: "t1", Team: Team1, Passengers: map[UnitId]struct{}{}}
	already := UnitId("other-transport")
	mounted := &SimUnit{ID: "p1", Team: Team1, Transport: &already, Passengers: map[UnitId]struct{}{}}
	if tm.TryMount(mounted, carrier, 8, 1) {
		t.Fatalf("expected an already-mounted unit to be rejected")
	}

	bldg := BuildingId("b1")
	garrisoned := &SimUnit{ID: "p2", Team: Team1, GarrisonedIn: &bldg, Passengers: map[UnitId]struct{}{}}
	if tm.TryMount(garrisoned, carrier, 8, 1) {
		t.Fatalf("expected a garrisoned unit to be rejected from mounting")
	}
}

func TestUnloadAllClearsBothSidesOfTheRelation(t *testing.T) {
	tm := NewTransportManager()
	carrier := &SimUnit{ID: "t1", Team: Team1, Position: Vec2{X: 50, Z: 50}, Passengers: map[UnitId]struct{}{}}
	p1 := &SimUnit{ID: "p1", Team: Team1, Passengers: map[UnitId]struct{}{}}
	tm.TryMount(p1, carrier, 8, 1)

	units := map[UnitId]*SimUnit{"p1": p1}
	tm.UnloadAll(carrier, units, rng.New(1))

	if p1.Transport != nil {
		t.Fatalf("expected the passenger's Transport pointer to be cleared after unloading")
	}
	if _, stillMounted := tm.TransportOf("p1"); stillMounted {
		t.Fatalf("expected TransportOf to forget the passenger after unloading")
	}
	if got := tm.PassengersOf("t1"); len(got) != 0 {
		t.Fatalf("expected the transport's passenger set to be empty after unloading, got %v", got)
	}
}

func TestRemoveUnitClearsEitherSideOfTransportRelation(t *testing.T) {
	tm := NewTransportManager()
	carrier := &SimUnit{ID: "t1", Team: Team1, Passengers: map[UnitId]struct{}{}}
	p1 := &SimUnit{ID: "p1", Team: Team1, Passengers: map[UnitId]struct{}{}}
	tm.TryMount(p1, carrier, 8, 1)

	tm.RemoveUnit("t1") // destroy the transport while carrying a passenger
	if _, ok := tm.TransportOf("p1"); ok {
		t.Fatalf("expected destroying a transport to release its passengers")
	}
}
