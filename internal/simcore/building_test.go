package simcore

import (
	"testing"

	"github.com/ironclad-rts/core/internal/rng"
)

func TestTryGarrisonRejectsOpposingTeamWithoutCoGarrison(t *testing.T) {
	bm := NewBuildingManager([]BuildingSpec{{ID: "b1", Capacity: 4}})
	u1 := &SimUnit{ID: "u1", Team: Team1}
	u2 := &SimUnit{ID: "u2", Team: Team2}

	if !bm.TryGarrison(u1, "b1") {
		t.Fatalf("expected team1's first occupant to succeed")
	}
	if bm.TryGarrison(u2, "b1") {
		t.Fatalf("expected team2 to be rejected from a building held by team1 (AllowCoGarrison defaults false)")
	}
}

func TestTryGarrisonAllowsCoGarrisonWhenEnabled(t *testing.T) {
	bm := NewBuildingManager([]BuildingSpec{{ID: "b1", Capacity: 4}})
	bm.AllowCoGarrison = true
	u1 := &SimUnit{ID: "u1", Team: Team1}
	u2 := &SimUnit{ID: "u2", Team: Team2}

	if !bm.TryGarrison(u1, "b1") || !bm.TryGarrison(u2, "b1") {
		t.Fatalf("expected both teams to garrison successfully when AllowCoGarrison is true")
	}
}

func TestTryGarrisonRejectsAtCapacity(t *testing.T) {
	bm := NewBuildingManager([]BuildingSpec{{ID: "b1", Capacity: 1}})
	u1 := &SimUnit{ID: "u1", Team: Team1}
	u2 := &SimUnit{ID: "u2", Team: Team1}

	if !bm.TryGarrison(u1, "b1") {
		t.Fatalf("expected the first occupant to fit")
	}
	if bm.TryGarrison(u2, "b1") {
		t.Fatalf("expected a second occupant to be rejected once capacity is reached")
	}
}

func TestUngarrisonClearsOwnerWhenEmptied(t *testing.T) {
	bm := NewBuildingManager([]BuildingSpec{{ID: "b1", Capacity: 2, Position: Vec2{X: 100, Z: 100}}})
	u1 := &SimUnit{ID: "u1", Team: Team1}
	bm.TryGarrison(u1, "b1")

	r := rng.New(1)
	exit, ok := bm.Ungarrison(u1, r)
	if !ok {
		t.Fatalf("expected ungarrison to succeed for a garrisoned unit")
	}
	if u1.GarrisonedIn != nil {
		t.Fatalf("expected GarrisonedIn to be cleared after ungarrisoning")
	}
	if exit.DistanceTo(Vec2{X: 100, Z: 100}) > 80 {
		t.Fatalf("expected the exit position to land near the building, got %+v", exit)
	}

	b, _ := bm.Building("b1")
	if b.Owner != TeamNone {
		t.Fatalf("expected the building's owner to reset to TeamNone once emptied, got %v", b.Owner)
	}
}

func TestUngarrisonFailsForNonGarrisonedUnit(t *testing.T) {
	bm := NewBuildingManager(nil)
	u := &SimUnit{ID: "u1", Team: Team1}
	if _, ok := bm.Ungarrison(u, rng.New(1)); ok {
		t.Fatalf("expected ungarrison to fail for a unit that isn't garrisoned")
	}
}

func TestRemoveUnitClearsBuildingOccupancy(t *testing.T) {
	bm := NewBuildingManager([]BuildingSpec{{ID: "b1", Capacity: 2}})
	u := &SimUnit{ID: "u1", Team: Team1}
	bm.TryGarrison(u, "b1")

	bm.RemoveUnit(u)

	b, _ := bm.Building("b1")
	if _, present := b.Occupants[u.ID]; present {
		t.Fatalf("expected the destroyed unit to be removed from building occupancy")
	}
	if u.GarrisonedIn != nil {
		t.Fatalf("expected GarrisonedIn to be cleared on removal")
	}
}
