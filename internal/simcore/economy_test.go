package simcore

import "testing"

func TestSpendCreditsRejectsInsufficientBalance(t *testing.T) {
	em := NewEconomyManager(nil, 0, 4, 2000, 100)
	if em.SpendCredits(Team1, 150) {
		t.Fatalf("expected spend to fail when balance is insufficient")
	}
	if got := em.Credits(Team1); got != 100 {
		t.Fatalf("expected balance unchanged after a rejected spend, got %d", got)
	}
	if !em.SpendCredits(Team1, 100) {
		t.Fatalf("expected spend of exactly the full balance to succeed")
	}
	if got := em.Credits(Team1); got != 0 {
		t.Fatalf("expected balance 0 after spending it all, got %d", got)
	}
}

func TestUpdateFiresTickEventOnBoundary(t *testing.T) {
	em := NewEconomyManager(nil, 10, 4.0, 2000, 0)
	em.Update(3.9)
	if got := em.Credits(Team1); got != 0 {
		t.Fatalf("expected no income before the tick boundary, got %d", got)
	}
	em.Update(0.2) // crosses 4.0
	if got := em.Credits(Team1); got != 10 {
		t.Fatalf("expected 10 income once the tick boundary is crossed, got %d", got)
	}
}

func TestUpdateHandlesMultipleBoundariesInOneCall(t *testing.T) {
	em := NewEconomyManager(nil, 10, 4.0, 2000, 0)
	em.Update(10.0) // two full periods (8.0) plus leftover 2.0
	if got := em.Credits(Team1); got != 20 {
		t.Fatalf("expected 20 income after two tick periods elapsed in one call, got %d", got)
	}
}

func TestGetVictoryWinnerTeam1TieBreak(t *testing.T) {
	em := NewEconomyManager(nil, 0, 1, 100, 0)
	em.score = TeamScore{Team1: 100, Team2: 100}
	if got := em.GetVictoryWinner(); got != Team1 {
		t.Fatalf("expected team1 to win a simultaneous threshold crossing, got %v", got)
	}
}

func TestGetVictoryWinnerNoneBelowThreshold(t *testing.T) {
	em := NewEconomyManager(nil, 0, 1, 100, 0)
	em.score = TeamScore{Team1: 99, Team2: 99}
	if got := em.GetVictoryWinner(); got != TeamNone {
		t.Fatalf("expected no winner below threshold, got %v", got)
	}
}

func TestApplyZoneCaptureOnlyPublishesOnOwnerChange(t *testing.T) {
	zones := []CaptureZoneSpec{{ID: "z1", Width: 10, Height: 10, PointsPerTick: 5}}
	em := NewEconomyManager(zones, 0, 1, 100, 0)

	em.ApplyZoneCapture("z1", Team1)
	if events := em.DrainEvents(); len(events) != 1 || events[0].NewOwner != Team1 {
		t.Fatalf("expected one capture event for team1, got %+v", events)
	}

	em.ApplyZoneCapture("z1", Team1) // no-op: already owned by team1
	if events := em.DrainEvents(); len(events) != 0 {
		t.Fatalf("expected no event when re-applying the same owner, got %+v", events)
	}
}

func TestApplyZoneCaptureAwardsPointsToNewOwner(t *testing.T) {
	zones := []CaptureZoneSpec{{ID: "z1", Width: 10, Height: 10, PointsPerTick: 7}}
	em := NewEconomyManager(zones, 0, 1, 1000, 0)
	em.ApplyZoneCapture("z1", Team2)
	em.Update(1.0)
	if got := em.Score().Team2; got != 7 {
		t.Fatalf("expected team2 to earn the zone's points after owning it, got %d", got)
	}
	if got := em.Score().Team1; got != 0 {
		t.Fatalf("expected team1 to earn nothing from a zone it does not own, got %d", got)
	}
}

func TestUpdateZonesDetectsContested(t *testing.T) {
	zones := []CaptureZoneSpec{{ID: "z1", Width: 10, Height: 10}}
	em := NewEconomyManager(zones, 0, 1, 100, 0)

	becameContested := em.UpdateZones(func(spec CaptureZoneSpec) map[UnitId]Team {
		return map[UnitId]Team{"u1": Team1, "u2": Team2}
	})
	if len(becameContested) != 1 || becameContested[0] != "z1" {
		t.Fatalf("expected z1 to be reported as newly contested, got %v", becameContested)
	}
	z, _ := em.Zone("z1")
	if !z.IsContested() {
		t.Fatalf("expected zone to be marked contested")
	}
	if _, ok := z.SoleOccupyingTeam(); ok {
		t.Fatalf("expected no sole occupying team while contested")
	}
}

func TestUpdateZonesReportsSoleOccupant(t *testing.T) {
	zones := []CaptureZoneSpec{{ID: "z1", Width: 10, Height: 10}}
	em := NewEconomyManager(zones, 0, 1, 100, 0)

	em.UpdateZones(func(spec CaptureZoneSpec) map[UnitId]Team {
		return map[UnitId]Team{"u1": Team1}
	})
	z, _ := em.Zone("z1")
	team, ok := z.SoleOccupyingTeam()
	if !ok || team != Team1 {
		t.Fatalf("expected team1 as the sole occupant, got %v (ok=%v)", team, ok)
	}
}
