package chakram

import (
	"testing"

	"raid-rehearsal/server/internal/geometry"
	"raid-rehearsal/server/internal/state"
)

func crossingConfig(id string) Config {
	return Config{
		ID:            id,
		StartPosition: geometry.Point{X: -20, Z: 0},
		EndPosition:   geometry.Point{X: 20, Z: 0},
		TravelTime:    2.0,
		Radius:        1.5,
		HitRadius:     1.2,
	}
}

func TestTravelInterpolation(t *testing.T) {
	m := NewManager(ManagerConfig{})
	m.Spawn(crossingConfig("blade"))

	m.Update(1.0, nil)
	pos := m.Get("blade").Position
	if pos.X != 0 || pos.Z != 0 {
		t.Fatalf("position at half travel = %v, want origin", pos)
	}
}

func TestHitWhilePassingThrough(t *testing.T) {
	m := NewManager(ManagerConfig{})
	m.Spawn(crossingConfig("blade"))

	arena := []state.EntityPosition{
		{ID: "target", Position: geometry.Point{X: 0, Z: 0}},
		{ID: "bystander", Position: geometry.Point{X: 0, Z: 10}},
	}

	// At half travel the disc sits on the target.
	hits := m.Update(1.0, arena)
	if got := hits["target"]; len(got) != 1 || got[0] != "blade" {
		t.Fatalf("target hits = %v, want [blade]", got)
	}
	if _, ok := hits["bystander"]; ok {
		t.Fatalf("bystander was hit off the travel line")
	}
}

func TestResolveAtArrivalRemovesInstance(t *testing.T) {
	resolved := 0
	m := NewManager(ManagerConfig{
		OnResolve: func(inst *Instance) { resolved++ },
	})
	m.Spawn(crossingConfig("blade"))

	m.Update(1.0, nil)
	if m.ActiveCount() != 1 {
		t.Fatalf("chakram removed mid-flight")
	}

	m.Update(1.0, nil)
	if resolved != 1 {
		t.Fatalf("resolved %d times, want 1", resolved)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("chakram still active after arrival, count = %d", m.ActiveCount())
	}

	// Further updates with the instance gone must not re-resolve.
	m.Update(1.0, nil)
	if resolved != 1 {
		t.Fatalf("resolution fired again after removal")
	}
}

func TestStationaryChakramDoesNotMoveOrHit(t *testing.T) {
	m := NewManager(ManagerConfig{})
	m.SpawnStationary(crossingConfig("held"))

	// An entity parked right on the start position.
	arena := []state.EntityPosition{
		{ID: "camper", Position: geometry.Point{X: -20, Z: 0}},
	}

	for i := 0; i < 10; i++ {
		hits := m.Update(1.0, arena)
		if len(hits) != 0 {
			t.Fatalf("stationary chakram registered hits: %v", hits)
		}
	}

	inst := m.Get("held")
	if inst == nil {
		t.Fatalf("stationary chakram was removed")
	}
	if inst.Position != inst.StartPosition {
		t.Fatalf("stationary chakram drifted to %v", inst.Position)
	}
	if inst.Spin == 0 {
		t.Fatalf("cosmetic spin frozen while stationary")
	}
}

func TestStartMovementResetsTravel(t *testing.T) {
	m := NewManager(ManagerConfig{})
	m.SpawnStationary(crossingConfig("held"))

	// Idle long past the travel time before release.
	for i := 0; i < 5; i++ {
		m.Update(1.0, nil)
	}

	m.StartMovement("held")
	m.Update(1.0, nil)

	inst := m.Get("held")
	if inst == nil {
		t.Fatalf("chakram resolved immediately on release")
	}
	if pos := inst.Position; pos.X != 0 || pos.Z != 0 {
		t.Fatalf("position one second after release = %v, want origin", pos)
	}
}

func TestStartMovementUnknownIDNoop(t *testing.T) {
	m := NewManager(ManagerConfig{})
	m.StartMovement("missing")
	if m.ActiveCount() != 0 {
		t.Fatalf("StartMovement on unknown id created state")
	}
}

func TestDuplicateSpawnIgnored(t *testing.T) {
	m := NewManager(ManagerConfig{})
	m.Spawn(crossingConfig("dup"))

	altered := crossingConfig("dup")
	altered.TravelTime = 99
	m.Spawn(altered)

	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d after duplicate spawn, want 1", m.ActiveCount())
	}
	if got := m.Get("dup").TravelTime; got != 2.0 {
		t.Fatalf("duplicate spawn overwrote travel time: got %v", got)
	}
}

func TestReleaseCalledExactlyOnce(t *testing.T) {
	released := 0
	cfg := crossingConfig("blade")
	cfg.Release = func() { released++ }

	m := NewManager(ManagerConfig{})
	m.Spawn(cfg)

	// Arrival removes the instance, which fires the release.
	m.Update(3.0, nil)
	m.Remove("blade")
	m.Clear()

	if released != 1 {
		t.Fatalf("release called %d times, want 1", released)
	}
}
