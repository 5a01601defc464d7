package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"raid-rehearsal/server/logging"
	"raid-rehearsal/server/logging/encounterlog"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	script := &Script{Name: "hub-drill"}
	encounter := NewEncounter(testOptions(), script, nil)
	return NewHub(encounter)
}

func TestJoinBindsFirstClientAsRehearser(t *testing.T) {
	hub := newTestHub(t)

	first := hub.Join()
	if !first.Rehearser {
		t.Fatalf("first client not bound as rehearser")
	}
	if first.Protocol != ProtocolVersion {
		t.Fatalf("protocol = %d, want %d", first.Protocol, ProtocolVersion)
	}
	if first.Snapshot.Phase != PhaseRehearsing {
		t.Fatalf("attempt did not start on first join, phase = %q", first.Snapshot.Phase)
	}

	second := hub.Join()
	if second.Rehearser {
		t.Fatalf("second client also bound as rehearser")
	}
	if second.ID == first.ID {
		t.Fatalf("join ids collided")
	}
}

func TestRehearserMovementClampedToArena(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()

	if !hub.UpdateIntent(join.ID, 1, 0) {
		t.Fatalf("intent rejected for joined client")
	}

	// Push hard right well past the arena edge.
	for i := 0; i < 200; i++ {
		hub.advance(time.Now(), 0.1)
	}

	pos, ok := hub.encounter.EntityPosition(join.ID)
	if !ok {
		t.Fatalf("rehearser entity missing")
	}
	if pos.X != arenaHalfExtent {
		t.Fatalf("position X = %v, want clamped to %v", pos.X, arenaHalfExtent)
	}
}

func TestIntentVectorNormalized(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()

	hub.UpdateIntent(join.ID, 30, 40)

	hub.mu.Lock()
	client := hub.clients[join.ID]
	dx, dz := client.intentX, client.intentZ
	hub.mu.Unlock()

	length := dx*dx + dz*dz
	if length > 1.0001 {
		t.Fatalf("intent length squared = %v, want at most 1", length)
	}
}

func TestHeartbeatTimeoutDropsClient(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()

	hub.mu.Lock()
	hub.clients[join.ID].lastHeartbeat = time.Now().Add(-2 * disconnectAfter)
	hub.mu.Unlock()

	hub.advance(time.Now(), 0.1)

	hub.mu.Lock()
	_, stillThere := hub.clients[join.ID]
	playerID := hub.encounter.PlayerID()
	hub.mu.Unlock()

	if stillThere {
		t.Fatalf("timed-out client still registered")
	}
	if playerID != "" {
		t.Fatalf("rehearser entity not unbound after timeout")
	}
}

func TestDisconnectUnbindsRehearser(t *testing.T) {
	hub := newTestHub(t)
	first := hub.Join()
	hub.Disconnect(first.ID)

	// With the seat free the next joiner takes over.
	second := hub.Join()
	if !second.Rehearser {
		t.Fatalf("seat not handed to the next joiner")
	}
}

func TestUpdateHeartbeatRecordsRTT(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()

	now := time.Now()
	rtt, ok := hub.UpdateHeartbeat(join.ID, now, now.Add(-40*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("heartbeat rejected for joined client")
	}
	if rtt <= 0 {
		t.Fatalf("rtt = %v, want positive", rtt)
	}

	if _, ok := hub.UpdateHeartbeat("ghost", now, 0); ok {
		t.Fatalf("heartbeat accepted for unknown client")
	}
}

func TestRestartBeginsFreshAttempt(t *testing.T) {
	hub := newTestHub(t)
	hub.Join()

	hub.Restart()

	hub.mu.Lock()
	attempt := hub.encounter.Attempt()
	phase := hub.encounter.Phase()
	hub.mu.Unlock()

	if attempt != 2 {
		t.Fatalf("attempt = %d after restart, want 2", attempt)
	}
	if phase != PhaseRehearsing {
		t.Fatalf("phase = %q after restart", phase)
	}
}

func TestReloadScriptStagesAndPublishes(t *testing.T) {
	var events []logging.Event
	pub := logging.PublisherFunc(func(ctx context.Context, event logging.Event) {
		events = append(events, event)
	})
	encounter := NewEncounter(testOptions(), &Script{Name: "hub-drill"}, pub)
	hub := NewHub(encounter)
	hub.Join()

	path := filepath.Join(t.TempDir(), "reworked.yaml")
	if err := os.WriteFile(path, []byte("name: reworked-drill\nsteps: []\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	if err := hub.ReloadScript(path); err != nil {
		t.Fatalf("reload rejected a valid script: %v", err)
	}

	staged := false
	for _, event := range events {
		if event.Type == encounterlog.EventScriptStaged {
			staged = true
		}
	}
	if !staged {
		t.Fatalf("reload published no staged event")
	}

	// The running attempt keeps its script; the restart picks up the new one.
	if got := hub.encounter.Snapshot().Script; got != "hub-drill" {
		t.Fatalf("running attempt switched script to %q", got)
	}
	hub.Restart()
	if got := hub.encounter.Snapshot().Script; got != "reworked-drill" {
		t.Fatalf("script after restart = %q, want reworked-drill", got)
	}

	if got := hub.telemetry.Snapshot().ScriptReloadsAccepted; got != 1 {
		t.Fatalf("ScriptReloadsAccepted = %d, want 1", got)
	}

	if err := hub.ReloadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("reload accepted a missing file")
	}
	if got := hub.telemetry.Snapshot().ScriptReloadsRejected; got != 1 {
		t.Fatalf("ScriptReloadsRejected = %d, want 1", got)
	}
}

func TestDiagnosticsSnapshot(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()
	hub.advance(time.Now(), 0.1)

	diag := hub.DiagnosticsSnapshot()
	if diag.Attempt != 1 {
		t.Fatalf("diagnostics attempt = %d, want 1", diag.Attempt)
	}
	if len(diag.Players) != 1 || diag.Players[0].ID != join.ID {
		t.Fatalf("diagnostics players = %v", diag.Players)
	}
	if !diag.Players[0].Rehearser {
		t.Fatalf("diagnostics lost the rehearser flag")
	}
}
