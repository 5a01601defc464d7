package encounterlog

import (
	"context"

	"raid-rehearsal/server/logging"
)

const (
	// EventTelegraphSpawned is emitted when an AoE telegraph appears.
	EventTelegraphSpawned logging.EventType = "mechanic.telegraph_spawned"
	// EventTelegraphResolved is emitted when a telegraph finishes and its
	// occupancy is evaluated.
	EventTelegraphResolved logging.EventType = "mechanic.telegraph_resolved"
	// EventDuplicateSpawn is emitted when a spawn reuses a live hazard id.
	EventDuplicateSpawn logging.EventType = "mechanic.duplicate_spawn"
	// EventPuddleSoaked is emitted when a soak check passes.
	EventPuddleSoaked logging.EventType = "mechanic.puddle_soaked"
	// EventPuddleMissed is emitted when a puddle times out unsoaked.
	EventPuddleMissed logging.EventType = "mechanic.puddle_missed"
	// EventChakramHit is emitted when a traveling chakram overlaps an entity.
	EventChakramHit logging.EventType = "mechanic.chakram_hit"
	// EventStatusApplied is emitted when a status effect lands on an actor.
	EventStatusApplied logging.EventType = "mechanic.status_applied"
	// EventStatusExpired is emitted when a status effect runs out.
	EventStatusExpired logging.EventType = "mechanic.status_expired"
	// EventAttemptStarted is emitted when a rehearsal attempt begins.
	EventAttemptStarted logging.EventType = "encounter.attempt_started"
	// EventAttemptFailed is emitted when a failure condition trips.
	EventAttemptFailed logging.EventType = "encounter.attempt_failed"
	// EventAttemptCleared is emitted when the script completes without a wipe.
	EventAttemptCleared logging.EventType = "encounter.attempt_cleared"
	// EventScriptStepFailed is emitted when a timed step cannot be applied.
	EventScriptStepFailed logging.EventType = "encounter.script_step_failed"
	// EventScriptStaged is emitted when a reloaded script is staged for the
	// next restart.
	EventScriptStaged logging.EventType = "encounter.script_staged"
)

// TelegraphResolvedPayload captures a telegraph resolution and who stood in it.
type TelegraphResolvedPayload struct {
	Shape    string   `json:"shape"`
	HitIDs   []string `json:"hitIds,omitempty"`
	TimedOut bool     `json:"timedOut,omitempty"`
}

// AttemptResultPayload explains how an attempt ended.
type AttemptResultPayload struct {
	Reason  string  `json:"reason,omitempty"`
	Elapsed float64 `json:"elapsed"`
}

func hazardRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindHazard}
}

func entityRefs(ids []string) []logging.EntityRef {
	if len(ids) == 0 {
		return nil
	}
	refs := make([]logging.EntityRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown})
	}
	return refs
}

func TelegraphSpawned(ctx context.Context, pub logging.Publisher, tick uint64, id, shape string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTelegraphSpawned,
		Tick:     tick,
		Actor:    hazardRef(id),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMechanic,
		Payload:  map[string]string{"shape": shape},
	})
}

func TelegraphResolved(ctx context.Context, pub logging.Publisher, tick uint64, id, shape string, hitIDs []string, timedOut bool) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTelegraphResolved,
		Tick:     tick,
		Actor:    hazardRef(id),
		Targets:  entityRefs(hitIDs),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMechanic,
		Payload:  TelegraphResolvedPayload{Shape: shape, HitIDs: hitIDs, TimedOut: timedOut},
	})
}

func DuplicateSpawn(ctx context.Context, pub logging.Publisher, tick uint64, id, manager string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDuplicateSpawn,
		Tick:     tick,
		Actor:    hazardRef(id),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryMechanic,
		Payload:  map[string]string{"manager": manager},
	})
}

func PuddleSoaked(ctx context.Context, pub logging.Publisher, tick uint64, id string, soakerIDs []string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPuddleSoaked,
		Tick:     tick,
		Actor:    hazardRef(id),
		Targets:  entityRefs(soakerIDs),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMechanic,
	})
}

func PuddleMissed(ctx context.Context, pub logging.Publisher, tick uint64, id string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPuddleMissed,
		Tick:     tick,
		Actor:    hazardRef(id),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryMechanic,
	})
}

func ChakramHit(ctx context.Context, pub logging.Publisher, tick uint64, id string, hitIDs []string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventChakramHit,
		Tick:     tick,
		Actor:    hazardRef(id),
		Targets:  entityRefs(hitIDs),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMechanic,
	})
}

func StatusApplied(ctx context.Context, pub logging.Publisher, tick uint64, actorID, status string, duration float64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStatusApplied,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: actorID, Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMechanic,
		Payload:  map[string]any{"status": status, "duration": duration},
	})
}

func StatusExpired(ctx context.Context, pub logging.Publisher, tick uint64, actorID, status string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStatusExpired,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: actorID, Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMechanic,
		Payload:  map[string]string{"status": status},
	})
}

func AttemptStarted(ctx context.Context, pub logging.Publisher, tick uint64, attempt uint64, script string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttemptStarted,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: script, Kind: logging.EntityKindEncounter},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEncounter,
		Attempt:  attempt,
	})
}

func AttemptFailed(ctx context.Context, pub logging.Publisher, tick uint64, attempt uint64, reason string, elapsed float64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttemptFailed,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEncounter,
		Attempt:  attempt,
		Payload:  AttemptResultPayload{Reason: reason, Elapsed: elapsed},
	})
}

func ScriptStepFailed(ctx context.Context, pub logging.Publisher, tick uint64, stepID string, err error) {
	if pub == nil {
		return
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventScriptStepFailed,
		Tick:     tick,
		Actor:    hazardRef(stepID),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryEncounter,
		Payload:  map[string]string{"error": reason},
	})
}

func ScriptStaged(ctx context.Context, pub logging.Publisher, tick uint64, script, path string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventScriptStaged,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: script, Kind: logging.EntityKindEncounter},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  map[string]string{"path": path},
	})
}

func AttemptCleared(ctx context.Context, pub logging.Publisher, tick uint64, attempt uint64, elapsed float64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttemptCleared,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEncounter,
		Attempt:  attempt,
		Payload:  AttemptResultPayload{Elapsed: elapsed},
	})
}
