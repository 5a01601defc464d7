package server

import (
	"context"
	"sort"

	"raid-rehearsal/server/logging/encounterlog"
)

type StatusEffectType string

type statusEffectHandler func(e *Encounter, actorID string, inst *statusEffectInstance, at float64)

// StatusEffectDefinition describes one debuff/buff the encounter can apply.
// Durations run on the simulation clock, not wall time, so replays of the
// same seed behave identically.
type StatusEffectDefinition struct {
	Type      StatusEffectType
	Duration  float64
	Mitigates bool
	OnApply   statusEffectHandler
	OnExpire  statusEffectHandler
}

type statusEffectInstance struct {
	Definition *StatusEffectDefinition
	SourceID   string
	AppliedAt  float64
	ExpiresAt  float64
}

const (
	// StatusEffectShielded makes a telegraph or chakram hit survivable while
	// it lasts.
	StatusEffectShielded StatusEffectType = "shielded"
	// StatusEffectExhausted marks a player whose shield just absorbed a hit.
	StatusEffectExhausted StatusEffectType = "exhausted"
)

const (
	shieldedDuration  = 8.0
	exhaustedDuration = 5.0
)

func newStatusEffectDefinitions() map[StatusEffectType]*StatusEffectDefinition {
	return map[StatusEffectType]*StatusEffectDefinition{
		StatusEffectShielded: {
			Type:      StatusEffectShielded,
			Duration:  shieldedDuration,
			Mitigates: true,
		},
		StatusEffectExhausted: {
			Type:     StatusEffectExhausted,
			Duration: exhaustedDuration,
		},
	}
}

// applyStatusEffect applies or refreshes a status on an actor at the given
// simulation time. Unknown types and unknown actors are no-ops.
func (e *Encounter) applyStatusEffect(actorID string, status StatusEffectType, source string, at float64) bool {
	if e == nil || actorID == "" {
		return false
	}
	def, ok := e.statusDefs[status]
	if !ok || def == nil || def.Duration <= 0 {
		return false
	}
	if _, ok := e.entities[actorID]; !ok {
		return false
	}
	actorStatuses := e.statuses[actorID]
	if actorStatuses == nil {
		actorStatuses = make(map[StatusEffectType]*statusEffectInstance)
		e.statuses[actorID] = actorStatuses
	}
	inst, exists := actorStatuses[status]
	if exists {
		// Re-application refreshes the clock rather than stacking.
		inst.ExpiresAt = at + def.Duration
		inst.SourceID = source
		return true
	}
	inst = &statusEffectInstance{
		Definition: def,
		SourceID:   source,
		AppliedAt:  at,
		ExpiresAt:  at + def.Duration,
	}
	actorStatuses[status] = inst
	if def.OnApply != nil {
		def.OnApply(e, actorID, inst, at)
	}
	encounterlog.StatusApplied(context.Background(), e.publisher, e.tick, actorID, string(status), def.Duration)
	return true
}

// hasStatusEffect answers the lethality query: does the actor carry the
// status right now. Expiry is exclusive so a status applied for d seconds is
// gone at exactly AppliedAt+d.
func (e *Encounter) hasStatusEffect(actorID string, status StatusEffectType, at float64) bool {
	if e == nil {
		return false
	}
	actorStatuses, ok := e.statuses[actorID]
	if !ok {
		return false
	}
	inst, ok := actorStatuses[status]
	if !ok {
		return false
	}
	return at < inst.ExpiresAt
}

// advanceStatusEffects expires statuses whose time has run out.
func (e *Encounter) advanceStatusEffects(at float64) {
	for actorID, actorStatuses := range e.statuses {
		for status, inst := range actorStatuses {
			if at < inst.ExpiresAt {
				continue
			}
			delete(actorStatuses, status)
			if inst.Definition != nil && inst.Definition.OnExpire != nil {
				inst.Definition.OnExpire(e, actorID, inst, at)
			}
			encounterlog.StatusExpired(context.Background(), e.publisher, e.tick, actorID, string(status))
		}
		if len(actorStatuses) == 0 {
			delete(e.statuses, actorID)
		}
	}
}

// statusSnapshot lists the live status types on an actor, for broadcasting.
func (e *Encounter) statusSnapshot(actorID string, at float64) []string {
	actorStatuses, ok := e.statuses[actorID]
	if !ok || len(actorStatuses) == 0 {
		return nil
	}
	out := make([]string, 0, len(actorStatuses))
	for status, inst := range actorStatuses {
		if at < inst.ExpiresAt {
			out = append(out, string(status))
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
