package server

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"raid-rehearsal/server/internal/aoe"
	"raid-rehearsal/server/internal/chakram"
	"raid-rehearsal/server/internal/geometry"
	"raid-rehearsal/server/internal/state"
	"raid-rehearsal/server/internal/timeline"
	"raid-rehearsal/server/logging"
	"raid-rehearsal/server/logging/encounterlog"
)

// AttemptPhase tracks where the current rehearsal attempt stands.
type AttemptPhase string

const (
	PhaseIdle       AttemptPhase = "idle"
	PhaseRehearsing AttemptPhase = "rehearsing"
	PhaseFailed     AttemptPhase = "failed"
	PhaseCleared    AttemptPhase = "cleared"
)

const (
	playerSpawnX = 0.0
	playerSpawnZ = -16.0
)

type entityState struct {
	ID       string
	Kind     logging.EntityKind
	Home     geometry.Point
	Position geometry.Point
}

// Encounter owns one rehearsal: the timeline replaying the choreography, the
// AoE and chakram managers, the tracked entities (player plus scripted
// stand-ins), and the status-effect tracker consulted for lethality. All of
// it steps on the single simulation goroutine.
type Encounter struct {
	opts          EncounterOptions
	script        *Script
	pendingScript *Script

	timeline *timeline.Timeline
	aoes     *aoe.Manager
	chakrams *chakram.Manager

	statusDefs map[StatusEffectType]*StatusEffectDefinition
	statuses   map[string]map[StatusEffectType]*statusEffectInstance

	entities map[string]*entityState
	order    []string
	playerID string

	phase      AttemptPhase
	failReason string
	attempt    uint64
	tick       uint64
	clock      float64

	rng       *rand.Rand
	publisher logging.Publisher

	pendingFail string
}

// NewEncounter wires an encounter around a validated script. A nil publisher
// falls back to the no-op publisher.
func NewEncounter(opts EncounterOptions, script *Script, publisher logging.Publisher) *Encounter {
	normalized := opts.normalized()
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	e := &Encounter{
		opts:       normalized,
		script:     script,
		timeline:   timeline.New(),
		statusDefs: newStatusEffectDefinitions(),
		statuses:   make(map[string]map[StatusEffectType]*statusEffectInstance),
		entities:   make(map[string]*entityState),
		phase:      PhaseIdle,
		rng:        newDeterministicRNG(normalized.Seed, "standins"),
		publisher:  publisher,
	}
	e.aoes = aoe.NewManager(aoe.ManagerConfig{
		FlashDelay: normalized.FlashDelay,
		Publisher:  publisher,
		OnResolve: func(inst *aoe.Instance, hitIDs []string) {
			if inst.TimedOut && e.pendingFail == "" {
				e.pendingFail = fmt.Sprintf("puddle %s timed out unsoaked", inst.ID)
			}
		},
	})
	e.chakrams = chakram.NewManager(chakram.ManagerConfig{
		Publisher: publisher,
	})
	return e
}

// BindPlayer registers the rehearsing player entity. The hub calls this once
// per connection; rebinding replaces the previous player entity.
func (e *Encounter) BindPlayer(id string) {
	if e.playerID != "" {
		e.removeEntity(e.playerID)
	}
	e.playerID = id
	if id == "" {
		return
	}
	spawn := geometry.Point{X: playerSpawnX, Z: playerSpawnZ}
	e.addEntity(&entityState{ID: id, Kind: logging.EntityKindPlayer, Home: spawn, Position: spawn})
}

// PlayerID reports the bound rehearser, empty when nobody has joined.
func (e *Encounter) PlayerID() string {
	return e.playerID
}

// Publisher exposes the event stream the encounter reports on.
func (e *Encounter) Publisher() logging.Publisher {
	return e.publisher
}

// ReplaceScript stages a new choreography; it takes effect on the next
// Restart so a running attempt is never mutated mid-flight.
func (e *Encounter) ReplaceScript(script *Script) {
	if script == nil {
		return
	}
	e.pendingScript = script
}

// Restart begins a fresh attempt: managers cleared, statuses dropped,
// stand-ins re-placed with deterministic jitter, timeline rebuilt from the
// script and started from zero.
func (e *Encounter) Restart() {
	if e.pendingScript != nil {
		e.script = e.pendingScript
		e.pendingScript = nil
	}
	e.attempt++
	e.phase = PhaseRehearsing
	e.failReason = ""
	e.pendingFail = ""
	e.clock = 0
	e.statuses = make(map[string]map[StatusEffectType]*statusEffectInstance)
	e.aoes.Clear()
	e.chakrams.Clear()

	// Each attempt gets its own stream so a given (seed, attempt) pair
	// replays the same stand-in placement.
	e.rng = newDeterministicRNG(e.opts.Seed, fmt.Sprintf("attempt-%d", e.attempt))
	e.placeEntities()
	e.registerScript()
	e.timeline.Start()

	scriptName := ""
	if e.script != nil {
		scriptName = e.script.Name
	}
	encounterlog.AttemptStarted(context.Background(), e.publisher, e.tick, e.attempt, scriptName)
}

// Step advances the encounter by one frame. dt is the caller-supplied delta
// in seconds, never clamped: a huge dt after a stall may resolve several
// scheduled events in one call, which is accepted.
func (e *Encounter) Step(dt float64) {
	if e.phase != PhaseRehearsing {
		return
	}
	e.tick++
	e.clock += dt

	e.timeline.Update(dt)
	if e.phase != PhaseRehearsing {
		// A soak check inside a timeline handler already failed the attempt.
		return
	}
	e.advanceStatusEffects(e.clock)

	positions := e.entityPositions()
	hits := e.aoes.Update(dt, positions)
	hits.Merge(e.chakrams.Update(dt, positions))

	if e.pendingFail != "" {
		e.fail(e.pendingFail)
		return
	}

	if e.playerID != "" {
		if hazards := hits[e.playerID]; len(hazards) > 0 {
			if e.hasStatusEffect(e.playerID, StatusEffectShielded, e.clock) {
				e.applyStatusEffect(e.playerID, StatusEffectExhausted, hazards[0], e.clock)
			} else {
				e.fail(fmt.Sprintf("player hit by %s", strings.Join(hazards, ", ")))
				return
			}
		}
	}

	if e.timeline.IsComplete() && e.aoes.ActiveCount() == 0 && e.chakrams.ActiveCount() == 0 {
		e.phase = PhaseCleared
		e.timeline.Stop()
		encounterlog.AttemptCleared(context.Background(), e.publisher, e.tick, e.attempt, e.clock)
	}
}

func (e *Encounter) fail(reason string) {
	e.phase = PhaseFailed
	e.failReason = reason
	e.pendingFail = ""
	e.timeline.Stop()
	encounterlog.AttemptFailed(context.Background(), e.publisher, e.tick, e.attempt, reason, e.clock)
}

// SetEntityPosition moves a tracked entity. Unknown ids no-op.
func (e *Encounter) SetEntityPosition(id string, pos geometry.Point) {
	if entity, ok := e.entities[id]; ok {
		entity.Position = pos
	}
}

// EntityPosition reports a tracked entity's current position.
func (e *Encounter) EntityPosition(id string) (geometry.Point, bool) {
	entity, ok := e.entities[id]
	if !ok {
		return geometry.Point{}, false
	}
	return entity.Position, true
}

// Phase reports the current attempt phase.
func (e *Encounter) Phase() AttemptPhase {
	return e.phase
}

// FailReason explains a failed attempt, empty otherwise.
func (e *Encounter) FailReason() string {
	return e.failReason
}

// Clock reports seconds elapsed in the current attempt.
func (e *Encounter) Clock() float64 {
	return e.clock
}

// Attempt reports the running attempt counter.
func (e *Encounter) Attempt() uint64 {
	return e.attempt
}

// ActiveTelegraphs reports live AoE instances, flash-delay stragglers
// included.
func (e *Encounter) ActiveTelegraphs() int {
	return e.aoes.ActiveCount()
}

// ActiveChakrams reports live chakram instances.
func (e *Encounter) ActiveChakrams() int {
	return e.chakrams.ActiveCount()
}

// Dispose releases both managers and drops all tracked entities.
func (e *Encounter) Dispose() {
	e.timeline.Stop()
	e.timeline.ClearEvents()
	e.aoes.Dispose()
	e.chakrams.Dispose()
	e.entities = make(map[string]*entityState)
	e.order = nil
	e.playerID = ""
	e.phase = PhaseIdle
}

func (e *Encounter) addEntity(entity *entityState) {
	if _, exists := e.entities[entity.ID]; exists {
		e.entities[entity.ID] = entity
		return
	}
	e.entities[entity.ID] = entity
	e.order = append(e.order, entity.ID)
}

func (e *Encounter) removeEntity(id string) {
	if _, ok := e.entities[id]; !ok {
		return
	}
	delete(e.entities, id)
	delete(e.statuses, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// placeEntities resets the player to spawn and places scripted stand-ins at
// their anchors with seeded jitter.
func (e *Encounter) placeEntities() {
	for _, id := range append([]string(nil), e.order...) {
		if entity := e.entities[id]; entity != nil && entity.Kind == logging.EntityKindStandIn {
			e.removeEntity(id)
		}
	}
	if player, ok := e.entities[e.playerID]; ok {
		player.Position = player.Home
	}
	if e.script == nil {
		return
	}
	for _, spec := range e.script.StandIns {
		home := pointAt(spec.X, spec.Z)
		pos := geometry.Point{
			X: home.X + e.randomJitter(e.opts.StandInJitter),
			Z: home.Z + e.randomJitter(e.opts.StandInJitter),
		}
		e.addEntity(&entityState{ID: spec.ID, Kind: logging.EntityKindStandIn, Home: home, Position: pos})
	}
}

// registerScript rebuilds the timeline from the current script.
func (e *Encounter) registerScript() {
	e.timeline.ClearEvents()
	if e.script == nil {
		return
	}
	for i, step := range e.script.Steps {
		step := step
		e.timeline.AddEvent(timeline.Event{
			ID:      fmt.Sprintf("%s-%d", step.Action, i),
			Time:    step.At,
			Handler: func() { e.applyStep(step) },
		})
	}
}

func (e *Encounter) applyStep(step ScriptStep) {
	switch step.Action {
	case ActionSpawnAoE:
		if err := e.aoes.Spawn(step.aoeConfig()); err != nil {
			encounterlog.ScriptStepFailed(context.Background(), e.publisher, e.tick, step.ID, err)
		}
	case ActionSpawnChakram:
		cfg := chakram.Config{
			ID:            step.ID,
			StartPosition: pointAt(step.StartX, step.StartZ),
			EndPosition:   pointAt(step.EndX, step.EndZ),
			TravelTime:    step.TravelTime,
			Radius:        step.Radius,
			HitRadius:     step.HitRadius,
		}
		if step.Stationary {
			e.chakrams.SpawnStationary(cfg)
		} else {
			e.chakrams.Spawn(cfg)
		}
	case ActionReleaseChakram:
		e.chakrams.StartMovement(step.ID)
	case ActionRespawnPuddle:
		e.aoes.RespawnPuddle(step.ID, step.NewRadius, step.NewTelegraph)
	case ActionCheckSoak:
		e.resolveSoak(step)
	case ActionApplyStatus:
		e.applyStatusEffect(e.resolveTarget(step.Target), StatusEffectType(step.Status), "script", e.clock)
	case ActionMoveStandIn:
		e.SetEntityPosition(step.ID, pointAt(step.X, step.Z))
	}
}

// resolveSoak runs one discrete soak check: a soaked puddle either shrinks
// into its next round or, on the final round, is removed; an unsoaked one
// fails the attempt on the spot.
func (e *Encounter) resolveSoak(step ScriptStep) {
	positions := make([]geometry.Point, 0, len(e.entities))
	soakers := make([]string, 0)
	for _, id := range e.order {
		entity := e.entities[id]
		positions = append(positions, entity.Position)
		if e.aoes.CheckPuddleSoak(step.ID, []geometry.Point{entity.Position}) {
			soakers = append(soakers, id)
		}
	}
	if !e.aoes.CheckPuddleSoak(step.ID, positions) {
		e.fail(fmt.Sprintf("puddle %s not soaked", step.ID))
		return
	}
	encounterlog.PuddleSoaked(context.Background(), e.publisher, e.tick, step.ID, soakers)
	if step.FinalRound {
		e.aoes.Remove(step.ID)
		return
	}
	e.aoes.RespawnPuddle(step.ID, step.NewRadius, step.NewTelegraph)
}

// resolveTarget maps the script's "player" alias onto whoever is bound.
func (e *Encounter) resolveTarget(target string) string {
	if target == "player" {
		return e.playerID
	}
	return target
}

func (e *Encounter) entityPositions() []state.EntityPosition {
	positions := make([]state.EntityPosition, 0, len(e.order))
	for _, id := range e.order {
		if entity, ok := e.entities[id]; ok {
			positions = append(positions, state.EntityPosition{ID: id, Position: entity.Position})
		}
	}
	return positions
}

// EntityView is the wire-visible state of one tracked entity.
type EntityView struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Position geometry.Point `json:"position"`
	Statuses []string       `json:"statuses,omitempty"`
}

// EncounterSnapshot is everything a client needs to draw one frame.
type EncounterSnapshot struct {
	Phase      AttemptPhase      `json:"phase"`
	FailReason string            `json:"failReason,omitempty"`
	Attempt    uint64            `json:"attempt"`
	Elapsed    float64           `json:"elapsed"`
	Script     string            `json:"script,omitempty"`
	Entities   []EntityView      `json:"entities"`
	AoEs       []aoe.AoE         `json:"aoes"`
	Chakrams   []chakram.Chakram `json:"chakrams"`
}

// Snapshot copies the broadcastable encounter state.
func (e *Encounter) Snapshot() EncounterSnapshot {
	entities := make([]EntityView, 0, len(e.order))
	for _, id := range e.order {
		entity, ok := e.entities[id]
		if !ok {
			continue
		}
		entities = append(entities, EntityView{
			ID:       entity.ID,
			Kind:     string(entity.Kind),
			Position: entity.Position,
			Statuses: e.statusSnapshot(entity.ID, e.clock),
		})
	}
	scriptName := ""
	if e.script != nil {
		scriptName = e.script.Name
	}
	return EncounterSnapshot{
		Phase:      e.phase,
		FailReason: e.failReason,
		Attempt:    e.attempt,
		Elapsed:    e.clock,
		Script:     scriptName,
		Entities:   entities,
		AoEs:       e.aoes.Snapshot(),
		Chakrams:   e.chakrams.Snapshot(),
	}
}

func pointAt(x, z float64) geometry.Point {
	return geometry.Point{X: x, Z: z}
}
