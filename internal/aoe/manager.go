package aoe

import (
	"context"
	"fmt"

	"raid-rehearsal/server/internal/geometry"
	"raid-rehearsal/server/internal/state"
	"raid-rehearsal/server/logging"
	"raid-rehearsal/server/logging/encounterlog"
)

// Kind identifies the telegraph footprint family.
type Kind string

const (
	KindCircle Kind = "circle"
	KindLine   Kind = "line"
	KindCone   Kind = "cone"
	KindTShape Kind = "tshape"
	KindPuddle Kind = "puddle"
	KindPlus   Kind = "plus"
)

const defaultFlashDelay = 0.4 // seconds between resolution and removal

// AoE is the wire-visible description of one telegraphed attack. Rendering
// keys its own meshes off the same ids, so nothing geometric beyond these
// parameters leaves the manager.
type AoE struct {
	ID                string         `json:"id"`
	Kind              Kind           `json:"kind"`
	Center            geometry.Point `json:"center"`
	Rotation          float64        `json:"rotation"`
	TelegraphDuration float64        `json:"telegraphDuration"`
	Radius            float64        `json:"radius,omitempty"`
	Length            float64        `json:"length,omitempty"`
	Width             float64        `json:"width,omitempty"`
	Angle             float64        `json:"angle,omitempty"`
	StemLength        float64        `json:"stemLength,omitempty"`
	StemWidth         float64        `json:"stemWidth,omitempty"`
	BarLength         float64        `json:"barLength,omitempty"`
	BarWidth          float64        `json:"barWidth,omitempty"`
	ArmLength         float64        `json:"armLength,omitempty"`
	ArmWidth          float64        `json:"armWidth,omitempty"`
	CurrentRadius     float64        `json:"currentRadius,omitempty"`
	Resolved          bool           `json:"resolved"`
	Occupied          bool           `json:"occupied,omitempty"`
}

// Config describes a spawn request. Release, when set, is the opaque
// renderable handle owned by the instance; the manager calls it exactly once
// when the instance is removed.
type Config struct {
	ID                string
	Kind              Kind
	Center            geometry.Point
	Rotation          float64
	TelegraphDuration float64
	Radius            float64
	Length            float64
	Width             float64
	Angle             float64
	StemLength        float64
	StemWidth         float64
	BarLength         float64
	BarWidth          float64
	ArmLength         float64
	ArmWidth          float64
	Release           func()
}

// Instance is a live telegraph. TimedOut distinguishes a puddle that
// force-resolved unsoaked from a normal resolution.
type Instance struct {
	AoE
	TimedOut bool

	shape       geometry.Shape
	elapsed     float64
	release     func()
	released    bool
	removeArmed bool
	removeIn    float64
}

func (inst *Instance) contains(p geometry.Point) bool {
	shape := inst.shape
	if inst.Kind == KindPuddle {
		shape = geometry.Circle{Radius: inst.CurrentRadius}
	}
	return geometry.ContainsWorld(shape, inst.Center, inst.Rotation, p)
}

func (inst *Instance) releaseOnce() {
	if inst.released {
		return
	}
	inst.released = true
	if inst.release != nil {
		inst.release()
	}
}

// ResolveFunc observes a resolution before the removal delay starts.
type ResolveFunc func(inst *Instance, hitIDs []string)

// ManagerConfig tunes a Manager. Zero values fall back to defaults.
type ManagerConfig struct {
	FlashDelay float64
	OnResolve  ResolveFunc
	Publisher  logging.Publisher
}

// Manager owns every live telegraph. It is frame-stepped and single-threaded:
// spawn, update, and remove all run on the simulation goroutine.
type Manager struct {
	instances  map[string]*Instance
	order      []string
	flashDelay float64
	onResolve  ResolveFunc
	publisher  logging.Publisher
	tick       uint64
}

func NewManager(cfg ManagerConfig) *Manager {
	flash := cfg.FlashDelay
	if flash <= 0 {
		flash = defaultFlashDelay
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Manager{
		instances:  make(map[string]*Instance),
		flashDelay: flash,
		onResolve:  cfg.OnResolve,
		publisher:  pub,
	}
}

// SetResolveHandler replaces the resolution observer.
func (m *Manager) SetResolveHandler(fn ResolveFunc) {
	m.onResolve = fn
}

// Spawn creates a telegraph. A duplicate id is logged and ignored. An
// unsupported kind is a caller bug and fails immediately.
func (m *Manager) Spawn(cfg Config) error {
	shape, err := buildShape(cfg)
	if err != nil {
		return err
	}
	if _, exists := m.instances[cfg.ID]; exists {
		encounterlog.DuplicateSpawn(context.Background(), m.publisher, m.tick, cfg.ID, "aoe")
		return nil
	}

	inst := &Instance{
		AoE: AoE{
			ID:                cfg.ID,
			Kind:              cfg.Kind,
			Center:            cfg.Center,
			Rotation:          cfg.Rotation,
			TelegraphDuration: cfg.TelegraphDuration,
			Radius:            cfg.Radius,
			Length:            cfg.Length,
			Width:             cfg.Width,
			Angle:             cfg.Angle,
			StemLength:        cfg.StemLength,
			StemWidth:         cfg.StemWidth,
			BarLength:         cfg.BarLength,
			BarWidth:          cfg.BarWidth,
			ArmLength:         cfg.ArmLength,
			ArmWidth:          cfg.ArmWidth,
		},
		shape:   shape,
		release: cfg.Release,
	}
	if cfg.Kind == KindPuddle {
		inst.CurrentRadius = cfg.Radius
	}
	m.instances[cfg.ID] = inst
	m.order = append(m.order, cfg.ID)
	encounterlog.TelegraphSpawned(context.Background(), m.publisher, m.tick, cfg.ID, string(cfg.Kind))
	return nil
}

// Update advances every instance by dt, resolves telegraphs whose duration
// elapsed, and reports which entities stood in what. Pending removals from
// earlier resolutions are processed first so removal is never synchronous
// with resolution, even with a zero flash delay.
func (m *Manager) Update(dt float64, entities []state.EntityPosition) state.HitMap {
	m.tick++
	m.processRemovals(dt)

	hits := make(state.HitMap)
	for _, id := range m.order {
		inst, ok := m.instances[id]
		if !ok {
			continue
		}
		inst.elapsed += dt

		if inst.Kind == KindPuddle {
			m.updatePuddle(inst, entities)
			continue
		}

		if inst.Resolved || inst.elapsed < inst.TelegraphDuration {
			continue
		}
		inst.Resolved = true
		hitIDs := make([]string, 0)
		for _, entity := range entities {
			if inst.contains(entity.Position) {
				hitIDs = append(hitIDs, entity.ID)
				hits.Add(entity.ID, inst.ID)
			}
		}
		encounterlog.TelegraphResolved(context.Background(), m.publisher, m.tick, inst.ID, string(inst.Kind), hitIDs, false)
		if m.onResolve != nil {
			m.onResolve(inst, hitIDs)
		}
		m.armRemoval(inst)
	}
	return hits
}

// updatePuddle refreshes the occupancy flag and applies the timeout safety
// net. Puddles otherwise resolve only through explicit soak checks driven by
// the orchestrator.
func (m *Manager) updatePuddle(inst *Instance, entities []state.EntityPosition) {
	inst.Occupied = false
	for _, entity := range entities {
		if inst.contains(entity.Position) {
			inst.Occupied = true
			break
		}
	}

	if inst.Resolved || inst.TelegraphDuration <= 0 || inst.elapsed < inst.TelegraphDuration {
		return
	}
	inst.Resolved = true
	inst.TimedOut = true
	encounterlog.PuddleMissed(context.Background(), m.publisher, m.tick, inst.ID)
	encounterlog.TelegraphResolved(context.Background(), m.publisher, m.tick, inst.ID, string(inst.Kind), nil, true)
	if m.onResolve != nil {
		m.onResolve(inst, nil)
	}
	m.armRemoval(inst)
}

func (m *Manager) armRemoval(inst *Instance) {
	inst.removeArmed = true
	inst.removeIn = m.flashDelay
}

func (m *Manager) processRemovals(dt float64) {
	// Remove shifts m.order in place, so walk a copy.
	for _, id := range append([]string(nil), m.order...) {
		inst, ok := m.instances[id]
		if !ok || !inst.removeArmed {
			continue
		}
		inst.removeIn -= dt
		if inst.removeIn <= 0 {
			m.Remove(id)
		}
	}
}

// CheckPuddleSoak reports whether any supplied position lies within the
// puddle's current radius. It is a pure query: no state changes, so repeated
// calls with the same inputs agree. Unknown or non-puddle ids report false.
func (m *Manager) CheckPuddleSoak(id string, positions []geometry.Point) bool {
	inst, ok := m.instances[id]
	if !ok || inst.Kind != KindPuddle {
		return false
	}
	for _, pos := range positions {
		if inst.contains(pos) {
			return true
		}
	}
	return false
}

// RespawnPuddle atomically replaces the puddle with a fresh unresolved
// instance at the same center, with the new radius and telegraph duration.
// The renderable handle carries over to the replacement; it is released when
// that instance is eventually removed. Unknown ids are a no-op.
func (m *Manager) RespawnPuddle(id string, newRadius, newTelegraphDuration float64) {
	old, ok := m.instances[id]
	if !ok || old.Kind != KindPuddle {
		return
	}
	fresh := &Instance{
		AoE: AoE{
			ID:                old.ID,
			Kind:              KindPuddle,
			Center:            old.Center,
			Rotation:          old.Rotation,
			TelegraphDuration: newTelegraphDuration,
			Radius:            newRadius,
			CurrentRadius:     newRadius,
		},
		release: old.release,
	}
	m.instances[id] = fresh
}

// Remove releases the instance and its renderable handle. Unknown ids no-op.
func (m *Manager) Remove(id string) {
	inst, ok := m.instances[id]
	if !ok {
		return
	}
	inst.releaseOnce()
	delete(m.instances, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Clear removes every live instance.
func (m *Manager) Clear() {
	for _, id := range append([]string(nil), m.order...) {
		m.Remove(id)
	}
}

// Dispose clears all instances and drops the resolve handler.
func (m *Manager) Dispose() {
	m.Clear()
	m.onResolve = nil
}

// ActiveCount reports live, not-yet-removed instances. Resolved telegraphs
// still flashing count until their removal lands.
func (m *Manager) ActiveCount() int {
	return len(m.instances)
}

// Get returns the live instance for id, or nil.
func (m *Manager) Get(id string) *Instance {
	return m.instances[id]
}

// Snapshot copies the wire-visible state of every live instance in spawn
// order, for broadcasting.
func (m *Manager) Snapshot() []AoE {
	out := make([]AoE, 0, len(m.instances))
	for _, id := range m.order {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst.AoE)
		}
	}
	return out
}

func buildShape(cfg Config) (geometry.Shape, error) {
	switch cfg.Kind {
	case KindCircle, KindPuddle:
		return geometry.Circle{Radius: cfg.Radius}, nil
	case KindLine:
		return geometry.Line{Length: cfg.Length, Width: cfg.Width}, nil
	case KindCone:
		return geometry.Cone{Radius: cfg.Radius, Angle: cfg.Angle}, nil
	case KindTShape:
		return geometry.TShape{
			StemLength: cfg.StemLength,
			StemWidth:  cfg.StemWidth,
			BarLength:  cfg.BarLength,
			BarWidth:   cfg.BarWidth,
		}, nil
	case KindPlus:
		return geometry.Plus{ArmLength: cfg.ArmLength, ArmWidth: cfg.ArmWidth}, nil
	default:
		return nil, fmt.Errorf("aoe: unsupported shape kind %q for %q", cfg.Kind, cfg.ID)
	}
}
