package chakram

import (
	"context"
	"math"

	"raid-rehearsal/server/internal/geometry"
	"raid-rehearsal/server/internal/state"
	"raid-rehearsal/server/logging"
	"raid-rehearsal/server/logging/encounterlog"
)

const defaultSpinRate = 4 * math.Pi // radians per second, cosmetic only

// Chakram is the wire-visible state of one traveling projectile.
type Chakram struct {
	ID            string         `json:"id"`
	StartPosition geometry.Point `json:"startPosition"`
	EndPosition   geometry.Point `json:"endPosition"`
	TravelTime    float64        `json:"travelTime"`
	Radius        float64        `json:"radius"`
	HitRadius     float64        `json:"hitRadius"`
	Stationary    bool           `json:"stationary"`
	Position      geometry.Point `json:"position"`
	Spin          float64        `json:"spin"`
	Resolved      bool           `json:"resolved"`
}

// Config describes a spawn request. Release mirrors the AoE manager: an
// opaque renderable handle called exactly once when the instance is removed.
type Config struct {
	ID            string
	StartPosition geometry.Point
	EndPosition   geometry.Point
	TravelTime    float64
	Radius        float64
	HitRadius     float64
	Release       func()
}

// Instance is a live chakram. Stationary instances sit at their start
// position spinning, collision-inactive, until StartMovement releases them.
type Instance struct {
	Chakram

	elapsed  float64
	release  func()
	released bool
}

func (inst *Instance) progress() float64 {
	if inst.TravelTime <= 0 {
		return 1
	}
	p := inst.elapsed / inst.TravelTime
	if p > 1 {
		return 1
	}
	return p
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

// ResolveFunc observes a chakram reaching its end position.
type ResolveFunc func(inst *Instance)

type ManagerConfig struct {
	SpinRate  float64
	OnResolve ResolveFunc
	Publisher logging.Publisher
}

// Manager owns every live chakram. Frame-stepped and single-threaded, like
// the AoE manager.
type Manager struct {
	instances map[string]*Instance
	order     []string
	spinRate  float64
	onResolve ResolveFunc
	publisher logging.Publisher
	tick      uint64
}

func NewManager(cfg ManagerConfig) *Manager {
	spin := cfg.SpinRate
	if spin <= 0 {
		spin = defaultSpinRate
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Manager{
		instances: make(map[string]*Instance),
		spinRate:  spin,
		onResolve: cfg.OnResolve,
		publisher: pub,
	}
}

// SetResolveHandler replaces the resolution observer.
func (m *Manager) SetResolveHandler(fn ResolveFunc) {
	m.onResolve = fn
}

// Spawn creates a chakram that begins traveling immediately.
func (m *Manager) Spawn(cfg Config) {
	m.spawn(cfg, false)
}

// SpawnStationary creates a chakram held at its start position until
// StartMovement releases it.
func (m *Manager) SpawnStationary(cfg Config) {
	m.spawn(cfg, true)
}

func (m *Manager) spawn(cfg Config, stationary bool) {
	if _, exists := m.instances[cfg.ID]; exists {
		encounterlog.DuplicateSpawn(context.Background(), m.publisher, m.tick, cfg.ID, "chakram")
		return
	}
	inst := &Instance{
		Chakram: Chakram{
			ID:            cfg.ID,
			StartPosition: cfg.StartPosition,
			EndPosition:   cfg.EndPosition,
			TravelTime:    cfg.TravelTime,
			Radius:        cfg.Radius,
			HitRadius:     cfg.HitRadius,
			Stationary:    stationary,
			Position:      cfg.StartPosition,
		},
		release: cfg.Release,
	}
	m.instances[cfg.ID] = inst
	m.order = append(m.order, cfg.ID)
}

// StartMovement releases a stationary chakram. Elapsed time resets so travel
// begins fresh from the recorded start position no matter how long it idled.
// Unknown ids no-op.
func (m *Manager) StartMovement(id string) {
	inst, ok := m.instances[id]
	if !ok {
		return
	}
	inst.Stationary = false
	inst.elapsed = 0
}

// Update advances spin on every instance and motion on the traveling ones,
// reporting continuous-overlap hits against the supplied entities. An entity
// is hit the moment it overlaps the moving disc, not only at arrival. A
// chakram that reaches its end position resolves exactly once and removes
// itself within the same update.
func (m *Manager) Update(dt float64, entities []state.EntityPosition) state.HitMap {
	m.tick++
	hits := make(state.HitMap)
	resolved := make([]string, 0)

	for _, id := range m.order {
		inst, ok := m.instances[id]
		if !ok {
			continue
		}
		inst.Spin += m.spinRate * dt
		if inst.Stationary {
			continue
		}

		inst.elapsed += dt
		progress := inst.progress()
		inst.Position = geometry.Lerp(inst.StartPosition, inst.EndPosition, progress)

		if !inst.Resolved {
			hitIDs := make([]string, 0)
			hitRadiusSq := inst.HitRadius * inst.HitRadius
			for _, entity := range entities {
				if geometry.DistanceSquared(entity.Position, inst.Position) <= hitRadiusSq {
					hitIDs = append(hitIDs, entity.ID)
					hits.Add(entity.ID, inst.ID)
				}
			}
			if len(hitIDs) > 0 {
				encounterlog.ChakramHit(context.Background(), m.publisher, m.tick, inst.ID, hitIDs)
			}
		}

		if progress >= 1 && !inst.Resolved {
			inst.Resolved = true
			if m.onResolve != nil {
				m.onResolve(inst)
			}
			resolved = append(resolved, id)
		}
	}

	for _, id := range resolved {
		m.Remove(id)
	}
	return hits
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

// ActiveCount reports live instances, stationary ones included.
func (m *Manager) ActiveCount() int {
	return len(m.instances)
}

// Get returns the live instance for id, or nil.
func (m *Manager) Get(id string) *Instance {
	return m.instances[id]
}

// Snapshot copies the wire-visible state of every live instance in spawn
// order, for broadcasting.
func (m *Manager) Snapshot() []Chakram {
	out := make([]Chakram, 0, len(m.instances))
	for _, id := range m.order {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst.Chakram)
		}
	}
	return out
}
