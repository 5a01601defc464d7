package state

import "raid-rehearsal/server/internal/geometry"

// EntityPosition is the per-tick snapshot of one tracked entity that the
// orchestrator feeds to the collision managers. Managers never retain these
// beyond the update call that received them.
type EntityPosition struct {
	ID       string         `json:"id"`
	Position geometry.Point `json:"position"`
}

// HitMap accumulates hit attribution for a single tick: entity id to the ids
// of the hazards that caught it. A nil map means nothing resolved.
type HitMap map[string][]string

// Add records one hazard hit against an entity.
func (m HitMap) Add(entityID, hazardID string) {
	m[entityID] = append(m[entityID], hazardID)
}

// Merge folds other into m, preserving per-entity append order.
func (m HitMap) Merge(other HitMap) {
	for entityID, hazards := range other {
		m[entityID] = append(m[entityID], hazards...)
	}
}
