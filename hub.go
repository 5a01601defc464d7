package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"raid-rehearsal/server/internal/geometry"
	"raid-rehearsal/server/logging/encounterlog"
)

// clientState tracks one connected client. The first joiner becomes the
// rehearser whose movement intents steer the tracked player entity; everyone
// after that spectates.
type clientState struct {
	id        string
	rehearser bool

	intentX float64
	intentZ float64

	lastInput     time.Time
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage serializes writes to the underlying connection and applies the
// write deadline.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Hub owns the connected clients and the single encounter they share. All
// encounter access goes through h.mu; the simulation loop, the websocket
// handlers, and the script watcher all funnel through it.
type Hub struct {
	mu          sync.Mutex
	encounter   *Encounter
	clients     map[string]*clientState
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	ticks       uint64
	telemetry   *telemetryCounters
}

// NewHub wraps an encounter for network access.
func NewHub(encounter *Encounter) *Hub {
	return &Hub{
		encounter:   encounter,
		clients:     make(map[string]*clientState),
		subscribers: make(map[string]*subscriber),
		telemetry:   newTelemetryCounters(),
	}
}

// Join registers a new client and returns the latest snapshot. The first
// client to join is bound as the rehearser and kicks off attempt one.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	clientID := fmt.Sprintf("player-%d", id)
	now := time.Now()

	h.mu.Lock()
	client := &clientState{id: clientID, lastHeartbeat: now}
	if h.encounter.PlayerID() == "" {
		client.rehearser = true
		h.encounter.BindPlayer(clientID)
		if h.encounter.Phase() == PhaseIdle {
			h.encounter.Restart()
			h.telemetry.RecordAttemptStart()
		}
	}
	h.clients[clientID] = client
	snapshot := h.encounter.Snapshot()
	opts := h.encounter.opts
	h.mu.Unlock()

	go h.broadcastState()

	return joinResponse{
		ID:        clientID,
		Protocol:  ProtocolVersion,
		Rehearser: client.rehearser,
		Options:   opts,
		Snapshot:  snapshot,
	}
}

// Subscribe associates a WebSocket connection with an existing client.
func (h *Hub) Subscribe(clientID string, conn *websocket.Conn) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return nil, false
	}

	client.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[clientID]; ok {
		existing.conn.Close()
	}

	sub := &subscriber{conn: conn}
	h.subscribers[clientID] = sub
	return sub, true
}

// MarshalState serializes the current broadcast payload, used to seed a fresh
// subscriber before the next tick lands.
func (h *Hub) MarshalState() ([]byte, error) {
	h.mu.Lock()
	msg := stateMessage{
		Type:       "state",
		Tick:       h.ticks,
		Snapshot:   h.encounter.Snapshot(),
		ServerTime: time.Now().UnixMilli(),
	}
	h.mu.Unlock()
	return json.Marshal(msg)
}

// Disconnect removes a client and closes any active subscriber connection.
// Dropping the rehearser unbinds the player entity so the next joiner can
// take over.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[clientID]
	if subOK {
		delete(h.subscribers, clientID)
	}
	client, clientOK := h.clients[clientID]
	if clientOK {
		delete(h.clients, clientID)
		if client.rehearser {
			h.encounter.BindPlayer("")
		}
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if clientOK {
		go h.broadcastState()
	}
}

// UpdateIntent stores the latest movement vector for a client. Vectors longer
// than unit length are normalized so clients cannot speed-hack.
func (h *Hub) UpdateIntent(clientID string, dx, dz float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return false
	}

	length := math.Hypot(dx, dz)
	if length > 1 {
		dx /= length
		dz /= length
	}

	client.intentX = dx
	client.intentZ = dz
	client.lastInput = time.Now()
	return true
}

// UpdateHeartbeat records the most recent heartbeat time and RTT for a client.
func (h *Hub) UpdateHeartbeat(clientID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return 0, false
	}

	client.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			client.lastRTT = rtt
		}
	}

	return client.lastRTT, true
}

// Restart begins a fresh attempt on the shared encounter.
func (h *Hub) Restart() {
	h.mu.Lock()
	h.encounter.Restart()
	h.telemetry.RecordAttemptStart()
	h.mu.Unlock()

	go h.broadcastState()
}

// ReloadScript loads a choreography from disk and stages it for the next
// restart. Invalid scripts are rejected without touching the running attempt.
func (h *Hub) ReloadScript(path string) error {
	script, err := LoadScript(path)
	if err != nil {
		h.telemetry.RecordScriptReload(false)
		return err
	}

	h.mu.Lock()
	h.encounter.ReplaceScript(script)
	tick := h.ticks
	pub := h.encounter.Publisher()
	h.mu.Unlock()
	h.telemetry.RecordScriptReload(true)

	encounterlog.ScriptStaged(context.Background(), pub, tick, script.Name, path)
	return nil
}

// advance runs a single simulation step and returns the broadcast message
// plus stale subscribers to close.
func (h *Hub) advance(now time.Time, dt float64) (stateMessage, []*subscriber) {
	h.mu.Lock()

	toClose := make([]*subscriber, 0)
	for id, client := range h.clients {
		if now.Sub(client.lastHeartbeat) > disconnectAfter {
			if sub, ok := h.subscribers[id]; ok {
				toClose = append(toClose, sub)
				delete(h.subscribers, id)
			}
			delete(h.clients, id)
			if client.rehearser {
				h.encounter.BindPlayer("")
			}
			log.Printf("disconnecting %s due to heartbeat timeout", id)
			continue
		}

		if client.rehearser && (client.intentX != 0 || client.intentZ != 0) {
			h.moveRehearserLocked(client, dt)
		}
	}

	h.encounter.Step(dt)
	h.ticks++
	msg := stateMessage{
		Type:       "state",
		Tick:       h.ticks,
		Snapshot:   h.encounter.Snapshot(),
		ServerTime: now.UnixMilli(),
	}
	h.mu.Unlock()

	return msg, toClose
}

// moveRehearserLocked applies the rehearser's intent to the tracked player
// entity, clamped to the arena bounds.
func (h *Hub) moveRehearserLocked(client *clientState, dt float64) {
	pos, ok := h.encounter.EntityPosition(client.id)
	if !ok {
		return
	}
	pos.X = clampToArena(pos.X + client.intentX*moveSpeed*dt)
	pos.Z = clampToArena(pos.Z + client.intentZ*moveSpeed*dt)
	h.encounter.SetEntityPosition(client.id, geometry.Point{X: pos.X, Z: pos.Z})
}

func clampToArena(v float64) float64 {
	if v < -arenaHalfExtent {
		return -arenaHalfExtent
	}
	if v > arenaHalfExtent {
		return arenaHalfExtent
	}
	return v
}

// RunSimulation drives the fixed-rate tick loop until the stop channel closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}
			last = now

			started := time.Now()
			msg, toClose := h.advance(now, dt)
			for _, sub := range toClose {
				sub.conn.Close()
			}
			h.telemetry.RecordTick(time.Since(started))
			h.sendState(msg)
		}
	}
}

// DiagnosticsSnapshot exposes connection health and tick telemetry.
func (h *Hub) DiagnosticsSnapshot() diagnosticsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]diagnosticsPlayer, 0, len(h.clients))
	for _, client := range h.clients {
		players = append(players, diagnosticsPlayer{
			ID:            client.id,
			Rehearser:     client.rehearser,
			LastHeartbeat: client.lastHeartbeat.UnixMilli(),
			RTTMillis:     client.lastRTT.Milliseconds(),
		})
	}
	return diagnosticsSnapshot{
		Phase:     h.encounter.Phase(),
		Attempt:   h.encounter.Attempt(),
		Players:   players,
		Telemetry: h.telemetry.Snapshot(),
	}
}

// broadcastState snapshots the encounter and pushes it to every subscriber.
func (h *Hub) broadcastState() {
	h.mu.Lock()
	msg := stateMessage{
		Type:       "state",
		Tick:       h.ticks,
		Snapshot:   h.encounter.Snapshot(),
		ServerTime: time.Now().UnixMilli(),
	}
	h.mu.Unlock()

	h.sendState(msg)
}

// sendState writes a prepared state message to every subscriber.
func (h *Hub) sendState(msg stateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal state message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("failed to send update to %s: %v", id, err)
			h.Disconnect(id)
		}
	}

	h.telemetry.RecordBroadcast(len(data)*len(subs), len(subs))
}
