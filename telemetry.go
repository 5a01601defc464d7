package server

import (
	"sync/atomic"
	"time"
)

type telemetryCounters struct {
	ticksTotal            atomic.Uint64
	tickDurationMillis    atomic.Int64
	broadcastsTotal       atomic.Uint64
	bytesSent             atomic.Uint64
	lastBroadcastBytes    atomic.Uint64
	lastBroadcastClients  atomic.Uint64
	attemptsStarted       atomic.Uint64
	scriptReloadsAccepted atomic.Uint64
	scriptReloadsRejected atomic.Uint64
}

type telemetrySnapshot struct {
	TicksTotal            uint64 `json:"ticksTotal"`
	TickDurationMillis    int64  `json:"tickDurationMillis"`
	BroadcastsTotal       uint64 `json:"broadcastsTotal"`
	BytesSent             uint64 `json:"bytesSent"`
	LastBroadcastBytes    uint64 `json:"lastBroadcastBytes"`
	LastBroadcastClients  uint64 `json:"lastBroadcastClients"`
	AttemptsStarted       uint64 `json:"attemptsStarted"`
	ScriptReloadsAccepted uint64 `json:"scriptReloadsAccepted"`
	ScriptReloadsRejected uint64 `json:"scriptReloadsRejected"`
}

func newTelemetryCounters() *telemetryCounters {
	return &telemetryCounters{}
}

func (t *telemetryCounters) RecordTick(duration time.Duration) {
	t.ticksTotal.Add(1)
	t.tickDurationMillis.Store(duration.Milliseconds())
}

func (t *telemetryCounters) RecordBroadcast(bytes, clients int) {
	if bytes < 0 {
		bytes = 0
	}
	if clients < 0 {
		clients = 0
	}
	t.broadcastsTotal.Add(1)
	t.bytesSent.Add(uint64(bytes))
	t.lastBroadcastBytes.Store(uint64(bytes))
	t.lastBroadcastClients.Store(uint64(clients))
}

func (t *telemetryCounters) RecordAttemptStart() {
	t.attemptsStarted.Add(1)
}

func (t *telemetryCounters) RecordScriptReload(accepted bool) {
	if accepted {
		t.scriptReloadsAccepted.Add(1)
	} else {
		t.scriptReloadsRejected.Add(1)
	}
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		TicksTotal:            t.ticksTotal.Load(),
		TickDurationMillis:    t.tickDurationMillis.Load(),
		BroadcastsTotal:       t.broadcastsTotal.Load(),
		BytesSent:             t.bytesSent.Load(),
		LastBroadcastBytes:    t.lastBroadcastBytes.Load(),
		LastBroadcastClients:  t.lastBroadcastClients.Load(),
		AttemptsStarted:       t.attemptsStarted.Load(),
		ScriptReloadsAccepted: t.scriptReloadsAccepted.Load(),
		ScriptReloadsRejected: t.scriptReloadsRejected.Load(),
	}
}
