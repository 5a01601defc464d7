package server

// joinResponse answers the HTTP join handshake.
type joinResponse struct {
	ID        string            `json:"id"`
	Protocol  int               `json:"protocol"`
	Rehearser bool              `json:"rehearser"`
	Options   EncounterOptions  `json:"options"`
	Snapshot  EncounterSnapshot `json:"snapshot"`
}

// stateMessage is the per-tick broadcast.
type stateMessage struct {
	Type       string            `json:"type"`
	Tick       uint64            `json:"tick"`
	Snapshot   EncounterSnapshot `json:"snapshot"`
	ServerTime int64             `json:"serverTime"`
}

// diagnosticsPlayer exposes connection health on /diagnostics.
type diagnosticsPlayer struct {
	ID            string `json:"id"`
	Rehearser     bool   `json:"rehearser"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// diagnosticsSnapshot is the full /diagnostics payload.
type diagnosticsSnapshot struct {
	Phase     AttemptPhase        `json:"phase"`
	Attempt   uint64              `json:"attempt"`
	Players   []diagnosticsPlayer `json:"players"`
	Telemetry telemetrySnapshot   `json:"telemetry"`
}
