package server

import (
	"math"
	"strings"
	"testing"

	"raid-rehearsal/server/internal/aoe"
)

func TestDefaultScriptIsValid(t *testing.T) {
	script := DefaultScript()
	if script.Name == "" {
		t.Fatalf("default script has no name")
	}
	if len(script.Steps) == 0 {
		t.Fatalf("default script has no steps")
	}
}

func TestParseScript(t *testing.T) {
	data := []byte(`
name: parse-check
standins:
  - id: anchor
    x: 4
    z: -2
steps:
  - at: 1.5
    action: spawn_aoe
    id: ring
    shape: circle
    x: 1
    z: 2
    radius: 6
    telegraph: 3.0
`)
	script, err := ParseScript(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if script.Name != "parse-check" {
		t.Fatalf("name = %q", script.Name)
	}
	if len(script.StandIns) != 1 || script.StandIns[0].ID != "anchor" {
		t.Fatalf("standins = %v", script.StandIns)
	}

	step := script.Steps[0]
	if step.At != 1.5 || step.Action != ActionSpawnAoE || step.Radius != 6 {
		t.Fatalf("step = %+v", step)
	}
}

func TestParseScriptRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseScript([]byte("steps: [unterminated")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestScriptValidate(t *testing.T) {
	valid := func() *Script {
		return &Script{
			Name:     "drill",
			StandIns: []StandInSpec{{ID: "anchor", X: 0, Z: 0}},
			Steps: []ScriptStep{
				{At: 1, Action: ActionSpawnAoE, ID: "ring", Shape: "circle", Radius: 5, Telegraph: 2},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Script)
		wantErr string
	}{
		{"valid", func(s *Script) {}, ""},
		{"missing name", func(s *Script) { s.Name = "" }, "missing name"},
		{"duplicate standin", func(s *Script) {
			s.StandIns = append(s.StandIns, StandInSpec{ID: "anchor"})
		}, "duplicate standin"},
		{"negative time", func(s *Script) { s.Steps[0].At = -1 }, "negative time"},
		{"missing id", func(s *Script) { s.Steps[0].ID = "" }, "missing id"},
		{"unknown shape", func(s *Script) { s.Steps[0].Shape = "hexagon" }, "unknown shape"},
		{"zero telegraph", func(s *Script) { s.Steps[0].Telegraph = 0 }, "telegraph must be positive"},
		{"puddle allows zero telegraph", func(s *Script) {
			s.Steps[0].Shape = "puddle"
			s.Steps[0].Telegraph = 0
		}, ""},
		{"unknown action", func(s *Script) { s.Steps[0].Action = "detonate" }, "unknown action"},
		{"chakram without travel time", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionSpawnChakram, ID: "blade", HitRadius: 1}
		}, "travelTime must be positive"},
		{"chakram without hit radius", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionSpawnChakram, ID: "blade", TravelTime: 2}
		}, "hitRadius must be positive"},
		{"respawn without radius", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionRespawnPuddle, ID: "soak"}
		}, "newRadius must be positive"},
		{"respawn with negative telegraph", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionRespawnPuddle, ID: "soak", NewRadius: 2, NewTelegraph: -1}
		}, "negative newTelegraph"},
		{"soak round without radius", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionCheckSoak, ID: "soak"}
		}, "needs positive newRadius"},
		{"final soak allows zero radius", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionCheckSoak, ID: "soak", FinalRound: true}
		}, ""},
		{"soak with negative telegraph", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionCheckSoak, ID: "soak", NewRadius: 2, NewTelegraph: -1}
		}, "negative newTelegraph"},
		{"status without target", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionApplyStatus, Status: "shielded"}
		}, "needs target and status"},
		{"move unknown standin", func(s *Script) {
			s.Steps[0] = ScriptStep{At: 1, Action: ActionMoveStandIn, ID: "stranger"}
		}, "unknown standin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := valid()
			tt.mutate(script)
			err := script.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestStepAoEConfig(t *testing.T) {
	step := ScriptStep{
		ID:        "cleave",
		Shape:     "cone",
		X:         3,
		Z:         -4,
		Rotation:  math.Pi / 2,
		Telegraph: 3.5,
		Radius:    18,
		Angle:     math.Pi / 3,
	}

	cfg := step.aoeConfig()
	if cfg.Kind != aoe.KindCone {
		t.Fatalf("kind = %q", cfg.Kind)
	}
	if cfg.Center.X != 3 || cfg.Center.Z != -4 {
		t.Fatalf("center = %v", cfg.Center)
	}
	if cfg.Rotation != math.Pi/2 || cfg.TelegraphDuration != 3.5 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
