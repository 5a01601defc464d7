package server

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"raid-rehearsal/server/internal/aoe"
)

//go:embed default_script.yaml
var defaultScriptYAML []byte

// Script is one encounter choreography: scripted stand-in anchors plus a
// time-ordered list of steps the timeline replays every attempt.
type Script struct {
	Name     string        `yaml:"name"`
	StandIns []StandInSpec `yaml:"standins"`
	Steps    []ScriptStep  `yaml:"steps"`
}

// StandInSpec anchors one scripted stand-in on the arena.
type StandInSpec struct {
	ID string  `yaml:"id"`
	X  float64 `yaml:"x"`
	Z  float64 `yaml:"z"`
}

// StepAction names what a script step does when its time fires.
type StepAction string

const (
	ActionSpawnAoE       StepAction = "spawn_aoe"
	ActionSpawnChakram   StepAction = "spawn_chakram"
	ActionReleaseChakram StepAction = "release_chakram"
	ActionRespawnPuddle  StepAction = "respawn_puddle"
	ActionCheckSoak      StepAction = "check_soak"
	ActionApplyStatus    StepAction = "apply_status"
	ActionMoveStandIn    StepAction = "move_standin"
)

// ScriptStep is one timed instruction. Only the fields relevant to its
// action are consulted; Validate rejects steps missing required ones.
type ScriptStep struct {
	At     float64    `yaml:"at"`
	Action StepAction `yaml:"action"`
	ID     string     `yaml:"id"`

	// spawn_aoe
	Shape      string  `yaml:"shape"`
	X          float64 `yaml:"x"`
	Z          float64 `yaml:"z"`
	Rotation   float64 `yaml:"rotation"`
	Telegraph  float64 `yaml:"telegraph"`
	Radius     float64 `yaml:"radius"`
	Length     float64 `yaml:"length"`
	Width      float64 `yaml:"width"`
	Angle      float64 `yaml:"angle"`
	StemLength float64 `yaml:"stemLength"`
	StemWidth  float64 `yaml:"stemWidth"`
	BarLength  float64 `yaml:"barLength"`
	BarWidth   float64 `yaml:"barWidth"`
	ArmLength  float64 `yaml:"armLength"`
	ArmWidth   float64 `yaml:"armWidth"`

	// spawn_chakram
	StartX     float64 `yaml:"startX"`
	StartZ     float64 `yaml:"startZ"`
	EndX       float64 `yaml:"endX"`
	EndZ       float64 `yaml:"endZ"`
	TravelTime float64 `yaml:"travelTime"`
	HitRadius  float64 `yaml:"hitRadius"`
	Stationary bool    `yaml:"stationary"`

	// respawn_puddle / check_soak
	NewRadius    float64 `yaml:"newRadius"`
	NewTelegraph float64 `yaml:"newTelegraph"`
	FinalRound   bool    `yaml:"finalRound"`

	// apply_status
	Target string `yaml:"target"`
	Status string `yaml:"status"`
}

var validShapes = map[string]aoe.Kind{
	"circle": aoe.KindCircle,
	"line":   aoe.KindLine,
	"cone":   aoe.KindCone,
	"tshape": aoe.KindTShape,
	"puddle": aoe.KindPuddle,
	"plus":   aoe.KindPlus,
}

// LoadScript reads and validates a YAML choreography from disk.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML choreography.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("script: decode: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// DefaultScript returns the embedded built-in choreography.
func DefaultScript() *Script {
	script, err := ParseScript(defaultScriptYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default script invalid: %v", err))
	}
	return script
}

// Validate checks stand-in ids, step actions, shape kinds, and the per-action
// required fields. Scripts are content authored by hand, so errors name the
// offending step.
func (s *Script) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("script: missing name")
	}
	seen := make(map[string]bool, len(s.StandIns))
	for _, standIn := range s.StandIns {
		if standIn.ID == "" {
			return fmt.Errorf("script %s: standin with empty id", s.Name)
		}
		if seen[standIn.ID] {
			return fmt.Errorf("script %s: duplicate standin id %q", s.Name, standIn.ID)
		}
		seen[standIn.ID] = true
	}
	for i, step := range s.Steps {
		if step.At < 0 {
			return fmt.Errorf("script %s step %d: negative time %.2f", s.Name, i, step.At)
		}
		if step.ID == "" && step.Action != ActionApplyStatus {
			return fmt.Errorf("script %s step %d (%s): missing id", s.Name, i, step.Action)
		}
		switch step.Action {
		case ActionSpawnAoE:
			if _, ok := validShapes[step.Shape]; !ok {
				return fmt.Errorf("script %s step %d: unknown shape %q", s.Name, i, step.Shape)
			}
			if step.Telegraph <= 0 && step.Shape != "puddle" {
				return fmt.Errorf("script %s step %d: telegraph must be positive", s.Name, i)
			}
		case ActionSpawnChakram:
			if step.TravelTime <= 0 {
				return fmt.Errorf("script %s step %d: travelTime must be positive", s.Name, i)
			}
			if step.HitRadius <= 0 {
				return fmt.Errorf("script %s step %d: hitRadius must be positive", s.Name, i)
			}
		case ActionReleaseChakram:
			// id is enough
		case ActionCheckSoak:
			if !step.FinalRound && step.NewRadius <= 0 {
				return fmt.Errorf("script %s step %d: check_soak needs positive newRadius for the next round", s.Name, i)
			}
			if step.NewTelegraph < 0 {
				return fmt.Errorf("script %s step %d: negative newTelegraph", s.Name, i)
			}
		case ActionRespawnPuddle:
			if step.NewRadius <= 0 {
				return fmt.Errorf("script %s step %d: newRadius must be positive", s.Name, i)
			}
			if step.NewTelegraph < 0 {
				return fmt.Errorf("script %s step %d: negative newTelegraph", s.Name, i)
			}
		case ActionApplyStatus:
			if step.Target == "" || step.Status == "" {
				return fmt.Errorf("script %s step %d: apply_status needs target and status", s.Name, i)
			}
		case ActionMoveStandIn:
			if !seen[step.ID] {
				return fmt.Errorf("script %s step %d: move_standin for unknown standin %q", s.Name, i, step.ID)
			}
		default:
			return fmt.Errorf("script %s step %d: unknown action %q", s.Name, i, step.Action)
		}
	}
	return nil
}

// aoeConfig maps a spawn_aoe step onto the manager's spawn request.
func (step ScriptStep) aoeConfig() aoe.Config {
	return aoe.Config{
		ID:                step.ID,
		Kind:              validShapes[step.Shape],
		Center:            pointAt(step.X, step.Z),
		Rotation:          step.Rotation,
		TelegraphDuration: step.Telegraph,
		Radius:            step.Radius,
		Length:            step.Length,
		Width:             step.Width,
		Angle:             step.Angle,
		StemLength:        step.StemLength,
		StemWidth:         step.StemWidth,
		BarLength:         step.BarLength,
		BarWidth:          step.BarWidth,
		ArmLength:         step.ArmLength,
		ArmWidth:          step.ArmWidth,
	}
}
