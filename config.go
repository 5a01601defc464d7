package server

import "strings"

const defaultSeed = "rehearsal"

// EncounterOptions captures the toggles used when constructing an encounter.
type EncounterOptions struct {
	Seed          string  `json:"seed"`
	FlashDelay    float64 `json:"flashDelay"`
	StandInJitter float64 `json:"standInJitter"`
}

// normalized returns options with defaults applied.
func (opts EncounterOptions) normalized() EncounterOptions {
	normalized := opts
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = defaultSeed
	}
	if normalized.FlashDelay <= 0 {
		normalized.FlashDelay = defaultFlashDelay
	}
	if normalized.StandInJitter < 0 {
		normalized.StandInJitter = defaultStandInJitter
	}
	return normalized
}

// DefaultEncounterOptions uses the default seed and tuning values.
func DefaultEncounterOptions() EncounterOptions {
	return EncounterOptions{
		Seed:          defaultSeed,
		FlashDelay:    defaultFlashDelay,
		StandInJitter: defaultStandInJitter,
	}
}
