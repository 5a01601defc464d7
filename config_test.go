package server

import "testing"

func TestEncounterOptionsNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   EncounterOptions
		want EncounterOptions
	}{
		{
			"zero values",
			EncounterOptions{},
			EncounterOptions{Seed: defaultSeed, FlashDelay: defaultFlashDelay},
		},
		{
			"whitespace seed",
			EncounterOptions{Seed: "   "},
			EncounterOptions{Seed: defaultSeed, FlashDelay: defaultFlashDelay},
		},
		{
			"explicit values kept",
			EncounterOptions{Seed: "alpha", FlashDelay: 1.5, StandInJitter: 2},
			EncounterOptions{Seed: "alpha", FlashDelay: 1.5, StandInJitter: 2},
		},
		{
			"zero jitter kept",
			EncounterOptions{Seed: "alpha", FlashDelay: 1, StandInJitter: 0},
			EncounterOptions{Seed: "alpha", FlashDelay: 1, StandInJitter: 0},
		},
		{
			"negative jitter replaced",
			EncounterOptions{Seed: "alpha", FlashDelay: 1, StandInJitter: -3},
			EncounterOptions{Seed: "alpha", FlashDelay: 1, StandInJitter: defaultStandInJitter},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.normalized(); got != tt.want {
				t.Fatalf("normalized() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
