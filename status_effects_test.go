package server

import "testing"

func statusTestEncounter(t *testing.T) *Encounter {
	t.Helper()
	e := NewEncounter(testOptions(), &Script{Name: "statuses"}, nil)
	e.BindPlayer("hero")
	return e
}

func TestApplyStatusEffect(t *testing.T) {
	e := statusTestEncounter(t)

	if !e.applyStatusEffect("hero", StatusEffectShielded, "script", 1.0) {
		t.Fatalf("apply failed for a known actor and status")
	}
	if !e.hasStatusEffect("hero", StatusEffectShielded, 1.0) {
		t.Fatalf("status missing right after apply")
	}
	if !e.hasStatusEffect("hero", StatusEffectShielded, 1.0+shieldedDuration-0.01) {
		t.Fatalf("status expired before its duration")
	}
	if e.hasStatusEffect("hero", StatusEffectShielded, 1.0+shieldedDuration) {
		t.Fatalf("expiry must be exclusive at exactly applied+duration")
	}
}

func TestApplyStatusEffectRejectsUnknowns(t *testing.T) {
	e := statusTestEncounter(t)

	if e.applyStatusEffect("ghost", StatusEffectShielded, "script", 0) {
		t.Fatalf("applied a status to an untracked actor")
	}
	if e.applyStatusEffect("hero", StatusEffectType("haste"), "script", 0) {
		t.Fatalf("applied an undefined status type")
	}
}

func TestReapplyRefreshesDuration(t *testing.T) {
	e := statusTestEncounter(t)

	e.applyStatusEffect("hero", StatusEffectShielded, "script", 0)
	e.applyStatusEffect("hero", StatusEffectShielded, "script", 5.0)

	if !e.hasStatusEffect("hero", StatusEffectShielded, 5.0+shieldedDuration-0.01) {
		t.Fatalf("re-application did not refresh the expiry")
	}
}

func TestAdvanceStatusEffectsExpires(t *testing.T) {
	e := statusTestEncounter(t)
	e.applyStatusEffect("hero", StatusEffectExhausted, "script", 0)

	e.advanceStatusEffects(exhaustedDuration - 0.01)
	if !e.hasStatusEffect("hero", StatusEffectExhausted, exhaustedDuration-0.01) {
		t.Fatalf("status dropped early")
	}

	e.advanceStatusEffects(exhaustedDuration)
	if e.hasStatusEffect("hero", StatusEffectExhausted, exhaustedDuration) {
		t.Fatalf("status survived past its duration")
	}
	if len(e.statuses) != 0 {
		t.Fatalf("expired status left tracker state behind")
	}
}

func TestStatusSnapshotSorted(t *testing.T) {
	e := statusTestEncounter(t)
	e.applyStatusEffect("hero", StatusEffectShielded, "script", 0)
	e.applyStatusEffect("hero", StatusEffectExhausted, "script", 0)

	got := e.statusSnapshot("hero", 1.0)
	want := []string{"exhausted", "shielded"}
	if len(got) != len(want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}

	if e.statusSnapshot("ghost", 1.0) != nil {
		t.Fatalf("snapshot for unknown actor not nil")
	}
}
