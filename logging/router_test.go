package logging_test

import (
	"context"
	"testing"
	"time"

	"raid-rehearsal/server/logging"
	"raid-rehearsal/server/logging/sinks"
)

func closeRouter(t *testing.T, r *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("router close failed: %v", err)
	}
}

func TestRouterDeliversToEverySink(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := sinks.NewMemorySink()
	second := sinks.NewMemorySink()

	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return frozen }), logging.DefaultConfig(), []logging.NamedSink{
		{Name: "first", Sink: first},
		{Name: "second", Sink: second},
	})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "encounter.attempt_started", Severity: logging.SeverityInfo, Tick: 7})
	closeRouter(t, router)

	for name, sink := range map[string]*sinks.MemorySink{"first": first, "second": second} {
		events := sink.Events()
		if len(events) != 1 {
			t.Fatalf("sink %s received %d events, want 1", name, len(events))
		}
		if events[0].Tick != 7 {
			t.Fatalf("sink %s event tick = %d", name, events[0].Tick)
		}
		if !events[0].Time.Equal(frozen) {
			t.Fatalf("sink %s event time = %v, want clock value", name, events[0].Time)
		}
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	sink := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn

	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "mechanic.telegraph_spawned", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "mechanic.puddle_missed", Severity: logging.SeverityWarn})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("received %d events, want only the warn", len(events))
	}
	if events[0].Type != "mechanic.puddle_missed" {
		t.Fatalf("surviving event = %q", events[0].Type)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	sink := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	closeRouter(t, router)

	if got := len(sink.Events()); got != 0 {
		t.Fatalf("untyped event was delivered, %d events", got)
	}
}

func TestRouterAttachesConfiguredFields(t *testing.T) {
	sink := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "rehearsal"}

	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "encounter.attempt_cleared", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("received %d events, want 1", len(events))
	}
	if events[0].Extra["service"] != "rehearsal" {
		t.Fatalf("configured field missing: %v", events[0].Extra)
	}
}

func TestWithFieldsDoesNotOverrideEventExtra(t *testing.T) {
	var got logging.Event
	inner := logging.PublisherFunc(func(ctx context.Context, event logging.Event) { got = event })

	pub := logging.WithFields(inner, map[string]any{"attempt": "wrapper", "arena": "main"})
	pub.Publish(context.Background(), logging.Event{
		Type:  "mechanic.chakram_hit",
		Extra: map[string]any{"attempt": "original"},
	})

	if got.Extra["attempt"] != "original" {
		t.Fatalf("wrapper overwrote event field: %v", got.Extra)
	}
	if got.Extra["arena"] != "main" {
		t.Fatalf("wrapper field missing: %v", got.Extra)
	}
}

func TestRouterStatsCountPublishes(t *testing.T) {
	sink := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		router.Publish(context.Background(), logging.Event{Type: "mechanic.telegraph_resolved", Severity: logging.SeverityInfo})
	}
	closeRouter(t, router)

	stats := router.Stats()
	if stats.EventsTotal != 5 {
		t.Fatalf("EventsTotal = %d, want 5", stats.EventsTotal)
	}
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("sink captured %d events, want 5", got)
	}
}

func TestMemorySinkReset(t *testing.T) {
	sink := sinks.NewMemorySink()
	if err := sink.Write(logging.Event{Type: "encounter.attempt_started"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if len(sink.Events()) != 1 {
		t.Fatalf("sink did not record the event")
	}

	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("Reset left %d events behind", got)
	}
}

func TestConfigSinkSelection(t *testing.T) {
	cfg := logging.DefaultConfig()
	if !cfg.HasSink("console") {
		t.Fatalf("console sink not enabled by default")
	}
	if cfg.HasSink("json") {
		t.Fatalf("json sink enabled without a file path")
	}

	cfg.EnabledSinks = append(cfg.EnabledSinks, "json")
	if !cfg.HasSink("json") {
		t.Fatalf("json sink missing after enabling it")
	}
}
