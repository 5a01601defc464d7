package timeline

import "sort"

// Event is a one-shot scheduled callback. Time is seconds from Start. The
// timeline does not deduplicate ids; callers that need uniqueness enforce it
// before scheduling.
type Event struct {
	ID      string
	Time    float64
	Handler func()
}

// Timeline advances a monotonic clock each update and fires every pending
// event whose time has been reached, exactly once per Start cycle and in
// ascending time order. A very large dt can make several events due at once;
// they still fire one by one in time order inside that single update.
//
// An event scheduled with a time already behind a running clock fires on the
// very next update. There is no missed-event error path, so callers cannot
// tell a legitimately due event from one registered too late.
type Timeline struct {
	events  []Event
	fired   []bool
	clock   float64
	running bool
	started bool
}

// New returns an empty, stopped timeline.
func New() *Timeline {
	return &Timeline{}
}

// AddEvent appends an event to the schedule. Safe to call before Start or
// while running; handlers registered mid-run fire on the following update
// once their time is due.
func (t *Timeline) AddEvent(event Event) {
	t.events = append(t.events, event)
	t.fired = append(t.fired, false)
}

// Start resets the clock to zero, clears the fired set, and begins firing.
func (t *Timeline) Start() {
	t.clock = 0
	t.running = true
	t.started = true
	for i := range t.fired {
		t.fired[i] = false
	}
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].Time < t.events[j].Time
	})
}

// Stop halts firing without resetting the clock.
func (t *Timeline) Stop() {
	t.running = false
}

// Reset returns the timeline to its pre-Start state, keeping the schedule.
func (t *Timeline) Reset() {
	t.clock = 0
	t.running = false
	t.started = false
	for i := range t.fired {
		t.fired[i] = false
	}
}

// ClearEvents drops the schedule entirely.
func (t *Timeline) ClearEvents() {
	t.events = nil
	t.fired = nil
}

// Update advances the clock by dt and fires due events. It is a no-op while
// stopped. Handlers may call AddEvent; events appended during an update are
// considered from the next update onward.
func (t *Timeline) Update(dt float64) {
	if !t.running {
		return
	}
	t.clock += dt

	due := make([]int, 0)
	limit := len(t.events)
	for i := 0; i < limit; i++ {
		if t.fired[i] || t.events[i].Time > t.clock {
			continue
		}
		due = append(due, i)
	}
	sort.SliceStable(due, func(a, b int) bool {
		return t.events[due[a]].Time < t.events[due[b]].Time
	})
	for _, i := range due {
		t.fired[i] = true
		if t.events[i].Handler != nil {
			t.events[i].Handler()
		}
	}
}

// Clock reports seconds elapsed since Start.
func (t *Timeline) Clock() float64 {
	return t.clock
}

// Running reports whether Update currently advances the clock.
func (t *Timeline) Running() bool {
	return t.running
}

// EventCount reports the number of scheduled events.
func (t *Timeline) EventCount() int {
	return len(t.events)
}

// IsComplete reports whether the clock has reached the latest scheduled
// event's time. An empty schedule is complete as soon as the timeline has
// been started.
func (t *Timeline) IsComplete() bool {
	if !t.started {
		return false
	}
	latest := 0.0
	for _, event := range t.events {
		if event.Time > latest {
			latest = event.Time
		}
	}
	return t.clock >= latest
}
