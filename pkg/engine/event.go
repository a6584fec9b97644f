package engine

// EventKind classifies event records.
type EventKind string

const (
	EventMove        EventKind = "move"
	EventShoot       EventKind = "shoot"
	EventCharge      EventKind = "charge"
	EventChargeFail  EventKind = "charge_fail"
	EventFight       EventKind = "fight"
	EventDeath       EventKind = "death"
	EventPhaseChange EventKind = "phase_change"
	EventTurnChange  EventKind = "turn_change"
	EventScore       EventKind = "score"
	EventMatchEnd    EventKind = "match_end"
)

// Event is one structured record of something that happened in the match.
// The engine emits events; formatting them for humans and persisting them
// is the caller's concern.
type Event struct {
	Kind   EventKind `json:"kind"`
	Turn   int       `json:"turn"`
	Phase  Phase     `json:"phase"`
	Player Player    `json:"player"`

	UnitID   int `json:"unit_id,omitempty"`
	TargetID int `json:"target_id,omitempty"`

	// Kind-specific payload: move/charge destinations, attack chains,
	// score deltas. Values must be JSON-serializable.
	Payload map[string]any `json:"payload,omitempty"`
}

// EventSink receives events as the controller emits them. Implementations
// must not mutate the event or block for long; the controller calls the sink
// synchronously inside Apply.
type EventSink interface {
	HandleEvent(Event)
}

// EventRecorder is an EventSink that appends every event to a slice.
type EventRecorder struct {
	Events []Event
}

// HandleEvent appends the event.
func (r *EventRecorder) HandleEvent(e Event) {
	r.Events = append(r.Events, e)
}

// Drain returns the recorded events and resets the recorder.
func (r *EventRecorder) Drain() []Event {
	evs := r.Events
	r.Events = nil
	return evs
}
