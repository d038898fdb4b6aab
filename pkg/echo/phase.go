package echo

// Phase names a step of processing a byte.
// Every call to Process starts and ends in PhaseIdle.
type Phase byte

// Processing phases.
const (
	PhaseIdle Phase = iota
	PhaseReceiving
	PhaseEchoing
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseReceiving:
		return "receiving"
	case PhaseEchoing:
		return "echoing"
	default:
		return "idle"
	}
}

// Tracer observes phase transitions.
type Tracer interface {
	Transition(from, to Phase, b byte)
}

// TransitionFunc is func form of Tracer.
type TransitionFunc func(from, to Phase, b byte)

// Transition implements Tracer.
func (f TransitionFunc) Transition(from, to Phase, b byte) {
	f(from, to, b)
}
