package echo

import "fmt"

// Mode selects how bytes are mapped to output.
type Mode byte

// Echo modes.
const (
	// ModeClassify erases on backspace/delete and drops unprintable bytes.
	ModeClassify Mode = iota
	// ModePassthrough echoes every byte unchanged.
	ModePassthrough
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModePassthrough {
		return "passthrough"
	}
	return "classify"
}

// ParseMode parses the name of a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "classify", "":
		return ModeClassify, nil
	case "passthrough":
		return ModePassthrough, nil
	}
	return ModeClassify, fmt.Errorf("unknown echo mode %q", s)
}

// Engine maps received bytes to echo output and counts them.
// It is not safe for concurrent use.
type Engine struct {
	Mode   Mode
	Tracer Tracer

	processed uint64
	baudRate  uint32
	lastByte  byte
	hasLast   bool
}

// New creates an Engine with the default baud rate.
func New() *Engine {
	return &Engine{baudRate: DefaultBaudRate}
}

// NewWithBaudRate creates an Engine with a clamped baud rate.
func NewWithBaudRate(rate uint32) *Engine {
	return &Engine{baudRate: ClampBaudRate(rate)}
}

// Process returns the output for b and counts it.
func (e *Engine) Process(b byte) (out Output) {
	e.trace(PhaseIdle, PhaseReceiving, b)
	e.lastByte, e.hasLast = b, true
	e.processed++
	e.trace(PhaseReceiving, PhaseEchoing, b)
	if e.Mode == ModePassthrough {
		out = single(b)
	} else {
		out = Echo(b)
	}
	e.trace(PhaseEchoing, PhaseIdle, b)
	return
}

func (e *Engine) trace(from, to Phase, b byte) {
	if t := e.Tracer; t != nil {
		t.Transition(from, to, b)
	}
}

// ProcessedCount returns the number of bytes processed.
func (e *Engine) ProcessedCount() uint64 {
	return e.processed
}

// BaudRate returns the configured baud rate.
func (e *Engine) BaudRate() uint32 {
	return e.baudRate
}

// SetBaudRate sets the baud rate, clamped to the valid range.
func (e *Engine) SetBaudRate(rate uint32) {
	e.baudRate = ClampBaudRate(rate)
}

// LastByte returns the most recently processed byte.
func (e *Engine) LastByte() (byte, bool) {
	return e.lastByte, e.hasLast
}

// Echo maps b to output using byte classification, without counting.
func Echo(b byte) Output {
	switch classes[b] {
	case ClassErase:
		return eraseSeq
	case ClassAlnum, ClassSymbol:
		return single(b)
	}
	return Output{}
}
