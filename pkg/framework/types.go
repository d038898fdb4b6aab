package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is consumed by controllers in a Loop.
type Message interface{}

// Controller runs once per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current control iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves messages collected when this iteration starts.
	Messages() MessageStore

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 8

// Predefined priority levels.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 2
	PrLvNormal int = 4
	PrLvLow    int = 6
	PrLvIdle   int = PriorityLevels - 1

	// PrLvCommand is where remote commands are applied.
	PrLvCommand = PrLvHigh
	// PrLvReport is where telemetry is published.
	PrLvReport = PrLvLow
)

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext schedules the next iteration immediately.
	TriggerNext()
}

// MessageStore provides access to the messages of an iteration.
type MessageStore interface {
	// ProcessMessages calls fn on each message; messages for which
	// fn returns true are taken and removed from the store.
	ProcessMessages(fn func(Message) bool)
	// Len returns the number of remaining messages.
	Len() int
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
