package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default period between loop iterations.
const DefaultInterval = time.Second

// Loop runs controllers periodically and delivers posted messages to them.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	messages []Message
	lock     sync.Mutex
	wakeUpCh chan struct{}
}

type loopCtxKey struct{}

type iteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      []Message
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// LoopCtlFrom gets LoopControl from context passed to runnables.
func LoopCtlFrom(ctx context.Context) LoopControl {
	if ctl, ok := ctx.Value(loopCtxKey{}).(LoopControl); ok {
		return ctl
	}
	return nil
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at the priority level.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	return l
}

// AddRunnable adds runnables started along with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages = append(l.messages, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithValue(ctx, loopCtxKey{}, LoopControl(l)))
	defer cancel()

	runner := NewRunnerWith(ctx).Go(l.runners...)
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return runner.Wait()
		case <-runner.Done():
			cancel()
			return runner.Wait()
		case <-ticker.C:
			l.RunIteration(ctx)
		case <-l.wakeUpCh:
			l.RunIteration(ctx)
		}
	}
}

// RunIteration runs all controllers once.
func (l *Loop) RunIteration(ctx context.Context) {
	iter := &iteration{Loop: l, ctx: ctx, time: time.Now()}
	l.lock.Lock()
	iter.messages, l.messages = l.messages, nil
	l.lock.Unlock()
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	if len(iter.messages) > 0 {
		glog.V(3).Infof("%d unprocessed messages dropped", len(iter.messages))
	}
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) PriorityLevel() int       { return t.priorityLevel }
func (t *iteration) Messages() MessageStore   { return t }
func (t *iteration) Len() int                 { return len(t.messages) }

func (t *iteration) ProcessMessages(fn func(Message) bool) {
	remains := t.messages[:0]
	for _, msg := range t.messages {
		if !fn(msg) {
			remains = append(remains, msg)
		}
	}
	t.messages = remains
}
