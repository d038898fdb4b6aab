package framework

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	errA, errB := errors.New("a"), errors.New("b")
	require.Equal(t, errA, errs.Add(errA).Aggregate())

	err := errs.Add(nil, errB).Aggregate()
	require.Error(t, err)
	require.True(t, errors.Is(err, errA))
	require.True(t, errors.Is(err, errB))
	require.Equal(t, "multiple errors:\na\nb", err.Error())
}

func TestRunnerWait(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(
		NamedRun("fail", RunFunc(func(context.Context) error { return boom })),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	cancel()
	require.Equal(t, boom, r.Wait())
}

func TestLoopMessages(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	var taken, seen int32
	loop.AddController(PrLvCommand, ControlFunc(func(cc ControlContext) error {
		require.Equal(t, PrLvCommand, cc.PriorityLevel())
		cc.Messages().ProcessMessages(func(msg Message) bool {
			atomic.AddInt32(&seen, 1)
			if msg.(string) == "take" {
				atomic.AddInt32(&taken, 1)
				return true
			}
			return false
		})
		return nil
	}))
	loop.AddController(PrLvReport, ControlFunc(func(cc ControlContext) error {
		if cc.Messages().Len() != 1 {
			return errors.New("expect one message left")
		}
		return nil
	}))

	loop.PostMessage("take")
	loop.PostMessage("leave")
	loop.RunIteration(context.Background())
	require.Equal(t, int32(1), atomic.LoadInt32(&taken))
	require.Equal(t, int32(2), atomic.LoadInt32(&seen))

	// messages not taken are not redelivered.
	loop.RunIteration(context.Background())
	require.Equal(t, int32(2), atomic.LoadInt32(&seen))
}

func TestLoopTriggerNext(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	iterCh := make(chan struct{}, 1)
	loop.AddController(PrLvNormal, ControlFunc(func(cc ControlContext) error {
		iterCh <- struct{}{}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan LoopControl, 1)
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		started <- LoopCtlFrom(ctx)
		<-ctx.Done()
		return ctx.Err()
	}))
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	ctl := <-started
	require.NotNil(t, ctl)
	ctl.TriggerNext()
	select {
	case <-iterCh:
	case <-time.After(time.Second):
		t.Fatal("iteration not triggered")
	}
	cancel()
	require.NoError(t, <-errCh)
}

func TestLoopStopsWhenRunnableFails(t *testing.T) {
	boom := errors.New("boom")
	loop := NewLoop().AddRunnable(
		RunFunc(func(context.Context) error { return boom }),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	require.Equal(t, boom, loop.Run(context.Background()))
}
