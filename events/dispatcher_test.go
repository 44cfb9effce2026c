package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatchBefore_PriorityOrder(t *testing.T) {
	d := newTestDispatcher()

	var order []string
	d.Subscribe(TaskCreate, Before, 900, func(ctx context.Context, m *Mutation) error {
		order = append(order, "late")
		return nil
	})
	d.Subscribe(TaskCreate, Before, 100, func(ctx context.Context, m *Mutation) error {
		order = append(order, "early")
		return nil
	})
	d.Subscribe(TaskCreate, Before, 500, func(ctx context.Context, m *Mutation) error {
		order = append(order, "middle")
		return nil
	})

	require.NoError(t, d.DispatchBefore(context.Background(), &Mutation{Event: TaskCreate}))
	assert.Equal(t, []string{"early", "middle", "late"}, order)
}

func TestDispatchBefore_TieBreaksByRegistration(t *testing.T) {
	d := newTestDispatcher()

	var order []string
	d.Subscribe(TaskUpdate, Before, 500, func(ctx context.Context, m *Mutation) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(TaskUpdate, Before, 500, func(ctx context.Context, m *Mutation) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, d.DispatchBefore(context.Background(), &Mutation{Event: TaskUpdate}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatchBefore_VetoStopsChain(t *testing.T) {
	d := newTestDispatcher()

	veto := errors.New("not allowed")
	ran := false
	d.Subscribe(CTFDelete, Before, 100, func(ctx context.Context, m *Mutation) error {
		return veto
	})
	d.Subscribe(CTFDelete, Before, 200, func(ctx context.Context, m *Mutation) error {
		ran = true
		return nil
	})

	err := d.DispatchBefore(context.Background(), &Mutation{Event: CTFDelete})
	assert.ErrorIs(t, err, veto)
	assert.False(t, ran, "handlers after a veto must not run")
}

func TestDispatchAfter_ErrorsAreIsolated(t *testing.T) {
	d := newTestDispatcher()

	var mu sync.Mutex
	var ran []string
	d.Subscribe(TaskDelete, After, 100, func(ctx context.Context, m *Mutation) error {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, "failing")
		return errors.New("boom")
	})
	d.Subscribe(TaskDelete, After, 200, func(ctx context.Context, m *Mutation) error {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, "next")
		return nil
	})

	d.DispatchAfter(context.Background(), &Mutation{Event: TaskDelete})
	d.Wait()

	assert.Equal(t, []string{"failing", "next"}, ran, "a failing handler must not stop the rest")
}

func TestDispatchAfter_PanicRecovered(t *testing.T) {
	d := newTestDispatcher()

	var mu sync.Mutex
	ran := false
	d.Subscribe(TaskUpdate, After, 100, func(ctx context.Context, m *Mutation) error {
		panic("boom")
	})
	d.Subscribe(TaskUpdate, After, 200, func(ctx context.Context, m *Mutation) error {
		mu.Lock()
		defer mu.Unlock()
		ran = true
		return nil
	})

	d.DispatchAfter(context.Background(), &Mutation{Event: TaskUpdate})
	d.Wait()

	assert.True(t, ran, "a panicking handler must not stop the rest")
}

func TestDispatchAfter_SurvivesRequestCancellation(t *testing.T) {
	d := newTestDispatcher()

	var mu sync.Mutex
	var seen error
	d.Subscribe(TaskCreate, After, 500, func(ctx context.Context, m *Mutation) error {
		mu.Lock()
		defer mu.Unlock()
		seen = ctx.Err()
		return nil
	})

	// Контекст запроса уже отменён: обработчик работает на отвязанном.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.DispatchAfter(ctx, &Mutation{Event: TaskCreate})
	d.Wait()

	assert.NoError(t, seen)
}

func TestDispatch_UnknownEventIsNoop(t *testing.T) {
	d := newTestDispatcher()
	require.NoError(t, d.DispatchBefore(context.Background(), &Mutation{Event: CTFUpdate}))
	d.DispatchAfter(context.Background(), &Mutation{Event: CTFUpdate})
	d.Wait()
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "taskCreate", TaskCreate.String())
	assert.Equal(t, "registerWithToken", RegisterWithToken.String())
	assert.Equal(t, "unknown", Event(99).String())
}
