package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	d := newTestDispatcher()

	var mu sync.Mutex
	var got []MatchCompleted
	done := make(chan struct{})

	d.Subscribe(func(_ context.Context, event MatchCompleted) error {
		mu.Lock()
		got = append(got, event)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
		return nil
	})
	go d.Run()
	defer d.Close()

	for i := 1; i <= 3; i++ {
		d.PublishMatchCompleted(MatchCompleted{EventID: 1, MatchID: i})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, []MatchCompleted{
		{EventID: 1, MatchID: 1},
		{EventID: 1, MatchID: 2},
		{EventID: 1, MatchID: 3},
	}, got)
}

func TestDispatcherIsolatesHandlerFailures(t *testing.T) {
	d := newTestDispatcher()

	delivered := make(chan MatchCompleted, 1)
	d.Subscribe(func(context.Context, MatchCompleted) error {
		return errors.New("recalculation failed")
	})
	d.Subscribe(func(context.Context, MatchCompleted) error {
		panic("handler bug")
	})
	d.Subscribe(func(_ context.Context, event MatchCompleted) error {
		delivered <- event
		return nil
	})
	go d.Run()
	defer d.Close()

	d.PublishMatchCompleted(MatchCompleted{EventID: 1, MatchID: 7})

	select {
	case event := <-delivered:
		assert.Equal(t, 7, event.MatchID)
	case <-time.After(time.Second):
		t.Fatal("failing handlers blocked delivery to the rest")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	// Run не запущен — очередь заполняется до отказа, лишнее
	// отбрасывается без блокировки публикующей стороны.
	d := newTestDispatcher()

	published := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			d.PublishMatchCompleted(MatchCompleted{EventID: 1, MatchID: i})
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}
}
