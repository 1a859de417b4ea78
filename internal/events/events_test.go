package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(PaperIndexed)

	bus.Emit(PaperIndexed, "paper-1")

	select {
	case ev := <-ch:
		assert.Equal(t, PaperIndexed, ev.Name)
		assert.Equal(t, "paper-1", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEmitWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Emit(PaperImported, nil)
}

func TestSubscribersAreIndependentPerName(t *testing.T) {
	bus := NewBus()
	indexed := bus.Subscribe(PaperIndexed)
	renamed := bus.Subscribe(PaperRenamed)

	bus.Emit(PaperRenamed, "paper-2")

	select {
	case ev := <-renamed:
		assert.Equal(t, "paper-2", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case ev := <-indexed:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestSubscribeAllReceivesEveryName(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.SubscribeAll()
	defer cancel()

	bus.Emit(PaperIndexed, "a")
	bus.Emit(PaperImported, "b")
	bus.Emit(PaperRenamed, "c")

	names := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		select {
		case ev := <-ch:
			names = append(names, ev.Name)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	assert.Equal(t, []string{PaperIndexed, PaperImported, PaperRenamed}, names)
}

func TestSubscribeAllCancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.SubscribeAll()
	cancel()

	bus.Emit(PaperIndexed, "a")

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestEmitDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(PaperIndexed)

	for i := 0; i < 100; i++ {
		bus.Emit(PaperIndexed, i)
	}

	require.NotEmpty(t, ch)
	assert.LessOrEqual(t, len(ch), cap(ch))
}
