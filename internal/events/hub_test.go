package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

func progress(appID string, n int64) types.Event {
	return types.Event{
		Type:     types.EventProgress,
		AppID:    appID,
		Progress: &types.Progress{BytesDownloaded: n},
	}
}

func TestPublishStampsAndFilters(t *testing.T) {
	hub := NewHub(nil)
	all := hub.Subscribe("")
	demo := hub.Subscribe("demo")
	defer hub.Unsubscribe(all)
	defer hub.Unsubscribe(demo)

	hub.Publish(progress("other", 1))
	hub.Publish(progress("demo", 2))

	first := <-all.C
	assert.Equal(t, "other", first.AppID)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, "demo", (<-all.C).AppID)

	got := <-demo.C
	assert.Equal(t, "demo", got.AppID)
	select {
	case evt := <-demo.C:
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}

func TestOrderPreservedPerApp(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("demo")
	defer hub.Unsubscribe(sub)

	for i := int64(1); i <= 10; i++ {
		hub.Publish(progress("demo", i))
	}
	hub.Publish(types.Event{Type: types.EventComplete, AppID: "demo", FinalPath: "/x"})

	var last int64
	for i := 0; i < 10; i++ {
		evt := <-sub.C
		require.Equal(t, types.EventProgress, evt.Type)
		assert.GreaterOrEqual(t, evt.Progress.BytesDownloaded, last)
		last = evt.Progress.BytesDownloaded
	}
	assert.Equal(t, types.EventComplete, (<-sub.C).Type)
}

func TestProgressDroppedWhenFull(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("demo")
	defer hub.Unsubscribe(sub)

	for i := 0; i < DefaultBuffer+10; i++ {
		hub.Publish(progress("demo", int64(i)))
	}
	assert.Len(t, sub.C, DefaultBuffer)
}

func TestTerminalWaitsForReader(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("demo")
	defer hub.Unsubscribe(sub)

	for i := 0; i < DefaultBuffer; i++ {
		hub.Publish(progress("demo", int64(i)))
	}

	done := make(chan struct{})
	go func() {
		hub.Publish(types.Event{Type: types.EventCancelled, AppID: "demo"})
		close(done)
	}()

	// Drain; the terminal event must arrive after the buffered progress
	var terminal types.Event
	for evt := range sub.C {
		if evt.Type.Terminal() {
			terminal = evt
			break
		}
	}
	<-done
	assert.Equal(t, types.EventCancelled, terminal.Type)
}

func TestTerminalGivesUpOnStalledSubscriber(t *testing.T) {
	hub := NewHub(nil).WithTerminalWait(20 * time.Millisecond)
	sub := hub.Subscribe("demo")
	defer hub.Unsubscribe(sub)

	for i := 0; i < DefaultBuffer; i++ {
		hub.Publish(progress("demo", int64(i)))
	}

	start := time.Now()
	hub.Publish(types.Event{Type: types.EventError, AppID: "demo", Message: "boom"})
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnsubscribeReleasesBlockedPublish(t *testing.T) {
	hub := NewHub(nil).WithTerminalWait(time.Minute)
	sub := hub.Subscribe("demo")

	for i := 0; i < DefaultBuffer; i++ {
		hub.Publish(progress("demo", int64(i)))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Publish(types.Event{Type: types.EventComplete, AppID: "demo"})
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestStalledTerminalDoesNotBlockOtherApps(t *testing.T) {
	hub := NewHub(nil).WithTerminalWait(time.Minute)
	stalled := hub.Subscribe("slow")
	defer hub.Unsubscribe(stalled)

	for i := 0; i < DefaultBuffer; i++ {
		hub.Publish(progress("slow", int64(i)))
	}

	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		hub.Publish(types.Event{Type: types.EventComplete, AppID: "slow"})
	}()
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		other := hub.Subscribe("fast")
		hub.Publish(progress("fast", 1))
		assert.Equal(t, int64(1), (<-other.C).Progress.BytesDownloaded)
		hub.Unsubscribe(other)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscribe and publish for another app waited on a stalled subscriber")
	}

	hub.Unsubscribe(stalled)
	<-blocked
}

func TestLast(t *testing.T) {
	hub := NewHub(nil)

	_, ok := hub.Last("demo")
	assert.False(t, ok)

	hub.Publish(progress("demo", 5))
	hub.Publish(types.Event{Type: types.EventComplete, AppID: "demo", FinalPath: "/apps/demo/run.exe"})

	evt, ok := hub.Last("demo")
	require.True(t, ok)
	assert.Equal(t, types.EventComplete, evt.Type)
	assert.Equal(t, "/apps/demo/run.exe", evt.FinalPath)
}
