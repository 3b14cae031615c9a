package usecase

import (
	"fmt"
	"sync"
	"testing"

	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (domainTopic.ITopicRouter, *recordingDeliverer) {
	d := newRecordingDeliverer()
	return NewTopicRouter(d, 4), d
}

func TestRouter_SubscribePublishExactlyOnce(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("channel:7", "X")
	router.Subscribe("channel:7", "X")

	n := router.Publish("channel:7", domainTopic.Event{Name: "message-created", Payload: "m1"})
	assert.Equal(t, 1, n)
	require.Len(t, d.events("X"), 1)
	assert.Equal(t, "m1", d.events("X")[0].Payload)
}

func TestRouter_UnsubscribeStopsDelivery(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("channel:7", "X")
	router.Unsubscribe("channel:7", "X")
	router.Unsubscribe("channel:7", "X")

	assert.Equal(t, 0, router.Publish("channel:7", domainTopic.Event{Name: "message-created"}))
	assert.Empty(t, d.events("X"))
	assert.Equal(t, 0, router.Stats().Topics, "empty topics are freed")
}

func TestRouter_UnsubscribeAll(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("channel:1", "X")
	router.Subscribe("channel:2", "X")
	router.Subscribe("user:A", "X")
	router.Subscribe("channel:1", "Y")
	assert.Equal(t, []string{"channel:1", "channel:2", "user:A"}, router.TopicsOf("X"))

	router.UnsubscribeAll("X")

	for _, topic := range []string{"channel:1", "channel:2", "user:A"} {
		router.Publish(topic, domainTopic.Event{Name: "ping"})
	}
	assert.Empty(t, d.events("X"))
	assert.Len(t, d.events("Y"), 1)
	assert.Empty(t, router.TopicsOf("X"))

	stats := router.Stats()
	assert.Equal(t, 1, stats.Topics)
	assert.Equal(t, 1, stats.Connections)
}

func TestRouter_OrderingAcrossSubscribers(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("channel:42", "C1")
	router.Subscribe("channel:42", "C2")

	router.Publish("channel:42", domainTopic.Event{Name: "message-created", Payload: "M1"})
	router.Publish("channel:42", domainTopic.Event{Name: "message-created", Payload: "M2"})

	for _, conn := range []string{"C1", "C2"} {
		events := d.events(conn)
		require.Len(t, events, 2)
		assert.Equal(t, "M1", events[0].Payload)
		assert.Equal(t, "M2", events[1].Payload)
	}
}

func TestRouter_ExceptConnection(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("channel:1", "sender")
	router.Subscribe("channel:1", "peer")

	n := router.Publish("channel:1", domainTopic.Event{Name: "user-typing"}, domainTopic.ExceptConnection("sender"))
	assert.Equal(t, 1, n)
	assert.Empty(t, d.events("sender"))
	assert.Len(t, d.events("peer"), 1)
}

func TestRouter_DeliveryFailureIsIsolated(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("channel:1", "broken")
	router.Subscribe("channel:1", "healthy")
	d.fail("broken")

	n := router.Publish("channel:1", domainTopic.Event{Name: "message-created"})
	assert.Equal(t, 1, n)
	assert.Len(t, d.events("healthy"), 1)

	stats := router.Stats()
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Delivered)
}

func TestRouter_PublishManyDeduplicates(t *testing.T) {
	router, d := newTestRouter()

	router.Subscribe("user:A", "X")
	router.Subscribe("channel:1", "X")
	router.Subscribe("channel:1", "Y")

	n := router.PublishMany([]string{"user:A", "channel:1"}, domainTopic.Event{Name: "user-status-change"})
	assert.Equal(t, 2, n)
	assert.Len(t, d.events("X"), 1)
	assert.Len(t, d.events("Y"), 1)
}

func TestRouter_PublishToUnknownTopic(t *testing.T) {
	router, _ := newTestRouter()
	assert.Equal(t, 0, router.Publish("channel:none", domainTopic.Event{Name: "noop"}))
	assert.Empty(t, router.Subscribers("channel:none"))
}

func TestRouter_IgnoresEmptyIdentifiers(t *testing.T) {
	router, _ := newTestRouter()

	router.Subscribe("", "X")
	router.Subscribe("channel:1", "")

	assert.Equal(t, 0, router.Stats().Topics)
}

func TestRouter_ConcurrentSubscribePublish(t *testing.T) {
	router, d := newTestRouter()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("conn-%d", i)
			router.Subscribe("channel:hot", conn)
			for j := 0; j < 50; j++ {
				router.Publish("channel:hot", domainTopic.Event{Name: "tick"})
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, router.Subscribers("channel:hot"), 10)

	for i := 0; i < 10; i++ {
		router.UnsubscribeAll(fmt.Sprintf("conn-%d", i))
	}
	assert.Equal(t, 0, router.Stats().Topics)
	assert.NotEmpty(t, d.events("conn-0"))
}
