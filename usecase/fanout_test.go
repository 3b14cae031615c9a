package usecase

import (
	"context"
	"testing"
	"time"

	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	pkgError "github.com/AzielCF/az-chat/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fanoutFixture struct {
	clock    *fakeClock
	registry domainPresence.IPresenceRegistry
	router   domainTopic.ITopicRouter
	out      *recordingDeliverer
	service  domainFanout.IFanoutUsecase
}

func newFanoutFixture(excludeTypingSender bool) *fanoutFixture {
	f := &fanoutFixture{clock: newFakeClock(), out: newRecordingDeliverer()}
	f.registry = newTestRegistry(f.clock)
	f.router = NewTopicRouter(f.out, 4)
	f.service = NewFanoutService(f.router, f.registry, excludeTypingSender)
	return f
}

func TestFanout_MessageEventsReachChannelSubscribers(t *testing.T) {
	f := newFanoutFixture(true)
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "author-conn")
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "peer-conn")
	f.router.Subscribe(domainTopic.ChannelTopic("c2"), "other-conn")

	msg := domainFanout.Message{ID: "m1", Content: "hello", Author: domainFanout.Author{ID: "u1", Username: "ana"}}

	assert.Equal(t, 2, f.service.NotifyMessageCreated("c1", msg), "the sender is not excluded for messages")
	assert.Equal(t, 2, f.service.NotifyMessageEdited("c1", msg))
	assert.Equal(t, 2, f.service.NotifyMessageDeleted("c1", msg))

	assert.Equal(t, []string{
		domainFanout.EventMessageCreated,
		domainFanout.EventMessageEdited,
		domainFanout.EventMessageDeleted,
	}, f.out.names("peer-conn"))
	assert.Empty(t, f.out.events("other-conn"))

	events := f.out.events("author-conn")
	created := events[0].Payload.(domainFanout.Message)
	assert.Equal(t, "c1", created.ChannelID)
	assert.True(t, events[1].Payload.(domainFanout.Message).IsEdited)
	assert.True(t, events[2].Payload.(domainFanout.Message).IsDeleted)
}

func TestFanout_NotifyMessageValidates(t *testing.T) {
	f := newFanoutFixture(true)
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "X")

	_, err := f.service.NotifyMessage(context.Background(), domainFanout.MessageEventRequest{ChannelID: "c1", Type: "bogus"})
	var vErr pkgError.ValidationError
	require.ErrorAs(t, err, &vErr)

	n, err := f.service.NotifyMessage(context.Background(), domainFanout.MessageEventRequest{
		ChannelID: "c1",
		Type:      domainFanout.MessageEdited,
		Message:   domainFanout.Message{ID: "m1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{domainFanout.EventMessageEdited}, f.out.names("X"))
}

func TestFanout_TypingExcludesSender(t *testing.T) {
	f := newFanoutFixture(true)
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "sender")
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "peer")

	assert.Equal(t, 1, f.service.NotifyTypingStart("c1", "u1", "ana", "sender"))
	assert.Equal(t, 1, f.service.NotifyTypingStop("c1", "u1", "sender"))

	assert.Empty(t, f.out.events("sender"))
	events := f.out.events("peer")
	require.Len(t, events, 2)
	assert.Equal(t, domainFanout.TypingPayload{UserID: "u1", Username: "ana", ChannelID: "c1"}, events[0].Payload)
	assert.Equal(t, domainFanout.StopTypingPayload{UserID: "u1", ChannelID: "c1"}, events[1].Payload)
}

func TestFanout_TypingSenderExclusionCanBeDisabled(t *testing.T) {
	f := newFanoutFixture(false)
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "sender")

	assert.Equal(t, 1, f.service.NotifyTypingStart("c1", "u1", "ana", "sender"))
	assert.Equal(t, []string{domainFanout.EventUserTyping}, f.out.names("sender"))
}

func TestFanout_PresenceChangedCoversUserAndChannels(t *testing.T) {
	f := newFanoutFixture(true)
	f.registry.Heartbeat("u1", "c1")
	f.registry.Heartbeat("u1", "c2")

	f.router.Subscribe(domainTopic.UserTopic("u1"), "self")
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "self")
	f.router.Subscribe(domainTopic.ChannelTopic("c2"), "peer")
	f.router.Subscribe(domainTopic.ChannelTopic("c3"), "stranger")

	assert.Equal(t, 2, f.service.NotifyPresenceChanged("u1", domainPresence.StatusOnline))
	assert.Len(t, f.out.events("self"), 1, "subscribers of several affected topics hear it once")
	assert.Len(t, f.out.events("peer"), 1)
	assert.Empty(t, f.out.events("stranger"))

	payload := f.out.events("peer")[0].Payload.(domainFanout.StatusChangePayload)
	assert.Equal(t, domainPresence.StatusOnline, payload.Status)
}

func TestFanout_SetPresenceOnlineBroadcastsOnChange(t *testing.T) {
	f := newFanoutFixture(true)
	ctx := context.Background()
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "peer")

	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "u1", ChannelID: "c1", Status: domainPresence.StatusOnline}))
	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "u1", ChannelID: "c1", Status: domainPresence.StatusOnline}))

	assert.Len(t, f.out.events("peer"), 1, "a plain refresh is silent")
	assert.True(t, f.registry.IsOnline("u1"))
}

func TestFanout_SetPresenceOffline(t *testing.T) {
	f := newFanoutFixture(true)
	ctx := context.Background()
	f.registry.Heartbeat("u1", "c1")
	f.registry.Heartbeat("u1", "c2")
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "peer")

	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "u1", ChannelID: "c1", Status: domainPresence.StatusOffline}))
	assert.True(t, f.registry.IsOnline("u1"))
	assert.Empty(t, f.out.events("peer"), "the user is still online elsewhere")

	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "u1", Status: domainPresence.StatusOffline}))
	assert.False(t, f.registry.IsOnline("u1"))
}

func TestFanout_SetPresenceOfflineNotifiesLeftChannels(t *testing.T) {
	f := newFanoutFixture(true)
	f.registry.Heartbeat("u1", "c1")
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "peer")

	require.NoError(t, f.service.SetPresence(context.Background(), domainFanout.SetPresenceRequest{UserID: "u1", ChannelID: "c1", Status: domainPresence.StatusOffline}))

	events := f.out.events("peer")
	require.Len(t, events, 1)
	assert.Equal(t, domainPresence.StatusOffline, events[0].Payload.(domainFanout.StatusChangePayload).Status)
}

func TestFanout_SetPresenceRejectsBadStatus(t *testing.T) {
	f := newFanoutFixture(true)
	err := f.service.SetPresence(context.Background(), domainFanout.SetPresenceRequest{UserID: "u1", Status: "busy"})
	assert.Error(t, err)
	assert.Empty(t, f.registry.AllOnlineUsers())
}

func TestFanout_GetOnlineUsers(t *testing.T) {
	f := newFanoutFixture(true)
	ctx := context.Background()
	f.registry.Heartbeat("u1", "c1")
	f.registry.Heartbeat("u2", "c2")

	res, err := f.service.GetOnlineUsers(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, res.OnlineUsers)

	res, err = f.service.GetOnlineUsers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, res.OnlineUsers)
}

func TestFanout_GetUserPresence(t *testing.T) {
	f := newFanoutFixture(true)
	ctx := context.Background()

	res, err := f.service.GetUserPresence(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Online)
	assert.Nil(t, res.LastSeenAt)

	f.registry.Heartbeat("u1", "c1")
	res, err = f.service.GetUserPresence(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, res.Online)
	assert.Equal(t, []string{"c1"}, res.Channels)
	assert.NotEmpty(t, res.LastSeen)

	_, err = f.service.GetUserPresence(ctx, "")
	assert.Error(t, err)
}

func TestFanout_HandleExpiredBroadcastsOffline(t *testing.T) {
	f := newFanoutFixture(true)
	f.registry.Heartbeat("u1", "c1")
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "peer")

	f.clock.Advance(31 * time.Second)
	sweeper := NewPresenceSweeper(f.registry, time.Hour, f.service.HandleExpired)
	assert.Equal(t, 1, sweeper.RunOnce())

	events := f.out.events("peer")
	require.Len(t, events, 1)
	assert.Equal(t, domainFanout.StatusChangePayload{UserID: "u1", Status: domainPresence.StatusOffline}, events[0].Payload)
}

func TestFanout_OfflineAfterExpiryStillReachesChannels(t *testing.T) {
	f := newFanoutFixture(true)
	ctx := context.Background()
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "watcher")

	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "A", ChannelID: "c1", Status: domainPresence.StatusOnline}))
	require.Len(t, f.out.events("watcher"), 1)

	f.clock.Advance(31 * time.Second)
	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "A", Status: domainPresence.StatusOffline}))
	f.service.HandleExpired(f.registry.Sweep())

	events := f.out.events("watcher")
	require.Len(t, events, 2)
	assert.Equal(t, domainFanout.EventUserStatusChange, events[1].Name)
	assert.Equal(t, domainPresence.StatusOffline, events[1].Payload.(domainFanout.StatusChangePayload).Status)
}

func TestFanout_ReturnOnOtherChannelAfterExpiry(t *testing.T) {
	f := newFanoutFixture(true)
	ctx := context.Background()
	f.router.Subscribe(domainTopic.ChannelTopic("c1"), "c1-watcher")
	f.router.Subscribe(domainTopic.ChannelTopic("c2"), "c2-watcher")

	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "A", ChannelID: "c1", Status: domainPresence.StatusOnline}))
	f.clock.Advance(31 * time.Second)
	require.NoError(t, f.service.SetPresence(ctx, domainFanout.SetPresenceRequest{UserID: "A", ChannelID: "c2", Status: domainPresence.StatusOnline}))
	f.service.HandleExpired(f.registry.Sweep())

	c1 := f.out.events("c1-watcher")
	require.Len(t, c1, 2)
	assert.Equal(t, domainPresence.StatusOffline, c1[1].Payload.(domainFanout.StatusChangePayload).Status)

	c2 := f.out.events("c2-watcher")
	require.Len(t, c2, 1)
	assert.Equal(t, domainPresence.StatusOnline, c2[0].Payload.(domainFanout.StatusChangePayload).Status)
	assert.Equal(t, []string{"A"}, f.registry.OnlineUsersIn("c2"))
	assert.Empty(t, f.registry.OnlineUsersIn("c1"))
}
