package usecase

import (
	"context"
	"strings"

	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/AzielCF/az-chat/validations"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type serviceFanout struct {
	router              domainTopic.ITopicRouter
	registry            domainPresence.IPresenceRegistry
	excludeTypingSender bool
}

func NewFanoutService(router domainTopic.ITopicRouter, registry domainPresence.IPresenceRegistry, excludeTypingSender bool) domainFanout.IFanoutUsecase {
	return &serviceFanout{
		router:              router,
		registry:            registry,
		excludeTypingSender: excludeTypingSender,
	}
}

func (service *serviceFanout) NotifyMessageCreated(channelID string, msg domainFanout.Message) int {
	return service.publishMessage(domainFanout.EventMessageCreated, channelID, msg)
}

func (service *serviceFanout) NotifyMessageEdited(channelID string, msg domainFanout.Message) int {
	msg.IsEdited = true
	return service.publishMessage(domainFanout.EventMessageEdited, channelID, msg)
}

func (service *serviceFanout) NotifyMessageDeleted(channelID string, msg domainFanout.Message) int {
	msg.IsDeleted = true
	return service.publishMessage(domainFanout.EventMessageDeleted, channelID, msg)
}

func (service *serviceFanout) publishMessage(name, channelID string, msg domainFanout.Message) int {
	if msg.ChannelID == "" {
		msg.ChannelID = channelID
	}
	n := service.router.Publish(domainTopic.ChannelTopic(channelID), domainTopic.Event{Name: name, Payload: msg})
	logrus.Debugf("[FANOUT] %s %s on channel %s reached %d connections", name, msg.ID, channelID, n)
	return n
}

func (service *serviceFanout) NotifyMessage(ctx context.Context, request domainFanout.MessageEventRequest) (int, error) {
	if err := validations.ValidateMessageEvent(ctx, request); err != nil {
		return 0, err
	}

	switch request.Type {
	case domainFanout.MessageEdited:
		return service.NotifyMessageEdited(request.ChannelID, request.Message), nil
	case domainFanout.MessageDeleted:
		return service.NotifyMessageDeleted(request.ChannelID, request.Message), nil
	default:
		return service.NotifyMessageCreated(request.ChannelID, request.Message), nil
	}
}

func (service *serviceFanout) typingOptions(originConnectionID string) []domainTopic.PublishOption {
	if service.excludeTypingSender && originConnectionID != "" {
		return []domainTopic.PublishOption{domainTopic.ExceptConnection(originConnectionID)}
	}
	return nil
}

func (service *serviceFanout) NotifyTypingStart(channelID, userID, username, originConnectionID string) int {
	evt := domainTopic.Event{
		Name: domainFanout.EventUserTyping,
		Payload: domainFanout.TypingPayload{
			UserID:    userID,
			Username:  username,
			ChannelID: channelID,
		},
	}
	return service.router.Publish(domainTopic.ChannelTopic(channelID), evt, service.typingOptions(originConnectionID)...)
}

func (service *serviceFanout) NotifyTypingStop(channelID, userID, originConnectionID string) int {
	evt := domainTopic.Event{
		Name: domainFanout.EventUserStopTyping,
		Payload: domainFanout.StopTypingPayload{
			UserID:    userID,
			ChannelID: channelID,
		},
	}
	return service.router.Publish(domainTopic.ChannelTopic(channelID), evt, service.typingOptions(originConnectionID)...)
}

func (service *serviceFanout) NotifyPresenceChanged(userID string, status domainPresence.Status) int {
	return service.broadcastStatus(userID, status, service.registry.ChannelsOf(userID))
}

// broadcastStatus reaches the user's own topic and every channel topic in
// channels, each connection at most once.
func (service *serviceFanout) broadcastStatus(userID string, status domainPresence.Status, channels []string) int {
	topics := make([]string, 0, len(channels)+1)
	topics = append(topics, domainTopic.UserTopic(userID))
	for _, c := range channels {
		topics = append(topics, domainTopic.ChannelTopic(c))
	}
	return service.publishStatus(userID, status, topics)
}

func (service *serviceFanout) publishStatus(userID string, status domainPresence.Status, topics []string) int {
	evt := domainTopic.Event{
		Name:    domainFanout.EventUserStatusChange,
		Payload: domainFanout.StatusChangePayload{UserID: userID, Status: status},
	}
	n := service.router.PublishMany(topics, evt)
	logrus.Debugf("[FANOUT] %s is %s, notified %d connections", userID, status, n)
	return n
}

func (service *serviceFanout) SetPresence(ctx context.Context, request domainFanout.SetPresenceRequest) error {
	request.ChannelID = strings.TrimSpace(request.ChannelID)
	if err := validations.ValidateSetPresence(ctx, request); err != nil {
		return err
	}

	if request.Status == domainPresence.StatusOnline {
		res := service.registry.Heartbeat(request.UserID, request.ChannelID)
		if len(res.Expired) > 0 {
			// the user is back, but watchers of the channels it dropped still see it online
			topics := make([]string, 0, len(res.Expired))
			for _, c := range res.Expired {
				topics = append(topics, domainTopic.ChannelTopic(c))
			}
			service.publishStatus(request.UserID, domainPresence.StatusOffline, topics)
		}
		if res.Changed() {
			service.NotifyPresenceChanged(request.UserID, domainPresence.StatusOnline)
		}
		return nil
	}

	res := service.registry.Leave(request.UserID, request.ChannelID)
	if res.Removed {
		service.broadcastStatus(request.UserID, domainPresence.StatusOffline, res.Left)
	}
	return nil
}

func (service *serviceFanout) GetOnlineUsers(ctx context.Context, channelID string) (domainFanout.OnlineUsersResponse, error) {
	channelID = strings.TrimSpace(channelID)
	if err := validations.ValidateChannelQuery(ctx, channelID); err != nil {
		return domainFanout.OnlineUsersResponse{}, err
	}

	if channelID == "" {
		return domainFanout.OnlineUsersResponse{OnlineUsers: service.registry.AllOnlineUsers()}, nil
	}
	return domainFanout.OnlineUsersResponse{
		ChannelID:   channelID,
		OnlineUsers: service.registry.OnlineUsersIn(channelID),
	}, nil
}

func (service *serviceFanout) GetUserPresence(ctx context.Context, userID string) (domainPresence.UserPresence, error) {
	if err := validations.ValidateUserID(ctx, userID); err != nil {
		return domainPresence.UserPresence{}, err
	}

	entry, ok := service.registry.Snapshot(userID)
	if !ok {
		return domainPresence.UserPresence{UserID: userID, Channels: []string{}}, nil
	}

	lastSeen := entry.LastSeenAt
	return domainPresence.UserPresence{
		UserID:     userID,
		Online:     true,
		LastSeenAt: &lastSeen,
		LastSeen:   humanize.Time(lastSeen),
		Channels:   entry.Channels,
	}, nil
}

func (service *serviceFanout) HandleExpired(entries []domainPresence.Entry) {
	for _, entry := range entries {
		service.broadcastStatus(entry.UserID, domainPresence.StatusOffline, entry.Channels)
	}
	logrus.Infof("[FANOUT] %d users went offline after missing heartbeats", len(entries))
}
