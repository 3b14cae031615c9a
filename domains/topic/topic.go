package topic

import "strings"

const (
	channelPrefix = "channel:"
	userPrefix    = "user:"
)

// Event is the frame pushed to a subscriber.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

// Deliverer pushes one event to one live connection. It must not block on
// a slow peer; the router calls it with no lock held.
type Deliverer interface {
	Deliver(connectionID string, evt Event) error
}

func ChannelTopic(channelID string) string {
	return channelPrefix + channelID
}

func UserTopic(userID string) string {
	return userPrefix + userID
}

// ChannelOf returns the channel id of a channel topic.
func ChannelOf(t string) (string, bool) {
	if !strings.HasPrefix(t, channelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(t, channelPrefix), true
}

type PublishOptions struct {
	ExceptConnection string
}

type PublishOption func(*PublishOptions)

// ExceptConnection skips the originating connection.
func ExceptConnection(connectionID string) PublishOption {
	return func(o *PublishOptions) {
		o.ExceptConnection = connectionID
	}
}

type RouterStats struct {
	Topics      int   `json:"topics"`
	Connections int   `json:"connections"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Failed      int64 `json:"failed"`
}

type ITopicRouter interface {
	Subscribe(topic, connectionID string)
	Unsubscribe(topic, connectionID string)
	UnsubscribeAll(connectionID string)
	Publish(topic string, evt Event, opts ...PublishOption) int
	PublishMany(topics []string, evt Event, opts ...PublishOption) int
	Subscribers(topic string) []string
	TopicsOf(connectionID string) []string
	Stats() RouterStats
}
