package fanout

import (
	"context"
	"time"

	domainPresence "github.com/AzielCF/az-chat/domains/presence"
)

const (
	EventMessageCreated   = "message-created"
	EventMessageEdited    = "message-edited"
	EventMessageDeleted   = "message-deleted"
	EventUserTyping       = "user-typing"
	EventUserStopTyping   = "user-stop-typing"
	EventUserStatusChange = "user-status-change"
)

type MessageEventType string

const (
	MessageCreated MessageEventType = "created"
	MessageEdited  MessageEventType = "edited"
	MessageDeleted MessageEventType = "deleted"
)

type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message mirrors what the CRUD layer stored; the core never persists it.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	IsEdited  bool      `json:"isEdited"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TypingPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	ChannelID string `json:"channelId"`
}

type StopTypingPayload struct {
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId"`
}

type StatusChangePayload struct {
	UserID string                `json:"userId"`
	Status domainPresence.Status `json:"status"`
}

type SetPresenceRequest struct {
	UserID    string                `json:"-"`
	ChannelID string                `json:"channelId" form:"channelId"`
	Status    domainPresence.Status `json:"status" form:"status"`
}

type OnlineUsersResponse struct {
	ChannelID   string   `json:"channelId,omitempty"`
	OnlineUsers []string `json:"onlineUsers"`
}

type MessageEventRequest struct {
	ChannelID string           `json:"-"`
	Type      MessageEventType `json:"type"`
	Message   Message          `json:"message"`
}

type IFanoutUsecase interface {
	NotifyMessageCreated(channelID string, msg Message) int
	NotifyMessageEdited(channelID string, msg Message) int
	NotifyMessageDeleted(channelID string, msg Message) int
	NotifyMessage(ctx context.Context, request MessageEventRequest) (int, error)
	NotifyTypingStart(channelID, userID, username, originConnectionID string) int
	NotifyTypingStop(channelID, userID, originConnectionID string) int
	NotifyPresenceChanged(userID string, status domainPresence.Status) int

	SetPresence(ctx context.Context, request SetPresenceRequest) error
	GetOnlineUsers(ctx context.Context, channelID string) (OnlineUsersResponse, error)
	GetUserPresence(ctx context.Context, userID string) (domainPresence.UserPresence, error)
	HandleExpired(entries []domainPresence.Entry)
}
