package session

import (
	"encoding/json"
	"errors"
)

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client intents.
const (
	IntentJoinChannel  = "join-channel"
	IntentLeaveChannel = "leave-channel"
	IntentUserOnline   = "user-online"
	IntentUserOffline  = "user-offline"
	IntentTypingStart  = "typing-start"
	IntentTypingStop   = "typing-stop"
)

var (
	ErrSessionNotOpen   = errors.New("session is not open")
	ErrUnknownIntent    = errors.New("unknown intent")
	ErrIdentityMismatch = errors.New("intent user does not match the connection identity")
)

// Frame is the wire shape of a client intent: {"event": "...", "data": ...}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Intent is a decoded client frame. Unused fields stay empty.
type Intent struct {
	Kind      string `json:"-"`
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

type ISession interface {
	ID() string
	UserID() string
	State() State
	Open() error
	HandleIntent(intent Intent) error
	Close()
}
