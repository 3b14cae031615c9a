package presence

import "time"

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Entry is a copy of one user's liveness record. Channels is owned by the caller.
type Entry struct {
	UserID     string    `json:"userId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	Channels   []string  `json:"channels"`
}

// HeartbeatResult reports what a heartbeat changed.
type HeartbeatResult struct {
	Created      bool
	ChannelAdded bool
	// Expired lists channels of a stale entry the heartbeat replaced that the
	// new entry does not carry. Nobody has told them the user went offline.
	Expired []string
}

// Changed is true when peers should hear about the heartbeat.
func (r HeartbeatResult) Changed() bool {
	return r.Created || r.ChannelAdded
}

// LeaveResult reports what a leave removed.
type LeaveResult struct {
	Found   bool
	Removed bool     // entry deleted
	Left    []string // channels the user is no longer interested in
	Expired bool     // the entry was already stale and the sweep had not reached it
}

type UserPresence struct {
	UserID     string     `json:"userId"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	LastSeen   string     `json:"lastSeen,omitempty"`
	Channels   []string   `json:"channels"`
}

type RegistryStats struct {
	Entries int   `json:"entries"`
	Online  int   `json:"online"`
	Shards  int   `json:"shards"`
	Expired int64 `json:"expiredTotal"`
}

type IPresenceRegistry interface {
	Heartbeat(userID, channelID string) HeartbeatResult
	Leave(userID, channelID string) LeaveResult
	IsOnline(userID string) bool
	OnlineUsersIn(channelID string) []string
	AllOnlineUsers() []string
	ChannelsOf(userID string) []string
	Snapshot(userID string) (Entry, bool)
	Sweep() []Entry
	Timeout() time.Duration
	Stats() RegistryStats
}
