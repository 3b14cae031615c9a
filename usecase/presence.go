package usecase

import (
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	"github.com/sirupsen/logrus"
)

type presenceRecord struct {
	lastSeenAt time.Time
	channels   map[string]struct{}
}

type presenceShard struct {
	mu      sync.RWMutex
	entries map[string]*presenceRecord
}

type presenceRegistry struct {
	shards  []*presenceShard
	timeout time.Duration
	now     func() time.Time
	expired int64
}

type PresenceOption func(*presenceRegistry)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) PresenceOption {
	return func(r *presenceRegistry) {
		r.now = now
	}
}

func NewPresenceRegistry(timeout time.Duration, shards int, opts ...PresenceOption) domainPresence.IPresenceRegistry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if shards <= 0 {
		shards = 32
	}

	r := &presenceRegistry{
		shards:  make([]*presenceShard, shards),
		timeout: timeout,
		now:     time.Now,
	}
	for i := range r.shards {
		r.shards[i] = &presenceShard{entries: make(map[string]*presenceRecord)}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *presenceRegistry) shardFor(userID string) *presenceShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// alive is the single liveness predicate shared by queries and the sweep.
func (r *presenceRegistry) alive(rec *presenceRecord, now time.Time) bool {
	return now.Sub(rec.lastSeenAt) <= r.timeout
}

func (r *presenceRegistry) Heartbeat(userID, channelID string) domainPresence.HeartbeatResult {
	userID = strings.TrimSpace(userID)
	channelID = strings.TrimSpace(channelID)
	if userID == "" {
		return domainPresence.HeartbeatResult{}
	}

	var res domainPresence.HeartbeatResult
	now := r.now()
	shard := r.shardFor(userID)

	shard.mu.Lock()
	rec, ok := shard.entries[userID]
	if ok && !r.alive(rec, now) {
		// the sweep will never see this record, so report what it held
		for c := range rec.channels {
			if c != channelID {
				res.Expired = append(res.Expired, c)
			}
		}
		sort.Strings(res.Expired)
		atomic.AddInt64(&r.expired, 1)
		ok = false
	}
	if !ok {
		rec = &presenceRecord{channels: make(map[string]struct{})}
		shard.entries[userID] = rec
		res.Created = true
	}
	rec.lastSeenAt = now
	if channelID != "" {
		if _, exists := rec.channels[channelID]; !exists {
			rec.channels[channelID] = struct{}{}
			res.ChannelAdded = true
		}
	}
	shard.mu.Unlock()

	if res.Created {
		logrus.Debugf("[PRESENCE] %s is now online", userID)
	}
	return res
}

func (r *presenceRegistry) Leave(userID, channelID string) domainPresence.LeaveResult {
	userID = strings.TrimSpace(userID)
	channelID = strings.TrimSpace(channelID)
	if userID == "" {
		return domainPresence.LeaveResult{}
	}

	var res domainPresence.LeaveResult
	shard := r.shardFor(userID)

	shard.mu.Lock()
	rec, ok := shard.entries[userID]
	switch {
	case !ok:
	case !r.alive(rec, r.now()):
		// stale but unswept: the whole entry goes and its channels still need the offline
		res.Removed = true
		res.Expired = true
		res.Left = channelList(rec.channels)
		atomic.AddInt64(&r.expired, 1)
		delete(shard.entries, userID)
	case channelID == "":
		res.Found = true
		res.Removed = true
		res.Left = channelList(rec.channels)
		delete(shard.entries, userID)
	default:
		res.Found = true
		if _, exists := rec.channels[channelID]; exists {
			delete(rec.channels, channelID)
			res.Left = []string{channelID}
		}
		if len(rec.channels) == 0 {
			res.Removed = true
			delete(shard.entries, userID)
		}
	}
	shard.mu.Unlock()

	if res.Removed {
		logrus.Debugf("[PRESENCE] %s left, entry removed", userID)
	}
	return res
}

func (r *presenceRegistry) IsOnline(userID string) bool {
	shard := r.shardFor(userID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	rec, ok := shard.entries[userID]
	return ok && r.alive(rec, r.now())
}

func (r *presenceRegistry) OnlineUsersIn(channelID string) []string {
	return r.collect(func(rec *presenceRecord) bool {
		_, ok := rec.channels[channelID]
		return ok
	})
}

func (r *presenceRegistry) AllOnlineUsers() []string {
	return r.collect(func(*presenceRecord) bool { return true })
}

func (r *presenceRegistry) collect(match func(*presenceRecord) bool) []string {
	now := r.now()
	users := make([]string, 0)
	for _, shard := range r.shards {
		shard.mu.RLock()
		for userID, rec := range shard.entries {
			if r.alive(rec, now) && match(rec) {
				users = append(users, userID)
			}
		}
		shard.mu.RUnlock()
	}
	sort.Strings(users)
	return users
}

func (r *presenceRegistry) ChannelsOf(userID string) []string {
	entry, ok := r.Snapshot(userID)
	if !ok {
		return []string{}
	}
	return entry.Channels
}

func (r *presenceRegistry) Snapshot(userID string) (domainPresence.Entry, bool) {
	shard := r.shardFor(userID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	rec, ok := shard.entries[userID]
	if !ok || !r.alive(rec, r.now()) {
		return domainPresence.Entry{}, false
	}
	return domainPresence.Entry{
		UserID:     userID,
		LastSeenAt: rec.lastSeenAt,
		Channels:   channelList(rec.channels),
	}, true
}

// Sweep drops every record past the timeout, one shard at a time.
func (r *presenceRegistry) Sweep() []domainPresence.Entry {
	now := r.now()
	var expired []domainPresence.Entry

	for _, shard := range r.shards {
		shard.mu.Lock()
		for userID, rec := range shard.entries {
			if r.alive(rec, now) {
				continue
			}
			expired = append(expired, domainPresence.Entry{
				UserID:     userID,
				LastSeenAt: rec.lastSeenAt,
				Channels:   channelList(rec.channels),
			})
			delete(shard.entries, userID)
		}
		shard.mu.Unlock()
	}

	if len(expired) > 0 {
		atomic.AddInt64(&r.expired, int64(len(expired)))
		logrus.Debugf("[PRESENCE] Sweep expired %d entries", len(expired))
	}
	return expired
}

func (r *presenceRegistry) Timeout() time.Duration {
	return r.timeout
}

func (r *presenceRegistry) Stats() domainPresence.RegistryStats {
	now := r.now()
	stats := domainPresence.RegistryStats{
		Shards:  len(r.shards),
		Expired: atomic.LoadInt64(&r.expired),
	}
	for _, shard := range r.shards {
		shard.mu.RLock()
		stats.Entries += len(shard.entries)
		for _, rec := range shard.entries {
			if r.alive(rec, now) {
				stats.Online++
			}
		}
		shard.mu.RUnlock()
	}
	return stats
}

func channelList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
