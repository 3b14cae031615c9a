package usecase

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/sirupsen/logrus"
)

type topicShard struct {
	mu     sync.RWMutex
	topics map[string]map[string]struct{}
}

type topicRouter struct {
	shards    []*topicShard
	deliverer domainTopic.Deliverer

	// reverse index used by UnsubscribeAll
	connMu     sync.Mutex
	connTopics map[string]map[string]struct{}

	published int64
	delivered int64
	failed    int64
}

func NewTopicRouter(deliverer domainTopic.Deliverer, shards int) domainTopic.ITopicRouter {
	if shards <= 0 {
		shards = 32
	}
	r := &topicRouter{
		shards:     make([]*topicShard, shards),
		deliverer:  deliverer,
		connTopics: make(map[string]map[string]struct{}),
	}
	for i := range r.shards {
		r.shards[i] = &topicShard{topics: make(map[string]map[string]struct{})}
	}
	return r
}

func (r *topicRouter) shardFor(topic string) *topicShard {
	h := fnv.New32a()
	h.Write([]byte(topic))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

func (r *topicRouter) Subscribe(topic, connectionID string) {
	if topic == "" || connectionID == "" {
		return
	}

	shard := r.shardFor(topic)
	shard.mu.Lock()
	subs, ok := shard.topics[topic]
	if !ok {
		subs = make(map[string]struct{})
		shard.topics[topic] = subs
	}
	subs[connectionID] = struct{}{}
	shard.mu.Unlock()

	r.connMu.Lock()
	joined, ok := r.connTopics[connectionID]
	if !ok {
		joined = make(map[string]struct{})
		r.connTopics[connectionID] = joined
	}
	joined[topic] = struct{}{}
	r.connMu.Unlock()
}

func (r *topicRouter) Unsubscribe(topic, connectionID string) {
	r.removeFromTopic(topic, connectionID)

	r.connMu.Lock()
	if joined, ok := r.connTopics[connectionID]; ok {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(r.connTopics, connectionID)
		}
	}
	r.connMu.Unlock()
}

func (r *topicRouter) removeFromTopic(topic, connectionID string) {
	shard := r.shardFor(topic)
	shard.mu.Lock()
	if subs, ok := shard.topics[topic]; ok {
		delete(subs, connectionID)
		if len(subs) == 0 {
			delete(shard.topics, topic)
		}
	}
	shard.mu.Unlock()
}

func (r *topicRouter) UnsubscribeAll(connectionID string) {
	r.connMu.Lock()
	joined := r.connTopics[connectionID]
	delete(r.connTopics, connectionID)
	r.connMu.Unlock()

	for topic := range joined {
		r.removeFromTopic(topic, connectionID)
	}
	if len(joined) > 0 {
		logrus.Debugf("[ROUTER] Connection %s removed from %d topics", connectionID, len(joined))
	}
}

func (r *topicRouter) Publish(topic string, evt domainTopic.Event, opts ...domainTopic.PublishOption) int {
	return r.PublishMany([]string{topic}, evt, opts...)
}

// PublishMany delivers evt once to every connection subscribed to at least
// one of topics. Subscriber sets are copied under the shard lock and the
// deliveries run with no lock held.
func (r *topicRouter) PublishMany(topics []string, evt domainTopic.Event, opts ...domainTopic.PublishOption) int {
	var o domainTopic.PublishOptions
	for _, opt := range opts {
		opt(&o)
	}

	targets := make(map[string]struct{})
	for _, topic := range topics {
		shard := r.shardFor(topic)
		shard.mu.RLock()
		for connID := range shard.topics[topic] {
			if connID != o.ExceptConnection {
				targets[connID] = struct{}{}
			}
		}
		shard.mu.RUnlock()
	}
	atomic.AddInt64(&r.published, 1)

	delivered := 0
	for connID := range targets {
		if err := r.deliverer.Deliver(connID, evt); err != nil {
			atomic.AddInt64(&r.failed, 1)
			logrus.Debugf("[ROUTER] Delivery of %s to %s failed: %v", evt.Name, connID, err)
			continue
		}
		delivered++
	}
	atomic.AddInt64(&r.delivered, int64(delivered))
	return delivered
}

func (r *topicRouter) Subscribers(topic string) []string {
	shard := r.shardFor(topic)
	shard.mu.RLock()
	out := make([]string, 0, len(shard.topics[topic]))
	for connID := range shard.topics[topic] {
		out = append(out, connID)
	}
	shard.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *topicRouter) TopicsOf(connectionID string) []string {
	r.connMu.Lock()
	out := make([]string, 0, len(r.connTopics[connectionID]))
	for topic := range r.connTopics[connectionID] {
		out = append(out, topic)
	}
	r.connMu.Unlock()
	sort.Strings(out)
	return out
}

func (r *topicRouter) Stats() domainTopic.RouterStats {
	stats := domainTopic.RouterStats{
		Published: atomic.LoadInt64(&r.published),
		Delivered: atomic.LoadInt64(&r.delivered),
		Failed:    atomic.LoadInt64(&r.failed),
	}
	for _, shard := range r.shards {
		shard.mu.RLock()
		stats.Topics += len(shard.topics)
		shard.mu.RUnlock()
	}
	r.connMu.Lock()
	stats.Connections = len(r.connTopics)
	r.connMu.Unlock()
	return stats
}
