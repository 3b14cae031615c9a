package msgworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// MessageJob is one CRUD notification waiting to be fanned out. Jobs that
// share a ChannelID always land on the same worker, so they run in the
// order they were dispatched.
type MessageJob struct {
	ChannelID string
	Kind      string
	Handler   func(ctx context.Context) error
}

type PoolStats struct {
	NumWorkers      int            `json:"numWorkers"`
	QueueSize       int            `json:"queueSize"`
	ActiveWorkers   int            `json:"activeWorkers"`
	Pending         int            `json:"pending"`
	TotalDispatched int64          `json:"totalDispatched"`
	TotalProcessed  int64          `json:"totalProcessed"`
	TotalDropped    int64          `json:"totalDropped"`
	TotalErrors     int64          `json:"totalErrors"`
	Uptime          string         `json:"uptime"`
	WorkerStats     []WorkerStats  `json:"workerStats"`
	ActiveChannels  map[string]int `json:"activeChannels"` // channelID -> worker id
}

type WorkerStats struct {
	WorkerID      int   `json:"workerId"`
	QueueDepth    int   `json:"queueDepth"`
	IsProcessing  bool  `json:"isProcessing"`
	JobsProcessed int64 `json:"jobsProcessed"`
}

type activeChannel struct {
	workerID  int
	updatedAt time.Time
}

const activeChannelTTL = 2 * time.Second

type MessageWorkerPool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}
	startTime  time.Time

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64

	activeMu sync.Mutex
	active   map[string]activeChannel

	OnWorkerStart func(workerID int, channelID string)
	OnWorkerEnd   func(workerID int, channelID string)
}

type worker struct {
	id            int
	jobQueue      chan MessageJob
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *MessageWorkerPool
}

func NewMessageWorkerPool(numWorkers, queueSize int) *MessageWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &MessageWorkerPool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		active:     make(map[string]activeChannel),
		stopCh:     make(chan struct{}),
		startTime:  time.Now(),
	}
}

func (p *MessageWorkerPool) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.pruneActive(ctx)

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan MessageJob, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[MSG_WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

func (p *MessageWorkerPool) pruneActive(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case now := <-ticker.C:
			p.activeMu.Lock()
			for k, v := range p.active {
				if now.Sub(v.updatedAt) > activeChannelTTL {
					delete(p.active, k)
				}
			}
			p.activeMu.Unlock()
		}
	}
}

// TryDispatch queues job without blocking and reports whether it was
// accepted. A false return is the backpressure signal for callers.
func (p *MessageWorkerPool) TryDispatch(job MessageJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardForChannel(job.ChannelID)
	atomic.AddInt64(&p.totalDispatched, 1)

	sent := func() (ok bool) {
		// Stop may close the queue between the stopped check and the send
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if !sent {
		atomic.AddInt64(&p.totalDropped, 1)
		logrus.Warnf("[MSG_WORKER_POOL] Worker %d queue full, dropping %s for channel %s", shard, job.Kind, job.ChannelID)
		return false
	}

	p.activeMu.Lock()
	p.active[job.ChannelID] = activeChannel{workerID: shard, updatedAt: time.Now()}
	p.activeMu.Unlock()
	return true
}

func (p *MessageWorkerPool) Dispatch(job MessageJob) {
	_ = p.TryDispatch(job)
}

// Stop rejects new jobs, lets every worker drain what is already queued,
// and waits for them.
func (p *MessageWorkerPool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[MSG_WORKER_POOL] Stopping workers...")

		for _, w := range p.workers {
			if w == nil {
				continue
			}
			w.cancel()
			close(w.jobQueue)
		}
		p.wg.Wait()

		logrus.Info("[MSG_WORKER_POOL] All workers stopped")
	})
}

func (p *MessageWorkerPool) shardForChannel(channelID string) int {
	h := fnv.New32a()
	h.Write([]byte(channelID))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *MessageWorkerPool) GetStats() PoolStats {
	stats := PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		Uptime:          time.Since(p.startTime).Round(time.Second).String(),
		WorkerStats:     make([]WorkerStats, 0, len(p.workers)),
		ActiveChannels:  make(map[string]int),
	}

	for _, w := range p.workers {
		if w == nil {
			continue
		}
		busy := atomic.LoadInt32(&w.isProcessing) == 1
		if busy {
			stats.ActiveWorkers++
		}
		depth := len(w.jobQueue)
		stats.Pending += depth
		stats.WorkerStats = append(stats.WorkerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    depth,
			IsProcessing:  busy,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}

	now := time.Now()
	p.activeMu.Lock()
	for k, v := range p.active {
		if now.Sub(v.updatedAt) <= activeChannelTTL {
			stats.ActiveChannels[k] = v.workerID
		}
	}
	p.activeMu.Unlock()

	return stats
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	logrus.Debugf("[MSG_WORKER_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[MSG_WORKER_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(job)

		case <-w.ctx.Done():
			logrus.Debugf("[MSG_WORKER_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(job MessageJob) {
	if w.pool.OnWorkerStart != nil {
		w.pool.OnWorkerStart(w.id, job.ChannelID)
	}
	atomic.StoreInt32(&w.isProcessing, 1)

	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[MSG_WORKER_POOL] Worker %d panic on %s for channel %s: %v", w.id, job.Kind, job.ChannelID, r)
		}
		if w.pool.OnWorkerEnd != nil {
			w.pool.OnWorkerEnd(w.id, job.ChannelID)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	if err := job.Handler(w.ctx); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[MSG_WORKER_POOL] Worker %d %s failed for channel %s", w.id, job.Kind, job.ChannelID)
	}
}

// drainQueue runs whatever is left once the context is gone. Handlers see a
// cancelled context and are expected to finish quickly.
func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}
