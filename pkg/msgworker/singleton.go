package msgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-chat/core/config"
	"github.com/sirupsen/logrus"
)

var (
	globalPool     *MessageWorkerPool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the process wide notification pool, starting it on first use.
func GetGlobalPool() *MessageWorkerPool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 0, 0
		if coreconfig.Global != nil {
			size = coreconfig.Global.WorkerPool.Size
			queue = coreconfig.Global.WorkerPool.QueueSize
		}

		globalPool = NewMessageWorkerPool(size, queue)
		globalPool.Start(ctx)
		logrus.Infof("[MSG_WORKER_POOL] Global instance started with %d workers and queue size %d", globalPool.numWorkers, globalPool.queueSize)
	})
	return globalPool
}

// StopGlobalPool drains and stops the global pool if it was ever started.
func StopGlobalPool() {
	if globalPool != nil {
		globalPool.Stop()
	}
	if globalCancel != nil {
		globalCancel()
	}
}
