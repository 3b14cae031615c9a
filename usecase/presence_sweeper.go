package usecase

import (
	"context"
	"sync"
	"time"

	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	"github.com/sirupsen/logrus"
)

// PresenceSweeper periodically expires stale presence. It is started with the
// service and stopped at shutdown.
type PresenceSweeper struct {
	registry  domainPresence.IPresenceRegistry
	interval  time.Duration
	onExpired func([]domainPresence.Entry)

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewPresenceSweeper(registry domainPresence.IPresenceRegistry, interval time.Duration, onExpired func([]domainPresence.Entry)) *PresenceSweeper {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PresenceSweeper{
		registry:  registry,
		interval:  interval,
		onExpired: onExpired,
		stopCh:    make(chan struct{}),
	}
}

func (s *PresenceSweeper) Start(ctx context.Context) {
	logrus.Infof("[SWEEPER] Starting presence sweep loop (interval: %s, timeout: %s)", s.interval, s.registry.Timeout())
	ticker := time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.RunOnce()
			}
		}
	}()
}

// RunOnce sweeps immediately and returns how many entries expired.
func (s *PresenceSweeper) RunOnce() int {
	expired := s.registry.Sweep()
	if len(expired) > 0 && s.onExpired != nil {
		s.onExpired(expired)
	}
	return len(expired)
}

func (s *PresenceSweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		logrus.Info("[SWEEPER] Stopped")
	})
}
