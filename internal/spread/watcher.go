package spread

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cross-exchange-crypto-arbitrage/internal/metrics"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
)

var SpreadLogger = logger.GetSpreadLogger()

// Watcher recomputes spreads on a fixed interval and publishes the latest
// cycle to subscribers. Each cycle is independent; there is no ordering
// guarantee across invocations.
type Watcher struct {
	engine         *Engine
	interval       time.Duration
	alertThreshold float64
	webhookURL     string
	ticker         *time.Ticker
	ctx            context.Context

	mu          sync.RWMutex
	latest      Cycle
	subscribers map[chan Cycle]struct{}
}

func NewWatcher(ctx context.Context, engine *Engine, interval time.Duration, alertThreshold float64, webhookURL string) *Watcher {
	return &Watcher{
		ctx:            ctx,
		engine:         engine,
		interval:       interval,
		alertThreshold: alertThreshold,
		webhookURL:     webhookURL,
		subscribers:    make(map[chan Cycle]struct{}),
	}
}

func (watcher *Watcher) Start() {
	watcher.ticker = time.NewTicker(watcher.interval)
	defer watcher.ticker.Stop()

	Logger.Info("Start computing spreads every " + watcher.interval.String())

	// Run immediately first time
	watcher.runOnce()

	// Then run on ticker
	for {
		select {
		case <-watcher.ctx.Done():
			Logger.Info("Stop computing spreads")
			return
		case <-watcher.ticker.C:
			watcher.runOnce()
		}
	}
}

func (watcher *Watcher) runOnce() {
	startTime := time.Now()
	cycle, err := watcher.engine.Compute(watcher.ctx)
	if err != nil {
		Logger.Error("Failed to compute spreads: " + err.Error())
		return
	}

	metrics.SpreadCycleDuration.Set(time.Since(startTime).Seconds())
	metrics.SpreadRecords.Set(float64(len(cycle.SortedSpreads)))

	jsonBytes, err := json.Marshal(cycle.SortedSpreads)
	if err != nil {
		Logger.Error("Failed to marshal spread cycle: " + err.Error())
	} else {
		SpreadLogger.Info(string(jsonBytes))
	}

	if watcher.webhookURL != "" && len(cycle.SortedSpreads) > 0 {
		top := cycle.SortedSpreads[0]
		if top.PercentSpread >= watcher.alertThreshold {
			AlertDiscord(watcher.webhookURL, top)
		}
	}

	watcher.mu.Lock()
	watcher.latest = cycle
	for subscriber := range watcher.subscribers {
		select {
		case subscriber <- cycle:
		default:
		}
	}
	watcher.mu.Unlock()
}

// Latest returns the most recently published cycle.
func (watcher *Watcher) Latest() Cycle {
	watcher.mu.RLock()
	defer watcher.mu.RUnlock()
	return watcher.latest
}

// Subscribe returns a channel receiving each new cycle. Slow consumers miss
// cycles rather than blocking the watcher.
func (watcher *Watcher) Subscribe() chan Cycle {
	subscriber := make(chan Cycle, 1)
	watcher.mu.Lock()
	watcher.subscribers[subscriber] = struct{}{}
	watcher.mu.Unlock()
	return subscriber
}

func (watcher *Watcher) Unsubscribe(subscriber chan Cycle) {
	watcher.mu.Lock()
	delete(watcher.subscribers, subscriber)
	watcher.mu.Unlock()
	close(subscriber)
}
