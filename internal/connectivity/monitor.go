package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"pos-service/internal/broker"
	"pos-service/internal/notice"
	"pos-service/internal/util"
)

// Prober answers the binary online/offline question. The default probes the
// ledger health endpoint; tests and the manual override substitute their own.
type Prober interface {
	Online(ctx context.Context) bool
}

// HTTPProber reports online when the target answers 2xx.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber probes the given health URL
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Monitor owns the process-wide connectivity state. State changes flow only
// through transition; handlers fire exactly once per transition. The first
// observation also fires, which covers sales queued in a previous offline
// session that ended before the reconnect was noticed.
type Monitor struct {
	prober     Prober
	interval   time.Duration
	terminalID string
	board      *notice.Board
	events     *broker.EventPublisher
	logger     *zap.Logger

	mu        sync.Mutex
	online    bool
	observed  bool
	onOnline  []func(context.Context)
	onOffline []func(context.Context)

	stop chan struct{}
	done chan struct{}
}

// NewMonitor creates a monitor polling the prober at the given interval
func NewMonitor(prober Prober, interval time.Duration, terminalID string, board *notice.Board, events *broker.EventPublisher) *Monitor {
	return &Monitor{
		prober:     prober,
		interval:   interval,
		terminalID: terminalID,
		board:      board,
		events:     events,
		logger:     util.GetLogger(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// OnOnline registers a handler fired once per offline-to-online transition
// (and once on an initially-online first observation). Register before Start.
func (m *Monitor) OnOnline(handler func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, handler)
}

// OnOffline registers a handler fired once per online-to-offline transition
func (m *Monitor) OnOffline(handler func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOffline = append(m.onOffline, handler)
}

// Online reports the last observed state. Before the first observation the
// terminal behaves as offline and queues everything.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observed && m.online
}

// Check probes once and applies any transition
func (m *Monitor) Check(ctx context.Context) {
	m.transition(ctx, m.prober.Online(ctx))
}

// SetOnline applies a manual override, observing the same transition rules
// as the prober
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.transition(ctx, online)
}

// Start probes immediately and then on every tick until Stop or context
// cancellation
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("Starting connectivity monitor",
		zap.Duration("interval", m.interval))

	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Stop stops the probe loop
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) transition(ctx context.Context, online bool) {
	m.mu.Lock()
	if m.observed && m.online == online {
		m.mu.Unlock()
		return
	}
	first := !m.observed
	m.observed = true
	m.online = online

	var handlers []func(context.Context)
	if online {
		handlers = append(handlers, m.onOnline...)
	} else {
		handlers = append(handlers, m.onOffline...)
	}
	m.mu.Unlock()

	if online {
		util.ConnectivityTransitionsTotal.WithLabelValues("online").Inc()
		m.board.Post(notice.LevelInfo, notice.CodeOnlineRestored,
			"Back online, syncing pending sales")
	} else {
		util.ConnectivityTransitionsTotal.WithLabelValues("offline").Inc()
		m.board.Post(notice.LevelWarn, notice.CodeOfflineEntered,
			"Offline: sales will be queued locally until connectivity returns")
	}

	m.logger.Info("Connectivity transition",
		zap.Bool("online", online),
		zap.Bool("initial", first))

	if err := m.events.PublishConnectivityChanged(ctx, m.terminalID, online); err != nil {
		m.logger.Error("Failed to publish ConnectivityChanged event", zap.Error(err))
	}

	for _, h := range handlers {
		h(ctx)
	}
}
