package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"signal-core/internal/engine"
)

// SystemMetrics tracks decision throughput and latency for the JSON metrics
// endpoint. It is an engine.Observer.
type SystemMetrics struct {
	// Latency histograms
	RunLatency     *LatencyHistogram
	JournalLatency *LatencyHistogram

	// Counters
	runs            atomic.Uint64
	productsHandled atomic.Uint64
	ordersEmitted   atomic.Uint64
	buyOrders       atomic.Uint64
	sellOrders      atomic.Uint64
	productFailures atomic.Uint64
	resetBlobs      atomic.Uint64

	mu           sync.RWMutex
	lastDecision string
	lastBlobSize int
	startedAt    time.Time
}

// LatencyHistogram tracks latency samples in a sliding window. Stats are
// recomputed lazily.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		RunLatency:     NewLatencyHistogram(1000),
		JournalLatency: NewLatencyHistogram(1000),
		startedAt:      time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// ObserveDecision folds one engine run into the counters.
func (m *SystemMetrics) ObserveDecision(d engine.Decision) {
	m.runs.Add(1)
	m.productsHandled.Add(uint64(len(d.Products)))
	m.productFailures.Add(uint64(len(d.Failures())))
	m.RunLatency.RecordDuration(d.Latency)

	for _, orders := range d.Result.Orders {
		for _, o := range orders {
			m.ordersEmitted.Add(1)
			if o.Quantity < 0 {
				m.sellOrders.Add(1)
			} else {
				m.buyOrders.Add(1)
			}
		}
	}
	if d.EncodeErr != nil {
		m.resetBlobs.Add(1)
	}

	m.mu.Lock()
	m.lastDecision = d.ID
	m.lastBlobSize = len(d.Result.TraderData)
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time view for the JSON endpoint.
type MetricsSnapshot struct {
	RunLatency      LatencyStats `json:"run_latency"`
	JournalLatency  LatencyStats `json:"journal_latency"`
	Runs            uint64       `json:"runs"`
	ProductsHandled uint64       `json:"products_handled"`
	OrdersEmitted   uint64       `json:"orders_emitted"`
	BuyOrders       uint64       `json:"buy_orders"`
	SellOrders      uint64       `json:"sell_orders"`
	ProductFailures uint64       `json:"product_failures"`
	ResetBlobs      uint64       `json:"reset_blobs"`
	LastDecisionID  string       `json:"last_decision_id,omitempty"`
	LastBlobBytes   int          `json:"last_blob_bytes"`
	GoroutineCount  int          `json:"goroutine_count"`
	HeapAlloc       uint64       `json:"heap_alloc_bytes"`
	Uptime          string       `json:"uptime"`
	Timestamp       time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	last, size := m.lastDecision, m.lastBlobSize
	m.mu.RUnlock()

	return MetricsSnapshot{
		RunLatency:      m.RunLatency.Stats(),
		JournalLatency:  m.JournalLatency.Stats(),
		Runs:            m.runs.Load(),
		ProductsHandled: m.productsHandled.Load(),
		OrdersEmitted:   m.ordersEmitted.Load(),
		BuyOrders:       m.buyOrders.Load(),
		SellOrders:      m.sellOrders.Load(),
		ProductFailures: m.productFailures.Load(),
		ResetBlobs:      m.resetBlobs.Load(),
		LastDecisionID:  last,
		LastBlobBytes:   size,
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		Uptime:          time.Since(m.startedAt).Round(time.Second).String(),
		Timestamp:       time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
