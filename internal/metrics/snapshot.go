package metrics

import "sync"

// aggregate keeps a process-lifetime rollup of every flushed metric so the
// HTTP surface can expose a snapshot without scraping the EMF stream.
var aggregate = struct {
	mu    sync.Mutex
	count map[string]int64
	sum   map[string]float64
}{
	count: make(map[string]int64),
	sum:   make(map[string]float64),
}

// MetricSnapshot is one metric's rolled-up totals since process start.
type MetricSnapshot struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
}

// Snapshot returns the rollup of all metrics flushed so far, keyed by metric
// name.
func Snapshot() map[string]MetricSnapshot {
	aggregate.mu.Lock()
	defer aggregate.mu.Unlock()

	snap := make(map[string]MetricSnapshot, len(aggregate.count))
	for name, n := range aggregate.count {
		sum := aggregate.sum[name]
		snap[name] = MetricSnapshot{
			Count: n,
			Sum:   sum,
			Mean:  sum / float64(n),
		}
	}
	return snap
}

func recordAggregate(values map[string]interface{}) {
	aggregate.mu.Lock()
	defer aggregate.mu.Unlock()
	for name, v := range values {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		aggregate.count[name]++
		aggregate.sum[name] += f
	}
}
