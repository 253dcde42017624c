package monitoring

import (
	"sort"
	"sync"
	"time"
)

// EstimatorStats counts estimate requests per estimator.
type EstimatorStats struct {
	mu    sync.RWMutex
	stats map[string]*estimatorCounters
	since time.Time
}

type estimatorCounters struct {
	requests int64
	failures int64
	partial  int64
	cacheHit int64
	runs     int64
	elapsed  time.Duration
}

// EstimatorSnapshot is the exported view of one estimator's counters.
type EstimatorSnapshot struct {
	Name           string        `json:"name"`
	Requests       int64         `json:"requests"`
	Failures       int64         `json:"failures"`
	Partial        int64         `json:"partial"`
	CacheHits      int64         `json:"cache_hits"`
	Runs           int64         `json:"runs"`
	TotalElapsed   time.Duration `json:"total_elapsed"`
	AverageElapsed time.Duration `json:"average_elapsed"`
	RunsPerSecond  float64       `json:"runs_per_second"`
}

// Observation describes one finished estimate.
type Observation struct {
	Estimator string
	Runs      int
	Elapsed   time.Duration
	Failed    bool
	Partial   bool
	CacheHit  bool
}

// NewEstimatorStats returns empty statistics.
func NewEstimatorStats() *EstimatorStats {
	return &EstimatorStats{
		stats: make(map[string]*estimatorCounters),
		since: time.Now(),
	}
}

// Observe records one estimate.
func (s *EstimatorStats) Observe(o Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.stats[o.Estimator]
	if !ok {
		c = &estimatorCounters{}
		s.stats[o.Estimator] = c
	}
	c.requests++
	if o.Failed {
		c.failures++
	}
	if o.Partial {
		c.partial++
	}
	if o.CacheHit {
		c.cacheHit++
	}
	c.runs += int64(o.Runs)
	c.elapsed += o.Elapsed
}

// Snapshot returns the counters of every estimator ordered by name.
func (s *EstimatorStats) Snapshot() []EstimatorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EstimatorSnapshot, 0, len(s.stats))
	for name, c := range s.stats {
		snap := EstimatorSnapshot{
			Name:         name,
			Requests:     c.requests,
			Failures:     c.failures,
			Partial:      c.partial,
			CacheHits:    c.cacheHit,
			Runs:         c.runs,
			TotalElapsed: c.elapsed,
		}
		if c.requests > 0 {
			snap.AverageElapsed = c.elapsed / time.Duration(c.requests)
		}
		if c.elapsed > 0 {
			snap.RunsPerSecond = float64(c.runs) / c.elapsed.Seconds()
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Since returns when collection started.
func (s *EstimatorStats) Since() time.Time {
	return s.since
}
