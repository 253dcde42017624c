package monitoring

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GoroutineMonitor compares the process goroutine count against the
// goroutines the server knows it is running. Calculations register their
// worker pools with Track; anything above baseline plus tracked plus the
// slack is reported as untracked, which is where leaked Monte-Carlo
// workers and abandoned progress streams show up.
type GoroutineMonitor struct {
	mu       sync.Mutex
	baseline int
	last     GoroutineSample
	peak     int
	tracked  map[string]int
	slack    int
	interval time.Duration
	quiet    time.Duration
	warnedAt time.Time
	logger   zerolog.Logger
}

// GoroutineSample is one reading of the monitor.
type GoroutineSample struct {
	Taken     time.Time      `json:"taken"`
	Total     int            `json:"total"`
	Baseline  int            `json:"baseline"`
	Peak      int            `json:"peak"`
	Tracked   map[string]int `json:"tracked"`
	Untracked int            `json:"untracked"`
}

// TrackedTotal sums the registered goroutines.
func (s GoroutineSample) TrackedTotal() int {
	n := 0
	for _, c := range s.Tracked {
		n += c
	}
	return n
}

// NewGoroutineMonitor creates a monitor sampling every interval (30s when
// non-positive). slack is how many untracked goroutines are tolerated
// before warning; non-positive means 1000.
func NewGoroutineMonitor(interval time.Duration, slack int, logger zerolog.Logger) *GoroutineMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if slack <= 0 {
		slack = 1000
	}
	return &GoroutineMonitor{
		baseline: runtime.NumGoroutine(),
		tracked:  make(map[string]int),
		slack:    slack,
		interval: interval,
		quiet:    5 * time.Minute,
		logger:   logger.With().Str("component", "goroutine_monitor").Logger(),
	}
}

// Track registers n goroutines under group until the returned release is
// called. Release is idempotent.
func (gm *GoroutineMonitor) Track(group string, n int) (release func()) {
	if n <= 0 {
		return func() {}
	}
	gm.mu.Lock()
	gm.tracked[group] += n
	gm.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			gm.mu.Lock()
			defer gm.mu.Unlock()
			if gm.tracked[group] -= n; gm.tracked[group] <= 0 {
				delete(gm.tracked, group)
			}
		})
	}
}

// Run samples until ctx is done.
func (gm *GoroutineMonitor) Run(ctx context.Context) {
	gm.logger.Info().
		Int("baseline", gm.baseline).
		Dur("interval", gm.interval).
		Int("slack", gm.slack).
		Msg("Goroutine monitor running")

	ticker := time.NewTicker(gm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gm.Sample()
		}
	}
}

// Sample reads the goroutine count, logs it and warns (at most once per
// quiet period) when the untracked count exceeds the slack.
func (gm *GoroutineMonitor) Sample() GoroutineSample {
	now := time.Now()
	total := runtime.NumGoroutine()

	gm.mu.Lock()
	if total > gm.peak {
		gm.peak = total
	}
	s := GoroutineSample{
		Taken:    now,
		Total:    total,
		Baseline: gm.baseline,
		Peak:     gm.peak,
		Tracked:  make(map[string]int, len(gm.tracked)),
	}
	for k, v := range gm.tracked {
		s.Tracked[k] = v
	}
	s.Untracked = max(0, total-gm.baseline-s.TrackedTotal())
	warn := s.Untracked > gm.slack && now.Sub(gm.warnedAt) >= gm.quiet
	if warn {
		gm.warnedAt = now
	}
	gm.last = s
	gm.mu.Unlock()

	ev := gm.logger.Debug()
	if warn {
		ev = gm.logger.Warn()
	}
	groups := make([]string, 0, len(s.Tracked))
	for g := range s.Tracked {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	ev.Int("total", s.Total).
		Int("tracked", s.TrackedTotal()).
		Int("untracked", s.Untracked).
		Int("peak", s.Peak).
		Strs("groups", groups).
		Msg(sampleMessage(warn))
	return s
}

// Last returns the most recent sample, or the zero sample before the first.
func (gm *GoroutineMonitor) Last() GoroutineSample {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.last
}

func sampleMessage(warn bool) string {
	if warn {
		return "Untracked goroutines above slack - possible leak"
	}
	return "Goroutine sample"
}
