package limits

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// number of checks between full memstats refreshes; reading memstats stops
// the world briefly, so the hot paths only compare the clock on most calls
const memMeasureEvery = 64

// Quantity is a point-in-time resource measurement: wall-clock time and
// heap bytes grown since the limiter was created.
type Quantity struct {
	Time     time.Duration
	MemBytes uint64
}

// Exceeds reports whether either dimension is over the given budget.
func (q Quantity) Exceeds(limit Quantity) bool {
	return q.Time > limit.Time || q.MemBytes > limit.MemBytes
}

// LimitError reports that a configured resource budget was exceeded. It
// carries the usage measured at the moment of detection.
type LimitError struct {
	Usage Quantity
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded: time=%v mem_bytes=%d", e.Usage.Time, e.Usage.MemBytes)
}

// Limiter tracks elapsed time and heap growth against configured budgets.
// A single limiter is shared by pointer between the encoder, the solver
// driver and the caller; all access goes through the mutex. Go has no
// pluggable allocator, so memory is accounted as the heap-alloc delta
// since construction, refreshed at most every memMeasureEvery checks.
type Limiter struct {
	mu          sync.Mutex
	startTime   time.Time
	startMemory uint64
	limits      Quantity
	usage       Quantity
	checks      uint64
	logger      *zap.Logger
}

// NewLimiter captures the start time and heap watermark and arms the
// given budgets.
func NewLimiter(timeLimit time.Duration, memoryLimitBytes uint64, logger *zap.Logger) *Limiter {
	return &Limiter{
		startTime:   time.Now(),
		startMemory: heapBytes(),
		limits:      Quantity{Time: timeLimit, MemBytes: memoryLimitBytes},
		logger:      logger.Named("SCP"),
	}
}

// Unlimited returns a limiter whose budgets can never be exceeded.
func Unlimited(logger *zap.Logger) *Limiter {
	return NewLimiter(math.MaxInt64, math.MaxUint64, logger)
}

func heapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Measure refreshes both dimensions and returns the current usage.
func (l *Limiter) Measure() Quantity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.measureLocked()
}

func (l *Limiter) measureLocked() Quantity {
	var delta uint64
	if mem := heapBytes(); mem > l.startMemory {
		delta = mem - l.startMemory
	}
	l.usage = Quantity{Time: time.Since(l.startTime), MemBytes: delta}
	return l.usage
}

// checkLocked advances the usage reading and compares it against the
// budgets. The clock is read on every call; the heap only periodically.
func (l *Limiter) checkLocked() bool {
	l.checks++
	if l.checks%memMeasureEvery == 1 {
		return l.measureLocked().Exceeds(l.limits)
	}
	l.usage.Time = time.Since(l.startTime)
	return l.usage.Exceeds(l.limits)
}

// Enforce advances the usage reading (the clock on every call, the heap
// every memMeasureEvery checks) and returns a *LimitError if either budget
// is exceeded. Called between clauses during encoding and by the driver
// after solving.
func (l *Limiter) Enforce() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkLocked() {
		l.logger.Error("resource limits exceeded",
			zap.Duration("time_elapsed", l.usage.Time),
			zap.Duration("time_limit", l.limits.Time),
			zap.Uint64("mem_bytes", l.usage.MemBytes),
			zap.Uint64("mem_limit_bytes", l.limits.MemBytes))
		return &LimitError{Usage: l.usage}
	}
	return nil
}

// ShouldStop is the cheap poll the solve loop runs between slices.
func (l *Limiter) ShouldStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked()
}

// Usage returns the most recent measurement without re-measuring.
func (l *Limiter) Usage() Quantity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage
}
