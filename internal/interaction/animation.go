package interaction

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Animation loop parameters: the layer time runs from 0 to LoopLength and
// wraps every LoopLength/AnimationSpeed seconds.
const (
	LoopLength     = 1800
	AnimationSpeed = 30
)

// AnimationTime maps the time since the animation started to the layer time.
func AnimationTime(elapsed time.Duration) float64 {
	loop := float64(LoopLength) / AnimationSpeed
	return math.Mod(elapsed.Seconds(), loop) / loop * LoopLength
}

// TickSource calls fn periodically with the time since subscription until
// unsubscribe is called. No call starts after unsubscribe returns.
type TickSource interface {
	Subscribe(fn func(elapsed time.Duration)) (unsubscribe func())
}

// ClockTicks is a TickSource backed by a clockwork ticker.
type ClockTicks struct {
	Clock    clockwork.Clock
	Interval time.Duration
}

func (t ClockTicks) Subscribe(fn func(elapsed time.Duration)) func() {
	ticker := t.Clock.NewTicker(t.Interval)
	start := t.Clock.Now()
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				select {
				case <-done:
					return
				default:
				}
				fn(t.Clock.Since(start))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			<-exited
		})
	}
}

// Animator advances the flow animation time while animation is enabled.
type Animator struct {
	ticks   TickSource
	metrics *observability.Metrics
	onTick  func(t float64)

	mu          sync.Mutex
	unsubscribe func()
	closed      bool
	current     atomic.Uint64 // float64 bits
}

// NewAnimator creates a stopped animator. onTick, if set, is called from the
// tick goroutine with the new time and must not call SetEnabled or Close.
func NewAnimator(ticks TickSource, metrics *observability.Metrics, onTick func(t float64)) *Animator {
	return &Animator{ticks: ticks, metrics: metrics, onTick: onTick}
}

// SetEnabled subscribes to the tick source or cancels the subscription.
func (a *Animator) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	switch {
	case enabled && a.unsubscribe == nil:
		a.unsubscribe = a.ticks.Subscribe(a.tick)
		a.metrics.AnimationRunning.Set(1)
	case !enabled && a.unsubscribe != nil:
		a.stop()
	}
}

// Running reports whether the animator is subscribed to ticks.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unsubscribe != nil
}

// Time returns the current animation time.
func (a *Animator) Time() float64 {
	return math.Float64frombits(a.current.Load())
}

// Close stops the animation for good.
func (a *Animator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.unsubscribe != nil {
		a.stop()
	}
}

func (a *Animator) stop() {
	a.unsubscribe()
	a.unsubscribe = nil
	a.metrics.AnimationRunning.Set(0)
}

func (a *Animator) tick(elapsed time.Duration) {
	t := AnimationTime(elapsed)
	a.current.Store(math.Float64bits(t))
	if a.onTick != nil {
		a.onTick(t)
	}
}
