package detect

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval caps detection at 10 Hz.
const DefaultInterval = 100 * time.Millisecond

const (
	StatusDisabled = "disabled"
	StatusLoading  = "loading"
	StatusReady    = "ready"
)

type result struct {
	seq  uint64
	dets []Detection
	err  error
}

// Adapter runs a Detector off the simulation thread. Submit never blocks:
// the call runs on its own goroutine and its result is applied by the next
// Poll. At most one call is outstanding at a time.
type Adapter struct {
	det      Detector
	interval time.Duration
	log      zerolog.Logger
	metrics  *detectMetrics

	mu         sync.Mutex
	status     string
	ready      bool
	disabled   bool
	started    bool
	latest     []Detection
	latestSeq  uint64
	lastSubmit time.Time
	seq        uint64

	inFlight atomic.Bool
	results  chan result
	loaded   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdapter wraps det. A nil det gives a permanently disabled adapter.
func NewAdapter(det Detector, interval time.Duration, log zerolog.Logger) (*Adapter, error) {
	m, err := newDetectMetrics()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	a := &Adapter{
		det:      det,
		interval: interval,
		log:      log.With().Str("component", "detect").Logger(),
		metrics:  m,
		status:   StatusLoading,
		results:  make(chan result, 1),
		loaded:   make(chan struct{}),
	}
	if det == nil {
		a.status = StatusDisabled
		a.disabled = true
		close(a.loaded)
	}
	return a, nil
}

// Start loads the detector in the background. A load failure disables the
// adapter for the rest of the session.
func (a *Adapter) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started || a.disabled {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(a.loaded)

		start := time.Now()
		err := a.det.Load(a.ctx)

		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.disabled = true
			a.status = "unavailable: " + err.Error()
			a.log.Error().Err(err).Msg("detector failed to load, detection disabled")
			return
		}
		a.ready = true
		a.status = StatusReady
		a.log.Info().Dur("took", time.Since(start)).Msg("detector ready")
	}()
}

// Loaded is closed once loading has finished, successfully or not.
func (a *Adapter) Loaded() <-chan struct{} { return a.loaded }

// Due reports whether a frame submitted at now would be accepted.
func (a *Adapter) Due(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dueLocked(now)
}

func (a *Adapter) dueLocked(now time.Time) bool {
	if !a.ready || a.disabled || a.inFlight.Load() {
		return false
	}
	return a.lastSubmit.IsZero() || now.Sub(a.lastSubmit) >= a.interval
}

// Submit starts a detect call on f. It returns ErrDisabled when detection
// is off or not yet loaded, and ErrBusy when throttled.
func (a *Adapter) Submit(now time.Time, f Frame) error {
	a.mu.Lock()
	if a.disabled || !a.ready {
		a.mu.Unlock()
		return ErrDisabled
	}
	if !a.dueLocked(now) {
		a.mu.Unlock()
		a.metrics.add(a.metrics.rejected, 1)
		return ErrBusy
	}
	a.lastSubmit = now
	a.seq++
	f.Seq = a.seq
	a.inFlight.Store(true)
	ctx := a.ctx
	a.mu.Unlock()

	a.metrics.add(a.metrics.submitted, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		dets, err := a.det.Detect(ctx, f)
		a.results <- result{seq: f.Seq, dets: dets, err: err}
	}()
	return nil
}

// Poll applies a finished result if one is waiting. A failed call is logged
// and leaves the previous result in place.
func (a *Adapter) Poll() bool {
	select {
	case r := <-a.results:
		a.inFlight.Store(false)
		if r.err != nil {
			a.metrics.add(a.metrics.errors, 1)
			a.log.Warn().Err(r.err).Uint64("seq", r.seq).Msg("detection failed")
			return true
		}
		a.metrics.add(a.metrics.detections, len(r.dets))
		a.mu.Lock()
		a.latest = r.dets
		a.latestSeq = r.seq
		a.mu.Unlock()
		return true
	default:
		return false
	}
}

func (a *Adapter) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Latest returns the last applied result, which may be stale.
func (a *Adapter) Latest() []Detection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Detection(nil), a.latest...)
}

// LatestSeq is the frame sequence number of Latest, 0 if none.
func (a *Adapter) LatestSeq() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latestSeq
}

func (a *Adapter) Counts() map[string]int {
	return Counts(a.Latest())
}

// Summary is the one-line status shown on the HUD.
func (a *Adapter) Summary() string {
	status := a.Status()
	if status != StatusReady {
		return status
	}
	return fmt.Sprintf("%s, %d objects", status, len(a.Latest()))
}

// Close cancels outstanding work and waits for it to finish.
func (a *Adapter) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	// results has room for the single outstanding call, so a detect
	// goroutine never blocks on send
	a.wg.Wait()
}
