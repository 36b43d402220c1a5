package poseoverlay

import (
	"context"
	"github.com/swdee/go-poseoverlay/result"
	"image"
	"log"
	"sync"
	"time"
)

// Renderer draws a detection result over a video of the given native size.
// It owns the result's masks for the duration of the call and must release
// them before returning
type Renderer interface {
	Render(res *result.DetectionResult, videoW, videoH int) error
	// Clear removes any overlay so the video shows through unannotated
	Clear()
}

// ResultHook is called with each detection result before it is rendered.
// Masks must not be retained beyond the call
type ResultHook func(res *result.DetectionResult)

// FrameHook is called with the source frame after its overlay has been
// rendered.  Whilst detection is stopped it is still called every tick the
// source is ready, with the overlay cleared
type FrameHook func(frame image.Image)

// TickOutcome describes what a single scheduler tick did
type TickOutcome int

const (
	// TickInactive means detection is stopped and no work was done
	TickInactive TickOutcome = iota
	// TickNotReady means the source could not supply a frame yet
	TickNotReady
	// TickRendered means a frame was detected and rendered
	TickRendered
	// TickStale means the source changed while detecting and the result
	// was discarded
	TickStale
	// TickFailed means detection failed and the scheduler stopped itself
	TickFailed
)

// String returns a readable name of the outcome
func (t TickOutcome) String() string {
	switch t {
	case TickInactive:
		return "inactive"
	case TickNotReady:
		return "not ready"
	case TickRendered:
		return "rendered"
	case TickStale:
		return "stale"
	case TickFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats are the scheduler counters
type Stats struct {
	Rendered     uint64
	NotReady     uint64
	Stale        uint64
	DetectErrors uint64
	RenderErrors uint64
	// Passthrough counts frames shown without detection whilst stopped
	Passthrough uint64
	// LastDetect is the duration of the most recent detection
	LastDetect time.Duration
	Active     bool
}

// Scheduler drives one detect and render cycle per refresh tick.  Ticks are
// processed one at a time so there is never more than one detection in
// flight.  Stopping is observed at the next tick boundary, an in flight
// detection is allowed to complete
type Scheduler struct {
	runtime    *Runtime
	renderer   Renderer
	timestamps *result.Timestamper

	mu sync.Mutex
	// source is the current video source
	source Source
	// sourceGen increments every time the source is swapped
	sourceGen uint64
	active    bool
	stats     Stats
	onResult  ResultHook
	onFrame   FrameHook
}

// NewScheduler returns a stopped scheduler detecting with the runtime and
// drawing with the renderer
func NewScheduler(runtime *Runtime, renderer Renderer) *Scheduler {
	return &Scheduler{
		runtime:    runtime,
		renderer:   renderer,
		timestamps: result.NewTimestamper(),
	}
}

// OnResult sets the hook called with each detection result
func (s *Scheduler) OnResult(h ResultHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onResult = h
}

// OnFrame sets the hook called after each frame is rendered
func (s *Scheduler) OnFrame(h FrameHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onFrame = h
}

// Start enables detection from the next tick
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = true
}

// Stop disables detection from the next tick
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}

// Active reports if detection is enabled
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// SetSource switches to a new video source, closing the previous one.  The
// active state is unchanged and a detection in flight on the previous
// source is discarded.  A nil source leaves the scheduler without one
func (s *Scheduler) SetSource(src Source) error {
	s.mu.Lock()
	prev := s.source
	s.source = src
	s.sourceGen++
	s.mu.Unlock()

	// subjects on the new source are unrelated to the previous one
	s.runtime.ResetTracking()

	if prev != nil && prev != src {
		return prev.Close()
	}

	return nil
}

// Source returns the current video source
func (s *Scheduler) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.source
}

// Stats returns a copy of the scheduler counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Active = s.active

	return st
}

// Run processes a tick for every value received on refresh until the
// context is cancelled or refresh is closed
func (s *Scheduler) Run(ctx context.Context, refresh <-chan time.Time) error {

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case _, ok := <-refresh:
			if !ok {
				return nil
			}

			s.Tick()
		}
	}
}

// Tick runs a single detect and render cycle if detection is active and
// the source is ready.  Whilst stopped the source frame is passed through
// with the overlay cleared
func (s *Scheduler) Tick() TickOutcome {

	s.mu.Lock()
	active, src, gen := s.active, s.source, s.sourceGen
	onResult, onFrame := s.onResult, s.onFrame
	s.mu.Unlock()

	if !active {
		s.passthrough(src, onFrame)
		return TickInactive
	}

	if src == nil || !src.Ready() {
		s.count(func(st *Stats) { st.NotReady++ })
		return TickNotReady
	}

	frame, err := src.Frame()

	if err != nil {
		// source ended or was closed between the ready check and the read
		s.count(func(st *Stats) { st.NotReady++ })
		return TickNotReady
	}

	videoW, videoH := src.Dimensions()

	start := time.Now()
	res, err := s.runtime.Detect(frame, s.timestamps.Next())
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("Error detecting poses, stopping detection: %v", err)

		s.mu.Lock()
		s.active = false
		s.stats.DetectErrors++
		s.mu.Unlock()

		return TickFailed
	}

	// masks are released on every path, the renderer releasing them first
	// makes this a no-op
	defer res.Release()

	s.mu.Lock()
	stale := gen != s.sourceGen
	s.stats.LastDetect = elapsed
	if stale {
		s.stats.Stale++
	}
	s.mu.Unlock()

	if stale {
		// the detection also updated tracking with the previous source's
		// subjects after SetSource reset it
		s.runtime.ResetTracking()
		return TickStale
	}

	if onResult != nil {
		onResult(res)
	}

	if err := s.renderer.Render(res, videoW, videoH); err != nil {
		log.Printf("Error rendering overlay: %v", err)
		s.count(func(st *Stats) { st.RenderErrors++ })
	}

	if onFrame != nil {
		onFrame(frame)
	}

	s.count(func(st *Stats) { st.Rendered++ })

	return TickRendered
}

// passthrough delivers the current frame with a cleared overlay so video
// keeps playing whilst detection is stopped
func (s *Scheduler) passthrough(src Source, onFrame FrameHook) {

	if src == nil || !src.Ready() {
		return
	}

	frame, err := src.Frame()

	if err != nil {
		return
	}

	s.renderer.Clear()

	if onFrame != nil {
		onFrame(frame)
	}

	s.count(func(st *Stats) { st.Passthrough++ })
}

// count updates the stats under lock
func (s *Scheduler) count(fn func(st *Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.stats)
}

// Close stops detection and closes the current source
func (s *Scheduler) Close() error {
	s.mu.Lock()
	src := s.source
	s.source = nil
	s.sourceGen++
	s.active = false
	s.mu.Unlock()

	if src != nil {
		return src.Close()
	}

	return nil
}
