package source

import (
	"errors"
	"image"
	"sync"
	"time"
)

var (
	// ErrNoFrame is returned when no frame has been decoded yet
	ErrNoFrame = errors.New("no frame available")
	// ErrClosed is returned when reading from a closed source
	ErrClosed = errors.New("source closed")
)

// capture decodes frames from a device on its own goroutine into a single
// slot mailbox.  A new frame overwrites any frame not yet displayed so
// consumers always see the most recent one
type capture struct {
	dev      device
	interval time.Duration
	loop     bool

	mu     sync.Mutex
	frame  image.Image
	seq    uint64
	drops  uint64
	taken  bool
	width  int
	height int
	paused bool
	ended  bool
	closed bool

	resume chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// newCapture starts reading the device.  An interval of zero reads as fast
// as the device delivers frames
func newCapture(dev device, interval time.Duration, loop bool) *capture {

	c := &capture{
		dev:      dev,
		interval: interval,
		loop:     loop,
		resume:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	c.width, c.height = dev.dimensions()

	c.wg.Add(1)
	go c.run()

	return c
}

// run is the capture goroutine
func (c *capture) run() {
	defer c.wg.Done()

	var tick *time.Ticker

	if c.interval > 0 {
		tick = time.NewTicker(c.interval)
		defer tick.Stop()
	}

	for {
		if !c.waitResumed() {
			return
		}

		img, ok := c.dev.read()

		if !ok {
			if c.loop && c.dev.rewind() {
				continue
			}

			c.mu.Lock()
			c.ended = true
			c.mu.Unlock()
			return
		}

		c.publish(img)

		if tick == nil {
			select {
			case <-c.done:
				return
			default:
			}
			continue
		}

		select {
		case <-c.done:
			return
		case <-tick.C:
		}
	}
}

// waitResumed blocks while paused, false when the capture is closing
func (c *capture) waitResumed() bool {

	for {
		c.mu.Lock()
		paused := c.paused
		c.mu.Unlock()

		if !paused {
			select {
			case <-c.done:
				return false
			default:
				return true
			}
		}

		select {
		case <-c.done:
			return false
		case <-c.resume:
		}
	}
}

// publish overwrites the mailbox with the frame
func (c *capture) publish(img image.Image) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame != nil && !c.taken {
		c.drops++
	}

	c.frame = img
	c.taken = false
	c.seq++

	if c.width == 0 || c.height == 0 {
		b := img.Bounds()
		c.width, c.height = b.Dx(), b.Dy()
	}
}

// ready reports whether a frame is available and playback is active
func (c *capture) ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.frame != nil && !c.paused && !c.ended && !c.closed
}

// latest returns the most recent frame.  The same frame is returned until
// a newer one is decoded
func (c *capture) latest() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if c.frame == nil {
		return nil, ErrNoFrame
	}

	c.taken = true

	return c.frame, nil
}

func (c *capture) dimensions() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.width, c.height
}

func (c *capture) setPaused(paused bool) {
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()

	if !paused {
		select {
		case c.resume <- struct{}{}:
		default:
		}
	}
}

func (c *capture) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.paused
}

func (c *capture) hasEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ended
}

// dropped returns the number of frames overwritten before being taken
func (c *capture) dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.drops
}

// close stops the capture goroutine then releases the device
func (c *capture) close() error {

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()

	return c.dev.close()
}
