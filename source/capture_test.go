package source

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

// fakeDevice delivers frames sent on its channel, closing the channel
// behaves as the end of the video
type fakeDevice struct {
	frames chan image.Image
	w, h   int
	rate   float64

	mu      sync.Mutex
	rewinds int
	closed  int
	replay  []image.Image
}

func newFakeDevice(w, h int) *fakeDevice {
	return &fakeDevice{frames: make(chan image.Image, 16), w: w, h: h}
}

func (f *fakeDevice) read() (image.Image, bool) {

	f.mu.Lock()
	if len(f.replay) > 0 {
		img := f.replay[0]
		f.replay = f.replay[1:]
		f.mu.Unlock()
		return img, true
	}
	f.mu.Unlock()

	img, ok := <-f.frames
	return img, ok
}

func (f *fakeDevice) rewind() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rewinds++
	return true
}

func (f *fakeDevice) dimensions() (int, int) { return f.w, f.h }
func (f *fakeDevice) fps() float64           { return f.rate }

func (f *fakeDevice) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed++
	return nil
}

func (f *fakeDevice) counts() (rewinds, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rewinds, f.closed
}

func frame(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// waitFor polls the condition until it holds or the timeout passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}

		time.Sleep(time.Millisecond)
	}
}

func TestCameraReadyLatch(t *testing.T) {

	dev := newFakeDevice(0, 0)
	cam := newCamera(0, dev)

	// open but no frame delivered yet
	if cam.Ready() {
		t.Fatal("expected camera not ready before first frame")
	}

	if _, err := cam.Frame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}

	if w, h := cam.Dimensions(); w != 0 || h != 0 {
		t.Errorf("expected unknown dimensions, got %dx%d", w, h)
	}

	dev.frames <- frame(320, 240)

	waitFor(t, "camera ready", cam.Ready)

	if w, h := cam.Dimensions(); w != 320 || h != 240 {
		t.Errorf("expected dimensions from first frame 320x240, got %dx%d", w, h)
	}

	img, err := cam.Frame()

	if err != nil || img.Bounds().Dx() != 320 {
		t.Errorf("expected 320 wide frame, got %v, %v", img, err)
	}

	close(dev.frames)

	if err := cam.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if cam.Ready() {
		t.Error("expected closed camera not ready")
	}

	if _, err := cam.Frame(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// second close is a no-op
	cam.Close()

	if _, closed := dev.counts(); closed != 1 {
		t.Errorf("expected device released once, got %d", closed)
	}
}

func TestFileEnds(t *testing.T) {

	dev := newFakeDevice(64, 48)
	dev.frames <- frame(64, 48)
	dev.frames <- frame(64, 48)
	close(dev.frames)

	f := newFile("clip.mp4", dev, FileOptions{FPS: 1000})
	defer f.Close()

	waitFor(t, "file end", f.Ended)

	if f.Ready() {
		t.Error("expected ended file not ready")
	}

	if w, h := f.Dimensions(); w != 64 || h != 48 {
		t.Errorf("expected 64x48, got %dx%d", w, h)
	}

	if rewinds, _ := dev.counts(); rewinds != 0 {
		t.Errorf("expected no rewinds, got %d", rewinds)
	}
}

func TestFileLoops(t *testing.T) {

	dev := newFakeDevice(64, 48)
	dev.replay = []image.Image{frame(64, 48)}
	close(dev.frames)

	// rewind refills the replay buffer as a real seek would
	f := &loopDevice{fakeDevice: dev}
	file := newFile("clip.mp4", f, FileOptions{Loop: true, FPS: 1000})
	defer file.Close()

	waitFor(t, "loop rewind", func() bool {
		rewinds, _ := dev.counts()
		return rewinds >= 2
	})

	if file.Ended() {
		t.Error("expected looping file not to end")
	}

	if !file.Ready() {
		t.Error("expected looping file ready")
	}
}

// loopDevice replays its single frame after each rewind
type loopDevice struct {
	*fakeDevice
}

func (l *loopDevice) rewind() bool {
	l.fakeDevice.rewind()

	l.mu.Lock()
	l.replay = []image.Image{frame(64, 48)}
	l.mu.Unlock()

	return true
}

func TestFilePauseResume(t *testing.T) {

	dev := newFakeDevice(64, 48)
	dev.frames <- frame(64, 48)

	f := newFile("clip.mp4", dev, FileOptions{FPS: 1000})

	waitFor(t, "file ready", f.Ready)

	f.Pause()

	if f.Ready() || !f.Paused() {
		t.Error("expected paused file not ready")
	}

	f.Resume()

	if !f.Ready() || f.Paused() {
		t.Error("expected resumed file ready")
	}

	close(dev.frames)
	f.Close()
}

func TestFileDefaultFPS(t *testing.T) {

	tests := []struct {
		name   string
		optFPS float64
		devFPS float64
		expect time.Duration
	}{
		{"option", 50, 30, 20 * time.Millisecond},
		{"device", 0, 10, 100 * time.Millisecond},
		{"unknown", 0, 0, 40 * time.Millisecond},
	}

	for _, tc := range tests {
		dev := newFakeDevice(1, 1)
		dev.rate = tc.devFPS
		close(dev.frames)

		f := newFile("clip.mp4", dev, FileOptions{FPS: tc.optFPS})

		if f.cap.interval != tc.expect {
			t.Errorf("%s: expected interval %v, got %v", tc.name, tc.expect, f.cap.interval)
		}

		f.Close()
	}
}

func TestCaptureCountsDrops(t *testing.T) {

	dev := newFakeDevice(8, 8)
	cam := newCamera(1, dev)

	for i := 0; i < 3; i++ {
		dev.frames <- frame(8, 8)
	}

	waitFor(t, "frames consumed", func() bool {
		return len(dev.frames) == 0 && cam.cap.dropped() == 2
	})

	close(dev.frames)
	cam.Close()
}

func TestCatalog(t *testing.T) {

	cat, err := NewCatalog([]Clip{
		{Name: "walk", Path: "clips/walk.mp4", Loop: true},
		{Name: "dance", Path: "clips/dance.mp4"},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := cat.Names()

	if len(names) != 2 || names[0] != "dance" || names[1] != "walk" {
		t.Errorf("expected sorted names, got %v", names)
	}

	clip, err := cat.Lookup("walk")

	if err != nil || clip.Path != "clips/walk.mp4" || !clip.Loop {
		t.Errorf("unexpected clip %+v: %v", clip, err)
	}

	if _, err := cat.Open("missing"); !errors.Is(err, ErrUnknownClip) {
		t.Errorf("expected ErrUnknownClip, got %v", err)
	}

	bad := [][]Clip{
		{{Name: "", Path: "a.mp4"}},
		{{Name: "a", Path: ""}},
		{{Name: "a", Path: "a.mp4"}, {Name: "a", Path: "b.mp4"}},
	}

	for i, clips := range bad {
		if _, err := NewCatalog(clips); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
