package main

import (
	"context"
	"encoding/json"
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/result"
	"github.com/swdee/go-poseoverlay/source"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
)

// nopDetector returns no poses
type nopDetector struct{}

func (nopDetector) Initialize(ctx context.Context, opts poseoverlay.Options) error { return nil }
func (nopDetector) Close() error                                                   { return nil }

func (nopDetector) Detect(frame image.Image, ts int64) (*result.DetectionResult, error) {
	return &result.DetectionResult{TimestampMicros: ts}, nil
}

// nopRenderer discards results
type nopRenderer struct{}

func (nopRenderer) Render(res *result.DetectionResult, w, h int) error { return nil }
func (nopRenderer) Clear() {}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	rt, err := poseoverlay.NewRuntime(nopDetector{}, poseoverlay.DefaultOptions())

	if err != nil {
		t.Fatal(err)
	}

	if err := rt.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	catalog, err := source.NewCatalog([]source.Clip{{Name: "walk", Path: "walk.mp4"}})

	if err != nil {
		t.Fatal(err)
	}

	return NewServer(poseoverlay.NewScheduler(rt, nopRenderer{}), NewHub(), catalog)
}

func request(h http.Handler, method, target string) (*httptest.ResponseRecorder, statsResponse) {

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var st statsResponse
	json.Unmarshal(rec.Body.Bytes(), &st)

	return rec, st
}

func TestServerStartStop(t *testing.T) {

	h := newTestServer(t).Handler()

	rec, st := request(h, http.MethodGet, "/stats")

	if rec.Code != http.StatusOK || st.Active {
		t.Fatalf("expected inactive stats, got %d %+v", rec.Code, st)
	}

	if _, st = request(h, http.MethodPost, "/start"); !st.Active {
		t.Error("expected active after start")
	}

	if _, st = request(h, http.MethodPost, "/stop"); st.Active {
		t.Error("expected inactive after stop")
	}

	if rec, _ = request(h, http.MethodGet, "/start"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET /start, got %d", rec.Code)
	}
}

func TestServerSourceValidation(t *testing.T) {

	h := newTestServer(t).Handler()

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"no selector", "/source", http.StatusBadRequest},
		{"two selectors", "/source?file=a.mp4&clip=walk", http.StatusBadRequest},
		{"empty value", "/source?file=", http.StatusBadRequest},
		{"bad camera", "/source?camera=front", http.StatusInternalServerError},
		{"unknown clip", "/source?clip=dance", http.StatusNotFound},
	}

	for _, tc := range tests {
		rec, _ := request(h, http.MethodPost, tc.target)

		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.code, rec.Code)
		}
	}
}

func TestParseSource(t *testing.T) {

	catalog, _ := source.NewCatalog([]source.Clip{{Name: "walk", Path: "walk.mp4"}})

	tests := []struct {
		in    string
		kind  string
		value string
	}{
		{"camera:1", "camera", "1"},
		{"camera", "camera", "2"},
		{"camera:", "camera", "2"},
		{"walk", "clip", "walk"},
		{"videos/dance.mp4", "file", "videos/dance.mp4"},
	}

	for _, tc := range tests {
		kind, value := parseSource(tc.in, 2, catalog)

		if kind != tc.kind || value != tc.value {
			t.Errorf("%s: expected %s %s, got %s %s", tc.in, tc.kind, tc.value, kind, value)
		}
	}
}

func TestHubDropsStaleFrames(t *testing.T) {

	hub := NewHub()
	frames, unsubscribe := hub.Subscribe()

	hub.Publish([]byte("one"))
	hub.Publish([]byte("two"))

	if got := string(<-frames); got != "two" {
		t.Errorf("expected latest frame, got %s", got)
	}

	st := hub.Stats()

	if st.Clients != 1 || st.Sent != 2 || st.Skipped != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	unsubscribe()

	if hub.Clients() != 0 {
		t.Errorf("expected no clients after unsubscribe")
	}

	// publishing without clients is a no-op
	hub.Publish([]byte("three"))
}
