package detector

import (
	"context"
	"errors"
	"github.com/swdee/go-poseoverlay"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestDetectBeforeInitialize(t *testing.T) {

	d := NewDNN(Config{InputWidth: 640, InputHeight: 640})

	_, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 8, 8)), 1)

	if !errors.Is(err, poseoverlay.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}

	if err := d.Close(); err != nil {
		t.Errorf("expected close of uninitialized detector to succeed, got %v", err)
	}
}

func TestInitializeUnreachableModel(t *testing.T) {

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := NewDNN(Config{
		ModelURL:    srv.URL + "/yolov8n-pose.onnx",
		CacheDir:    t.TempDir(),
		InputWidth:  640,
		InputHeight: 640,
	})

	if err := d.Initialize(context.Background(), poseoverlay.DefaultOptions()); err == nil {
		t.Fatal("expected error for unreachable model")
	}

	_, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 8, 8)), 1)

	if !errors.Is(err, poseoverlay.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after failed initialize, got %v", err)
	}
}

func TestFetchModelCaches(t *testing.T) {

	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("model-bytes"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "models")

	for i := 0; i < 2; i++ {
		file, err := fetchModel(context.Background(), srv.Client(),
			srv.URL+"/pose.onnx", dir)

		if err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}

		if file != filepath.Join(dir, "pose.onnx") {
			t.Errorf("unexpected model path %s", file)
		}

		data, err := os.ReadFile(file)

		if err != nil || string(data) != "model-bytes" {
			t.Errorf("unexpected model contents %q: %v", data, err)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("expected model to be fetched once, got %d", hits.Load())
	}
}

func TestFetchModelErrors(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	dir := t.TempDir()

	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"bad status", srv.URL + "/pose.onnx"},
	}

	for _, tc := range tests {
		if _, err := fetchModel(context.Background(), srv.Client(), tc.url, dir); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	// failed downloads leave nothing cached
	entries, _ := os.ReadDir(dir)

	if len(entries) != 0 {
		t.Errorf("expected empty cache dir, got %d entries", len(entries))
	}
}
