package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValid(t *testing.T) {

	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid: %v", err)
	}

	opts, err := cfg.Options()

	if err != nil {
		t.Fatalf("unexpected options error: %v", err)
	}

	if opts.NumPoses != 2 || !opts.OutputSegmentationMasks {
		t.Errorf("unexpected default options %+v", opts)
	}

	if cfg.RefreshInterval() != time.Second/30 {
		t.Errorf("unexpected refresh interval %v", cfg.RefreshInterval())
	}

	style := cfg.Style()

	if style.MaskColor != (color.RGBA{R: 0, G: 194, B: 255, A: 255}) {
		t.Errorf("unexpected mask color %v", style.MaskColor)
	}

	if style.MaskOpacity != 0.7 {
		t.Errorf("expected opacity 0.7, got %v", style.MaskOpacity)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {

	data := `
detector:
  num_poses: 4
  running_mode: image
render:
  mask_color: "#ff000080"
  draw_labels: true
  size_filter:
    enabled: true
    min_size: 0.1
    max_size: 0.9
sources:
  default: walk
  clips:
    - name: walk
      path: clips/walk.mp4
      loop: true
mqtt:
  broker: tcp://localhost:1883
`

	file := filepath.Join(t.TempDir(), "overlay.yaml")

	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(file)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Detector.NumPoses != 4 || cfg.Detector.RunningMode != "image" {
		t.Errorf("expected detector overrides, got %+v", cfg.Detector)
	}

	// untouched settings keep defaults
	if cfg.Detector.InputWidth != 640 || cfg.Render.Width != 1280 || cfg.HTTP.Addr != "localhost:8080" {
		t.Errorf("expected defaults to be kept, got %+v", cfg)
	}

	style := cfg.Style()

	if style.MaskColor != (color.RGBA{R: 255, A: 128}) || !style.DrawLabels {
		t.Errorf("unexpected style %+v", style)
	}

	if !style.SizeFilter.Enabled || style.SizeFilter.MinSize != 0.1 {
		t.Errorf("unexpected size filter %+v", style.SizeFilter)
	}

	if len(cfg.Sources.Clips) != 1 || !cfg.Sources.Clips[0].Loop {
		t.Errorf("unexpected clips %+v", cfg.Sources.Clips)
	}

	if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.TopicPrefix != "poseoverlay" {
		t.Errorf("unexpected mqtt %+v", cfg.MQTT)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {

	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "detector: [1, 2"},
		{"num poses", "detector:\n  num_poses: 0"},
		{"running mode", "detector:\n  running_mode: live"},
		{"confidence", "detector:\n  min_detection_confidence: 1.5"},
		{"input size", "detector:\n  input_width: 0"},
		{"nms", "detector:\n  nms_threshold: 0"},
		{"opacity", "render:\n  mask_opacity: 1.2"},
		{"color", "render:\n  mask_color: blue"},
		{"render size", "render:\n  height: -1"},
		{"size band", "render:\n  size_filter:\n    enabled: true\n    min_size: 0.5\n    max_size: 0.2"},
		{"jpeg", "render:\n  jpeg_quality: 0"},
		{"trail", "render:\n  trail_length: -1"},
		{"refresh", "scheduler:\n  refresh_fps: 0"},
		{"addr", "http:\n  addr: \"\""},
		{"qos", "mqtt:\n  qos: 3"},
		{"clip", "sources:\n  clips:\n    - name: a"},
		{"duplicate clip", "sources:\n  clips:\n    - {name: a, path: a.mp4}\n    - {name: a, path: b.mp4}"},
	}

	for _, tc := range tests {
		if _, err := Parse([]byte(tc.yaml)); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestParseColor(t *testing.T) {

	tests := []struct {
		in     string
		expect color.RGBA
		ok     bool
	}{
		{"#00c2ff", color.RGBA{G: 194, B: 255, A: 255}, true},
		{"00C2FF80", color.RGBA{G: 194, B: 255, A: 128}, true},
		{"#fff", color.RGBA{}, false},
		{"#gggggg", color.RGBA{}, false},
	}

	for _, tc := range tests {
		got, err := ParseColor(tc.in)

		if (err == nil) != tc.ok {
			t.Errorf("%s: unexpected error state %v", tc.in, err)
			continue
		}

		if got != tc.expect {
			t.Errorf("%s: expected %v, got %v", tc.in, tc.expect, got)
		}
	}
}
