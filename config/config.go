// Package config loads the overlay application settings from YAML
package config

import (
	"errors"
	"fmt"
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/render"
	"gopkg.in/yaml.v3"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the complete application configuration
type Config struct {
	Detector  DetectorConfig  `yaml:"detector"`
	Render    RenderConfig    `yaml:"render"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sources   SourcesConfig   `yaml:"sources"`
	HTTP      HTTPConfig      `yaml:"http"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// DetectorConfig contains the pose model settings
type DetectorConfig struct {
	ModelURL    string `yaml:"model_url"`
	CacheDir    string `yaml:"cache_dir"`
	InputWidth  int    `yaml:"input_width"`
	InputHeight int    `yaml:"input_height"`
	// MaskHistory is the number of frames the foreground mask learns over
	MaskHistory             int     `yaml:"mask_history"`
	NMSThreshold            float32 `yaml:"nms_threshold"`
	NumPoses                int     `yaml:"num_poses"`
	MinDetectionConfidence  float32 `yaml:"min_detection_confidence"`
	MinPresenceConfidence   float32 `yaml:"min_presence_confidence"`
	MinTrackingConfidence   float32 `yaml:"min_tracking_confidence"`
	RunningMode             string  `yaml:"running_mode"` // video, image
	OutputSegmentationMasks bool    `yaml:"output_segmentation_masks"`
	// Smooth enables landmark smoothing of tracked poses
	Smooth bool `yaml:"smooth"`
	// TrackMaxAge is the number of frames a lost subject keeps its ID
	TrackMaxAge int `yaml:"track_max_age"`
}

// RenderConfig contains the overlay drawing settings
type RenderConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	MaskColor     string  `yaml:"mask_color"` // #RRGGBB or #RRGGBBAA
	MaskOpacity   float64 `yaml:"mask_opacity"`
	LineThickness float64 `yaml:"line_thickness"`
	PointRadius   float64 `yaml:"point_radius"`
	BoxThickness  float64 `yaml:"box_thickness"`
	DrawBoxes     bool    `yaml:"draw_boxes"`
	DrawLabels    bool    `yaml:"draw_labels"`
	SizeFilter    struct {
		Enabled bool    `yaml:"enabled"`
		MinSize float32 `yaml:"min_size"`
		MaxSize float32 `yaml:"max_size"`
	} `yaml:"size_filter"`
	JPEGQuality int `yaml:"jpeg_quality"`
	// TrailLength is the number of positions drawn behind tracked
	// subjects, zero disables trails
	TrailLength int `yaml:"trail_length"`
}

// SchedulerConfig contains the frame loop settings
type SchedulerConfig struct {
	// RefreshFPS is the display refresh rate driving detection
	RefreshFPS int `yaml:"refresh_fps"`
	// AutoStart begins detection once the application has started
	AutoStart bool `yaml:"auto_start"`
}

// SourcesConfig contains the video source settings
type SourcesConfig struct {
	// Default is the clip name, file path or camera played at startup
	Default string       `yaml:"default"`
	// Camera is the device id used when the default source is a bare
	// "camera" without an id
	Camera  int          `yaml:"camera"`
	Clips   []ClipConfig `yaml:"clips"`
}

// ClipConfig is a bundled clip in the catalog
type ClipConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	Loop bool   `yaml:"loop"`
}

// HTTPConfig contains the web server settings
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig contains the broker settings for publishing poses, publishing
// is disabled when Broker is empty
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	InstanceID  string `yaml:"instance_id"`
	QoS         byte   `yaml:"qos"`
}

// Default returns a working configuration
func Default() *Config {

	cfg := &Config{
		Detector: DetectorConfig{
			ModelURL:                "https://github.com/ultralytics/assets/releases/download/v8.2.0/yolov8n-pose.onnx",
			CacheDir:                "../data/models",
			InputWidth:              640,
			InputHeight:             640,
			MaskHistory:             500,
			NMSThreshold:            0.45,
			NumPoses:                2,
			MinDetectionConfidence:  0.5,
			MinPresenceConfidence:   0.5,
			MinTrackingConfidence:   0.5,
			RunningMode:             "video",
			OutputSegmentationMasks: true,
			Smooth:                  true,
			TrackMaxAge:             30,
		},
		Render: RenderConfig{
			Width:         1280,
			Height:        720,
			MaskColor:     "#00c2ff",
			MaskOpacity:   0.7,
			LineThickness: 2,
			PointRadius:   3,
			BoxThickness:  2,
			DrawBoxes:     true,
			JPEGQuality:   80,
		},
		Scheduler: SchedulerConfig{
			RefreshFPS: 30,
			AutoStart:  true,
		},
		HTTP: HTTPConfig{
			Addr: "localhost:8080",
		},
		MQTT: MQTTConfig{
			TopicPrefix: "poseoverlay",
			InstanceID:  "overlay",
		},
	}

	cfg.Render.SizeFilter.MinSize = 0.05
	cfg.Render.SizeFilter.MaxSize = 1.0

	return cfg
}

// Load reads the YAML file over the default configuration so omitted
// settings keep their defaults
func Load(path string) (*Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML data over the default configuration
func Parse(data []byte) (*Config, error) {

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings are within range
func (c *Config) Validate() error {

	if _, err := c.Options(); err != nil {
		return err
	}

	if c.Detector.InputWidth <= 0 || c.Detector.InputHeight <= 0 {
		return fmt.Errorf("detector input size must be positive, got %dx%d",
			c.Detector.InputWidth, c.Detector.InputHeight)
	}

	if c.Detector.NMSThreshold <= 0 || c.Detector.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be in (0,1], got %v", c.Detector.NMSThreshold)
	}

	if c.Detector.TrackMaxAge < 0 {
		return fmt.Errorf("track max age must not be negative, got %d", c.Detector.TrackMaxAge)
	}

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d",
			c.Render.Width, c.Render.Height)
	}

	if c.Render.MaskOpacity < 0 || c.Render.MaskOpacity > 1 {
		return fmt.Errorf("mask opacity must be in [0,1], got %v", c.Render.MaskOpacity)
	}

	if _, err := ParseColor(c.Render.MaskColor); err != nil {
		return err
	}

	if c.Render.TrailLength < 0 {
		return fmt.Errorf("trail length must not be negative, got %d", c.Render.TrailLength)
	}

	sf := c.Render.SizeFilter

	if sf.Enabled && (sf.MinSize < 0 || sf.MaxSize < sf.MinSize) {
		return fmt.Errorf("size filter band [%v,%v] is invalid", sf.MinSize, sf.MaxSize)
	}

	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in [1,100], got %d", c.Render.JPEGQuality)
	}

	if c.Scheduler.RefreshFPS <= 0 {
		return fmt.Errorf("refresh fps must be positive, got %d", c.Scheduler.RefreshFPS)
	}

	if c.HTTP.Addr == "" {
		return errors.New("http addr not set")
	}

	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}

	seen := make(map[string]bool)

	for _, clip := range c.Sources.Clips {
		if clip.Name == "" || clip.Path == "" {
			return fmt.Errorf("clip needs a name and path, got %+v", clip)
		}

		if seen[clip.Name] {
			return fmt.Errorf("duplicate clip name %q", clip.Name)
		}

		seen[clip.Name] = true
	}

	return nil
}

// Options returns the detector options
func (c *Config) Options() (poseoverlay.Options, error) {

	mode, err := poseoverlay.ParseRunningMode(c.Detector.RunningMode)

	if err != nil {
		return poseoverlay.Options{}, err
	}

	opts := poseoverlay.Options{
		NumPoses:                c.Detector.NumPoses,
		MinDetectionConfidence:  c.Detector.MinDetectionConfidence,
		MinPresenceConfidence:   c.Detector.MinPresenceConfidence,
		MinTrackingConfidence:   c.Detector.MinTrackingConfidence,
		RunningMode:             mode,
		OutputSegmentationMasks: c.Detector.OutputSegmentationMasks,
	}

	if err := opts.Validate(); err != nil {
		return poseoverlay.Options{}, err
	}

	return opts, nil
}

// Style returns the overlay drawing style
func (c *Config) Style() render.Style {

	s := render.DefaultStyle()
	s.LineThickness = c.Render.LineThickness
	s.PointRadius = c.Render.PointRadius
	s.BoxThickness = c.Render.BoxThickness
	s.MaskOpacity = c.Render.MaskOpacity
	s.DrawBoxes = c.Render.DrawBoxes
	s.DrawLabels = c.Render.DrawLabels
	s.SizeFilter = render.SizeFilter{
		Enabled: c.Render.SizeFilter.Enabled,
		MinSize: c.Render.SizeFilter.MinSize,
		MaxSize: c.Render.SizeFilter.MaxSize,
	}

	if clr, err := ParseColor(c.Render.MaskColor); err == nil {
		s.MaskColor = clr
	}

	return s
}

// RefreshInterval returns the display refresh period
func (c *Config) RefreshInterval() time.Duration {
	return time.Second / time.Duration(c.Scheduler.RefreshFPS)
}

// ParseColor parses a #RRGGBB or #RRGGBBAA hex color
func ParseColor(s string) (color.RGBA, error) {

	hex := strings.TrimPrefix(s, "#")

	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	if len(hex) == 6 {
		hex += "ff"
	}

	v, err := strconv.ParseUint(hex, 16, 32)

	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
