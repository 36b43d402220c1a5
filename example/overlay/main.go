/*
Example showing a live pose overlay on a video file, bundled clip or webcam
streamed to the browser as MJPEG with HTTP playback controls
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/config"
	"github.com/swdee/go-poseoverlay/detector"
	"github.com/swdee/go-poseoverlay/emitter"
	"github.com/swdee/go-poseoverlay/render"
	"github.com/swdee/go-poseoverlay/render/compose"
	"github.com/swdee/go-poseoverlay/source"
	"github.com/swdee/go-poseoverlay/tracker"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	cfgFile := flag.String("c", "", "YAML configuration file, defaults are used when not set")
	httpAddr := flag.String("a", "", "HTTP Address to run server on, format address:port")
	srcFlag := flag.String("v", "", "Source to play at startup, a clip name, video file or camera:N")
	modelURL := flag.String("m", "", "URL of the YOLOv8 pose ONNX model")

	flag.Parse()

	cfg := config.Default()

	if *cfgFile != "" {
		var err error
		cfg, err = config.Load(*cfgFile)

		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	if *srcFlag != "" {
		cfg.Sources.Default = *srcFlag
	}

	if *modelURL != "" {
		cfg.Detector.ModelURL = *modelURL
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// run wires the pipeline together and serves until interrupted
func run(cfg *config.Config) error {

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer cancel()

	opts, err := cfg.Options()

	if err != nil {
		return err
	}

	params := detector.COCOParams()
	params.NMSThreshold = cfg.Detector.NMSThreshold

	det := detector.NewDNN(detector.Config{
		ModelURL:    cfg.Detector.ModelURL,
		CacheDir:    cfg.Detector.CacheDir,
		InputWidth:  cfg.Detector.InputWidth,
		InputHeight: cfg.Detector.InputHeight,
		MaskHistory: cfg.Detector.MaskHistory,
		Decode:      params,
	})

	rt, err := poseoverlay.NewRuntime(det, opts)

	if err != nil {
		return err
	}

	defer rt.Close()

	rt.SetTracker(tracker.NewPoseTracker(tracker.Config{
		MinIoU: opts.MinTrackingConfidence,
		MaxAge: cfg.Detector.TrackMaxAge,
		Smooth: cfg.Detector.Smooth,
	}))

	// model load failure is fatal, there is nothing to retry with
	if err := rt.Initialize(ctx); err != nil {
		return fmt.Errorf("error initializing detector: %w", err)
	}

	overlay := render.NewOverlay(cfg.Render.Width, cfg.Render.Height, cfg.Style())

	if cfg.Render.TrailLength > 0 {
		overlay.SetTrail(render.NewTrail(cfg.Render.TrailLength), render.DefaultTrailStyle())
	}

	sched := poseoverlay.NewScheduler(rt, overlay)
	defer sched.Close()

	comp := compose.NewCompositor()
	comp.Quality = cfg.Render.JPEGQuality
	defer comp.Close()

	hub := NewHub()

	sched.OnFrame(func(frame image.Image) {
		if hub.Clients() == 0 {
			return
		}

		jpg, err := comp.Compose(frame, overlay.Canvas().Image())

		if err != nil {
			log.Printf("Error composing frame: %v", err)
			return
		}

		hub.Publish(jpg)
	})

	clips := make([]source.Clip, 0, len(cfg.Sources.Clips))

	for _, c := range cfg.Sources.Clips {
		clips = append(clips, source.Clip{Name: c.Name, Path: c.Path, Loop: c.Loop})
	}

	catalog, err := source.NewCatalog(clips)

	if err != nil {
		return err
	}

	srv := NewServer(sched, hub, catalog)

	if cfg.MQTT.Broker != "" {
		em := emitter.NewMQTTEmitter(emitter.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			InstanceID:  cfg.MQTT.InstanceID,
			QoS:         cfg.MQTT.QoS,
		})

		connCtx, connCancel := context.WithTimeout(ctx, 5*time.Second)
		err := em.Connect(connCtx)
		connCancel()

		// poses are still overlaid without a broker
		if err != nil {
			log.Printf("MQTT publishing disabled: %v", err)
		} else {
			defer em.Close()
			sched.OnResult(em.Emit)
			srv.SetEmitter(em)
			log.Printf("Publishing poses to %s", em.Topic())
		}
	}

	if cfg.Sources.Default != "" {
		kind, value := parseSource(cfg.Sources.Default, cfg.Sources.Camera, catalog)
		src, err := srv.openers[kind](value)

		if err != nil {
			return fmt.Errorf("error opening source %s: %w", cfg.Sources.Default, err)
		}

		if err := sched.SetSource(src); err != nil {
			log.Printf("Error closing previous source: %v", err)
		}
	}

	if cfg.Scheduler.AutoStart {
		sched.Start()
	}

	// the display refresh drives the scheduler
	ticker := time.NewTicker(cfg.RefreshInterval())
	defer ticker.Stop()

	schedDone := make(chan error, 1)

	go func() {
		schedDone <- sched.Run(ctx, ticker.C)
	}()

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Handler(),
	}

	httpDone := make(chan error, 1)

	go func() {
		httpDone <- httpSrv.ListenAndServe()
	}()

	log.Printf("Open browser and view video at http://%s/stream", cfg.HTTP.Addr)

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	log.Printf("Shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()

	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Printf("Error shutting down http server: %v", err)
	}

	cancel()

	if err := <-schedDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// parseSource resolves a startup source setting to an opener kind.  A bare
// camera selects the configured camera device.  Clip names take priority
// over file paths
func parseSource(s string, camera int, catalog *source.Catalog) (string, string) {

	if s == "camera" || s == "camera:" {
		return "camera", strconv.Itoa(camera)
	}

	if id, ok := strings.CutPrefix(s, "camera:"); ok {
		return "camera", id
	}

	if _, err := catalog.Lookup(s); err == nil {
		return "clip", s
	}

	return "file", s
}
