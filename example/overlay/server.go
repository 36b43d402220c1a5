package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/emitter"
	"github.com/swdee/go-poseoverlay/source"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// opener opens a video source from a request value
type opener func(value string) (poseoverlay.Source, error)

// Server exposes the overlay stream and playback controls over HTTP
type Server struct {
	sched   *poseoverlay.Scheduler
	hub     *Hub
	emitter *emitter.MQTTEmitter
	openers map[string]opener
}

// NewServer returns the HTTP front end.  Sources are opened through the
// catalog for clips, or directly for files and cameras
func NewServer(sched *poseoverlay.Scheduler, hub *Hub, catalog *source.Catalog) *Server {

	return &Server{
		sched: sched,
		hub:   hub,
		openers: map[string]opener{
			"file": func(v string) (poseoverlay.Source, error) {
				return source.NewFile(v, source.FileOptions{})
			},
			"clip": func(v string) (poseoverlay.Source, error) {
				return catalog.Open(v)
			},
			"camera": func(v string) (poseoverlay.Source, error) {
				id, err := strconv.Atoi(v)

				if err != nil {
					return nil, fmt.Errorf("invalid camera id %q", v)
				}

				return source.NewCamera(id)
			},
		},
	}
}

// SetEmitter includes the emitter counters in the stats
func (s *Server) SetEmitter(e *emitter.MQTTEmitter) {
	s.emitter = e
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.Stream)
	mux.HandleFunc("/start", s.post(s.Start))
	mux.HandleFunc("/stop", s.post(s.Stop))
	mux.HandleFunc("/source", s.post(s.Source))
	mux.HandleFunc("/stats", s.Stats)

	return mux
}

// post restricts a handler to the POST method
func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		h(w, r)
	}
}

// Stream is the HTTP handler function used to stream composited frames to
// the browser as MJPEG
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {

	log.Printf("New client connection established")

	frames, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			log.Printf("Client disconnected")
			return

		case buf := <-frames:
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(buf)
			w.Write([]byte("\r\n"))

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Start begins pose detection
func (s *Server) Start(w http.ResponseWriter, r *http.Request) {
	s.sched.Start()
	s.writeStats(w)
}

// Stop halts pose detection, playback continues
func (s *Server) Stop(w http.ResponseWriter, r *http.Request) {
	s.sched.Stop()
	s.writeStats(w)
}

// Source switches the video source to one of file=path, clip=name or
// camera=id
func (s *Server) Source(w http.ResponseWriter, r *http.Request) {

	kind, value, err := sourceParam(r)

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	src, err := s.openers[kind](value)

	if err != nil {
		status := http.StatusInternalServerError

		if errors.Is(err, source.ErrUnknownClip) {
			status = http.StatusNotFound
		}

		http.Error(w, err.Error(), status)
		return
	}

	if err := s.sched.SetSource(src); err != nil {
		log.Printf("Error closing previous source: %v", err)
	}

	log.Printf("Switched source to %s %s", kind, value)

	s.writeStats(w)
}

// sourceParam returns the single source selector in the request query
func sourceParam(r *http.Request) (string, string, error) {

	q := r.URL.Query()
	var found []string

	for _, k := range []string{"file", "clip", "camera"} {
		if q.Has(k) {
			found = append(found, k)
		}
	}

	if len(found) != 1 {
		return "", "", errors.New("specify exactly one of file, clip or camera")
	}

	value := strings.TrimSpace(q.Get(found[0]))

	if value == "" {
		return "", "", fmt.Errorf("%s must not be empty", found[0])
	}

	return found[0], value, nil
}

// statsResponse is the /stats document
type statsResponse struct {
	Active       bool           `json:"active"`
	Source       string         `json:"source"`
	Rendered     uint64         `json:"rendered"`
	NotReady     uint64         `json:"not_ready"`
	Stale        uint64         `json:"stale"`
	DetectErrors uint64         `json:"detect_errors"`
	RenderErrors uint64         `json:"render_errors"`
	Passthrough  uint64         `json:"passthrough"`
	LastDetectMS float64        `json:"last_detect_ms"`
	Stream       HubStats       `json:"stream"`
	MQTT         *emitter.Stats `json:"mqtt,omitempty"`
}

// Stats returns the scheduler counters as JSON
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	s.writeStats(w)
}

func (s *Server) writeStats(w http.ResponseWriter) {

	st := s.sched.Stats()

	resp := statsResponse{
		Active:       st.Active,
		Source:       describe(s.sched.Source()),
		Rendered:     st.Rendered,
		NotReady:     st.NotReady,
		Stale:        st.Stale,
		DetectErrors: st.DetectErrors,
		RenderErrors: st.RenderErrors,
		Passthrough:  st.Passthrough,
		LastDetectMS: float64(st.LastDetect.Microseconds()) / 1000,
		Stream:       s.hub.Stats(),
	}

	if s.emitter != nil {
		es := s.emitter.Stats()
		resp.MQTT = &es
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error writing stats: %v", err)
	}
}

// describe names the source for display
func describe(src poseoverlay.Source) string {

	switch v := src.(type) {
	case nil:
		return ""
	case *source.File:
		return "file " + v.Path()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%T", src)
	}
}
