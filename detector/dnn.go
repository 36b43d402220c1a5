package detector

import (
	"context"
	"errors"
	"fmt"
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/preprocess"
	"github.com/swdee/go-poseoverlay/result"
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// Config holds the DNN detector model settings
type Config struct {
	// ModelURL is where the ONNX model is fetched from on first use
	ModelURL string
	// CacheDir is the local directory models are stored in
	CacheDir string
	// InputWidth and InputHeight are the model input tensor dimensions
	InputWidth  int
	InputHeight int
	// MaskHistory is the number of frames the foreground model learns
	// the background over
	MaskHistory int
	// Decode are the output tensor parameters
	Decode DecodeParams
}

// DNN is a pose detector running a YOLOv8 pose ONNX model with the OpenCV
// DNN module
type DNN struct {
	cfg    Config
	client *http.Client

	mu          sync.Mutex
	net         gocv.Net
	opts        poseoverlay.Options
	resizer     *preprocess.Resizer
	input       gocv.Mat
	fg          *Foreground
	initialized bool
	lastTS      int64
}

// NewDNN returns a detector for the model configuration.  No model is loaded
// until Initialize is called
func NewDNN(cfg Config) *DNN {

	if cfg.Decode.KeyPoints == 0 {
		cfg.Decode = COCOParams()
	}

	if cfg.MaskHistory <= 0 {
		cfg.MaskHistory = 500
	}

	return &DNN{
		cfg:    cfg,
		client: http.DefaultClient,
	}
}

// Initialize fetches the model if it is not cached and loads it
func (d *DNN) Initialize(ctx context.Context, opts poseoverlay.Options) error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return errors.New("detector already initialized")
	}

	if d.cfg.InputWidth <= 0 || d.cfg.InputHeight <= 0 {
		return fmt.Errorf("invalid model input size %dx%d",
			d.cfg.InputWidth, d.cfg.InputHeight)
	}

	modelFile, err := fetchModel(ctx, d.client, d.cfg.ModelURL, d.cfg.CacheDir)

	if err != nil {
		return err
	}

	net := gocv.ReadNetFromONNX(modelFile)

	if net.Empty() {
		return fmt.Errorf("error reading model %s", modelFile)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return fmt.Errorf("error setting target: %w", err)
	}

	d.net = net
	d.opts = opts
	d.resizer = preprocess.NewResizer(0, 0, d.cfg.InputWidth, d.cfg.InputHeight)
	d.input = gocv.NewMat()

	if opts.OutputSegmentationMasks {
		d.fg = NewForeground(d.cfg.MaskHistory)
	}

	d.initialized = true

	log.Printf("Loaded pose model %s", modelFile)

	return nil
}

// Detect runs the model over the frame
func (d *DNN) Detect(frame image.Image, timestampMicros int64) (*result.DetectionResult, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, poseoverlay.ErrNotInitialized
	}

	if d.opts.RunningMode == poseoverlay.RunningModeVideo &&
		d.lastTS != 0 && timestampMicros <= d.lastTS {
		return nil, fmt.Errorf("timestamp %d is not after previous %d",
			timestampMicros, d.lastTS)
	}

	d.lastTS = timestampMicros

	src, err := gocv.ImageToMatRGB(frame)

	if err != nil {
		return nil, fmt.Errorf("error converting frame to Mat: %w", err)
	}

	defer src.Close()

	d.resizer.Update(src.Cols(), src.Rows(), d.cfg.InputWidth, d.cfg.InputHeight)
	d.resizer.LetterBoxResize(src, &d.input, color.RGBA{R: 114, G: 114, B: 114, A: 255})

	blob := gocv.BlobFromImage(d.input, 1.0/255.0,
		image.Pt(d.cfg.InputWidth, d.cfg.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	sizes := out.Size()

	if len(sizes) != 3 || sizes[1] != 5+d.cfg.Decode.KeyPoints*3 {
		return nil, fmt.Errorf("unexpected model output shape %v", sizes)
	}

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading model output: %w", err)
	}

	res := &result.DetectionResult{
		Poses: DecodePoses(data, sizes[2], d.cfg.Decode, d.opts,
			d.resizer.Transform()),
		TimestampMicros: timestampMicros,
	}

	if d.fg != nil {
		mask, err := d.fg.Mask(src)

		if err != nil {
			return nil, fmt.Errorf("error creating segmentation mask: %w", err)
		}

		res.Masks = []*result.SegmentationMask{mask}
	}

	return res, nil
}

// Close frees the model and buffers
func (d *DNN) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}

	d.initialized = false
	d.input.Close()
	d.resizer.Close()

	if d.fg != nil {
		d.fg.Close()
		d.fg = nil
	}

	return d.net.Close()
}

// fetchModel returns the local path of the model, downloading it into the
// cache directory if not already present
func fetchModel(ctx context.Context, client *http.Client, modelURL,
	cacheDir string) (string, error) {

	if modelURL == "" {
		return "", errors.New("model url not set")
	}

	name := path.Base(modelURL)

	if name == "/" || name == "." {
		return "", fmt.Errorf("model url %s has no file name", modelURL)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating cache dir: %w", err)
	}

	file := filepath.Join(cacheDir, name)

	if _, err := os.Stat(file); err == nil {
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelURL, nil)

	if err != nil {
		return "", fmt.Errorf("error creating model request: %w", err)
	}

	resp, err := client.Do(req)

	if err != nil {
		return "", fmt.Errorf("error fetching model: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error fetching model %s: %s", modelURL, resp.Status)
	}

	// download to a temporary file so a partial fetch is never cached
	tmp, err := os.CreateTemp(cacheDir, name+".*.part")

	if err != nil {
		return "", fmt.Errorf("error creating model file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("error downloading model: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("error writing model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("error saving model file: %w", err)
	}

	log.Printf("Fetched model %s into %s", modelURL, cacheDir)

	return file, nil
}
