package omr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/imaging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/logging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

// Processor runs the recognition pipeline. It holds no per-sheet state and
// may be shared by concurrent callers.
type Processor struct {
	backend    vision.Backend
	opts       Options
	layout     Layout
	aligner    *Aligner
	classifier *Classifier
	log        *logging.Logger
}

// NewProcessor returns a Processor using backend with the given options.
// A nil logger discards output.
func NewProcessor(backend vision.Backend, opts Options, log *logging.Logger) *Processor {
	if log == nil {
		log = logging.Nop()
	}
	return &Processor{
		backend:    backend,
		opts:       opts,
		layout:     DefaultLayout(),
		aligner:    NewAligner(backend, opts, log.With("align")),
		classifier: NewClassifier(backend, opts, log.With("classify")),
		log:        log,
	}
}

// Options returns the options the processor was built with.
func (p *Processor) Options() Options {
	return p.opts
}

// Layout returns the template layout bubbles are placed with.
func (p *Processor) Layout() Layout {
	return p.layout
}

// Backend returns the vision backend in use.
func (p *Processor) Backend() vision.Backend {
	return p.backend
}

// ProcessSheet reads one answer sheet.
//
// Only a *ConfigurationError or a *DecodeError stop processing; alignment
// and single-bubble failures degrade to a lower confidence. A backend that
// fails outright is reported as a wrapped error. Every buffer allocated on
// the way is released before returning, on success and on error.
func (p *Processor) ProcessSheet(img image.Image, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	norm, err := p.normalized(img)
	if err != nil {
		return nil, err
	}
	defer norm.Close()

	al := p.aligner.Align(norm)
	defer al.Close()

	measured := norm
	if al.Rectified != nil {
		measured = al.Rectified
	}

	regions, err := p.layout.Build(al.Frame, cfg)
	if err != nil {
		return nil, err
	}
	scored := p.classifier.ScoreAll(measured, regions)
	rec := Extract(scored, cfg, p.opts.Threshold, al.Method)

	p.log.Debug("sheet processed",
		"method", al.Method,
		"markers", len(al.Markers),
		"bubbles", len(scored),
		"confidence", rec.Confidence)

	res := &Result{Recognition: rec}
	if p.opts.KeepArtifacts {
		rectified, err := p.backend.ToGray(measured)
		if err != nil {
			return nil, fmt.Errorf("failed to export rectified image: %w", err)
		}
		res.Diagnostics = &Diagnostics{
			Method:       al.Method,
			AlignmentErr: al.Errors,
			Corners:      al.Corners,
			Frame:        al.Frame,
			Markers:      al.Markers,
			Rectified:    rectified,
			Bubbles:      scored,
		}
	}
	return res, nil
}

// normalized decodes img into a contrast-stretched grayscale buffer owned
// by the caller. Intermediate buffers are released before it returns.
func (p *Processor) normalized(img image.Image) (vision.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &DecodeError{Err: errors.New("image has no pixels")}
	}

	img, scale := imaging.FitWithin(img, p.opts.MaxInputDimension)
	if scale != 1 {
		p.log.Debug("input down-scaled", "scale", scale)
	}

	src, err := p.backend.FromImage(img)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer src.Close()

	gray, err := p.backend.Grayscale(src)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to grayscale: %w", err)
	}
	defer gray.Close()

	norm, err := p.backend.Normalize(gray)
	if err != nil {
		return nil, fmt.Errorf("failed to normalise contrast: %w", err)
	}
	return norm, nil
}

// Rectification is a located sheet exported as a plain image.
type Rectification struct {
	Method  AlignmentMethod `json:"method"`
	Corners *geometry.Quad  `json:"corners,omitempty"`
	Markers []Marker        `json:"markers,omitempty"`
	Errors  []error         `json:"-"`

	// Frame is the sheet frame within Image.
	Frame geometry.Rect `json:"frame"`

	// Image is the rectified sheet, or the normalised input when degraded.
	Image *image.Gray `json:"-"`
}

// Rectify runs normalisation and alignment only. Like ProcessSheet it
// never fails on alignment; a degraded Rectification is returned instead.
func (p *Processor) Rectify(img image.Image) (*Rectification, error) {
	norm, err := p.normalized(img)
	if err != nil {
		return nil, err
	}
	defer norm.Close()

	al := p.aligner.Align(norm)
	defer al.Close()

	measured := norm
	if al.Rectified != nil {
		measured = al.Rectified
	}
	out, err := p.backend.ToGray(measured)
	if err != nil {
		return nil, fmt.Errorf("failed to export rectified image: %w", err)
	}
	return &Rectification{
		Method:  al.Method,
		Corners: al.Corners,
		Markers: al.Markers,
		Errors:  al.Errors,
		Frame:   al.Frame,
		Image:   out,
	}, nil
}

// BatchItem is the outcome for one sheet of a batch.
type BatchItem struct {
	Index  int
	Result *Result
	Err    error
}

// ProcessBatch reads sheets concurrently with at most workers in flight.
//
// Items come back in input order. A sheet that fails is reported in its own
// item and does not stop the others. An invalid cfg fails the whole batch
// before any sheet is touched. Sheets not yet started when ctx is cancelled
// are reported with ctx.Err().
func (p *Processor) ProcessBatch(ctx context.Context, images []image.Image, cfg Config, workers int) ([]BatchItem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	items := make([]BatchItem, len(images))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, img := range images {
		items[i].Index = i
		select {
		case <-ctx.Done():
			items[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, img image.Image) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return
			}
			res, err := p.ProcessSheet(img, cfg)
			items[i].Result = res
			items[i].Err = err
		}(i, img)
	}
	wg.Wait()

	p.log.Debug("batch processed", "sheets", len(images), "workers", workers)
	return items, nil
}
