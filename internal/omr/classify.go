package omr

import (
	"github.com/ironsheep/bubble-sheet-mcp/internal/logging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

// Classifier turns bubble regions into fill confidences.
type Classifier struct {
	backend vision.Backend
	opts    Options
	log     *logging.Logger
}

// NewClassifier returns a Classifier measuring with backend.
func NewClassifier(backend vision.Backend, opts Options, log *logging.Logger) *Classifier {
	if log == nil {
		log = logging.Nop()
	}
	return &Classifier{backend: backend, opts: opts, log: log}
}

// Confidence returns the probability that r is filled in src, in [0,1].
//
// The region is padded, clamped to the image, lightly blurred and averaged:
// confidence is 1 - mean/255. Regions whose intensity spread exceeds the
// standard-deviation threshold are damped halfway toward the neutral confidence.
// Any failure reads as an empty bubble (0).
func (c *Classifier) Confidence(src vision.Mat, r BubbleRegion) float64 {
	conf, err := c.measure(src, r)
	if err != nil {
		c.log.Debug("bubble unreadable, scoring as empty", "error", err)
		return 0
	}
	return conf
}

func (c *Classifier) measure(src vision.Mat, r BubbleRegion) (float64, error) {
	rect := r.Rect.Pad(c.opts.ClassifierPadding).Image(src.Bounds())
	if rect.Empty() {
		return 0, &RegionExtractionError{Region: r, Err: errOutsideImage}
	}

	region, err := c.backend.Region(src, rect)
	if err != nil {
		return 0, &RegionExtractionError{Region: r, Err: err}
	}
	defer region.Close()

	smoothed := region
	if c.opts.ClassifierBlurKernel > 1 {
		smoothed, err = c.backend.GaussianBlur(region, c.opts.ClassifierBlurKernel, 0)
		if err != nil {
			return 0, &RegionExtractionError{Region: r, Err: err}
		}
		defer smoothed.Close()
	}

	mean, stddev, err := c.backend.MeanStdDev(smoothed)
	if err != nil {
		return 0, &RegionExtractionError{Region: r, Err: err}
	}

	conf := 1 - mean/255
	if stddev > c.opts.StdDevThreshold && conf > c.opts.NeutralConfidence {
		conf = c.opts.NeutralConfidence + (conf-c.opts.NeutralConfidence)*0.5
	}
	return clampUnit(conf), nil
}

// ScoreAll measures every region against src, in order.
func (c *Classifier) ScoreAll(src vision.Mat, regions []BubbleRegion) []ScoredBubble {
	scored := make([]ScoredBubble, len(regions))
	for i, r := range regions {
		scored[i] = ScoredBubble{BubbleRegion: r, Confidence: c.Confidence(src, r)}
	}
	return scored
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
