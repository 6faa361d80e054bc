package omr

import "fmt"

// Template capacities.
const (
	MaxSection1Questions = 40
	MaxSection2Questions = 8
	MaxSection3Questions = 6
	MaxStudentIDDigits   = 10
	MaxSection3Digits    = 8

	DefaultStudentIDDigits = 6
	DefaultSection3Digits  = 4
)

// Config is the per-call recognition configuration.
//
// A zero count disables that section; at least one section must be enabled.
// Zero StudentIDDigits and Section3Digits select the template defaults.
type Config struct {
	Section1Count   int `json:"section1Count"`
	Section2Count   int `json:"section2Count"`
	Section3Count   int `json:"section3Count"`
	StudentIDDigits int `json:"studentIdDigits,omitempty"`
	Section3Digits  int `json:"section3Digits,omitempty"`
}

// Validate reports the first problem with c as a *ConfigurationError.
func (c Config) Validate() error {
	counts := []struct {
		field string
		value int
		max   int
	}{
		{"section1Count", c.Section1Count, MaxSection1Questions},
		{"section2Count", c.Section2Count, MaxSection2Questions},
		{"section3Count", c.Section3Count, MaxSection3Questions},
		{"studentIdDigits", c.StudentIDDigits, MaxStudentIDDigits},
		{"section3Digits", c.Section3Digits, MaxSection3Digits},
	}
	for _, n := range counts {
		if n.value < 0 {
			return &ConfigurationError{Field: n.field, Reason: fmt.Sprintf("must not be negative, got %d", n.value)}
		}
		if n.value > n.max {
			return &ConfigurationError{Field: n.field, Reason: fmt.Sprintf("exceeds template capacity %d, got %d", n.max, n.value)}
		}
	}
	if c.Section1Count+c.Section2Count+c.Section3Count == 0 {
		return &ConfigurationError{Reason: "at least one section must have questions"}
	}
	return nil
}

// withDefaults fills the optional digit counts.
func (c Config) withDefaults() Config {
	if c.StudentIDDigits == 0 {
		c.StudentIDDigits = DefaultStudentIDDigits
	}
	if c.Section3Digits == 0 {
		c.Section3Digits = DefaultSection3Digits
	}
	return c
}

// Options are the tunable constants of the recognition pipeline.
type Options struct {
	// Threshold is the decision threshold T a bubble's confidence must exceed.
	Threshold float64

	// CanonicalWidth and CanonicalHeight are the rectified image size.
	CanonicalWidth  int
	CanonicalHeight int

	// MaxInputDimension down-scales larger inputs before processing; 0 disables.
	MaxInputDimension int

	// BlurKernel and BlurSigma configure sheet denoising before edge detection.
	BlurKernel int
	BlurSigma  float64

	// CannyLow and CannyHigh are the edge hysteresis thresholds.
	CannyLow  float64
	CannyHigh float64

	// DilateSize is the kernel used to close gaps in the edge map.
	DilateSize int

	// MinContourArea is the smallest quadrilateral area in px² at input scale.
	MinContourArea float64

	// MinSheetFraction is the smallest share of the image the sheet
	// quadrilateral may cover.
	MinSheetFraction float64

	// DarkLevel separates printed marks from paper when binarising.
	DarkLevel uint8

	// Marker filters, in input pixels.
	MarkerMinArea   float64
	MarkerMaxArea   float64
	MarkerMinAspect float64
	MarkerMaxAspect float64
	MarkerMinFill   float64

	// CornerAspectTolerance is how far from 1 a corner marker's aspect may be.
	CornerAspectTolerance float64

	// CornerZone is the share of each image side searched for a corner marker.
	CornerZone float64

	// MinMarkerQuadFraction is the smallest share of the image the quad of
	// corner marker centres may cover.
	MinMarkerQuadFraction float64

	// ClassifierPadding grows every bubble region before measuring, in pixels.
	ClassifierPadding float64

	// ClassifierBlurKernel is the small blur applied to each bubble region.
	ClassifierBlurKernel int

	// StdDevThreshold is the intensity standard deviation above which a
	// region counts as ambiguous and its confidence is damped.
	StdDevThreshold float64

	// NeutralConfidence is the value ambiguous confidences are damped toward.
	NeutralConfidence float64

	// KeepArtifacts fills Result.Diagnostics.
	KeepArtifacts bool
}

// DefaultOptions returns the tuned defaults for the printed template.
func DefaultOptions() Options {
	return Options{
		Threshold:             0.4,
		CanonicalWidth:        700,
		CanonicalHeight:       700,
		MaxInputDimension:     2000,
		BlurKernel:            5,
		BlurSigma:             1,
		CannyLow:              10,
		CannyHigh:             70,
		DilateSize:            3,
		MinContourArea:        50,
		MinSheetFraction:      0.2,
		DarkLevel:             100,
		MarkerMinArea:         50,
		MarkerMaxArea:         5000,
		MarkerMinAspect:       0.3,
		MarkerMaxAspect:       3.0,
		MarkerMinFill:         0.8,
		CornerAspectTolerance: 0.35,
		CornerZone:            0.3,
		MinMarkerQuadFraction: 0.25,
		ClassifierPadding:     0,
		ClassifierBlurKernel:  3,
		StdDevThreshold:       50,
		NeutralConfidence:     0.3,
	}
}
