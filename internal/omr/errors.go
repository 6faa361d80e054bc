package omr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Code classifies recognition errors for callers that map them onto a
// transport, such as the MCP server.
type Code string

const (
	CodeConfiguration    Code = "CONFIGURATION"
	CodeDecode           Code = "DECODE"
	CodeAlignment        Code = "ALIGNMENT"
	CodeRegionExtraction Code = "REGION_EXTRACTION"
)

// Sentinels matched by AlignmentError through errors.Is.
var (
	ErrNoSheetBoundary     = errors.New("no sheet boundary found")
	ErrInsufficientMarkers = errors.New("insufficient corner markers")
)

var errOutsideImage = errors.New("region lies outside the image")

// ConfigurationError reports an invalid recognition Config. It is returned
// before any pixel work is done.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Code returns CodeConfiguration.
func (e *ConfigurationError) Code() Code { return CodeConfiguration }

// DecodeError reports that the input bytes are not a readable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Code returns CodeDecode.
func (e *DecodeError) Code() Code { return CodeDecode }

// AlignmentReason says which alignment strategy gave up.
type AlignmentReason string

const (
	NoSheetBoundaryFound AlignmentReason = "NoSheetBoundaryFound"
	InsufficientMarkers  AlignmentReason = "InsufficientMarkers"
)

// AlignmentError is recovered inside the pipeline: it switches recognition
// to the degraded path and is recorded in Diagnostics.
type AlignmentError struct {
	Reason AlignmentReason
	Detail string
	Err    error
}

func (e *AlignmentError) Error() string {
	msg := fmt.Sprintf("alignment failed (%s)", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AlignmentError) Unwrap() error { return e.Err }

// Is matches the sentinel for the reason.
func (e *AlignmentError) Is(target error) bool {
	switch target {
	case ErrNoSheetBoundary:
		return e.Reason == NoSheetBoundaryFound
	case ErrInsufficientMarkers:
		return e.Reason == InsufficientMarkers
	}
	return false
}

// Code returns CodeAlignment.
func (e *AlignmentError) Code() Code { return CodeAlignment }

// RegionExtractionError reports that one bubble could not be read. The
// classifier recovers from it by scoring the bubble 0.
type RegionExtractionError struct {
	Region BubbleRegion
	Err    error
}

func (e *RegionExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s bubble at %+v: %v", e.Region.Section, e.Region.Rect, e.Err)
}

func (e *RegionExtractionError) Unwrap() error { return e.Err }

// Code returns CodeRegionExtraction.
func (e *RegionExtractionError) Code() Code { return CodeRegionExtraction }

// CodeOf returns the Code of the first coded error in err's chain, or ""
// when there is none.
func CodeOf(err error) Code {
	var coded interface{ Code() Code }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or WebP data. Any failure,
// including empty input, is reported as a *DecodeError.
func DecodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty input")}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if img.Bounds().Empty() {
		return nil, &DecodeError{Err: errors.New("image has no pixels")}
	}
	return img, nil
}
