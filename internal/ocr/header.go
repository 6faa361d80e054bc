package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultKeywords are words printed in the title band of the answer sheet.
var DefaultKeywords = []string{"PHIẾU TRẢ LỜI", "TRẮC NGHIỆM"}

// Word is one recognised word with its location in the source image.
type Word struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Bounds     image.Rectangle `json:"bounds"`
}

// Text is the OCR output for one region.
type Text struct {
	FullText string `json:"fullText"`
	Words    []Word `json:"words"`
}

// Verification reports which expected keywords appear in a header.
type Verification struct {
	Text     string   `json:"text"`
	Found    []string `json:"found"`
	Missing  []string `json:"missing"`
	Verified bool     `json:"verified"`
}

// Reader runs Tesseract with a fixed language.
type Reader struct {
	language string
	tessdata string
}

// NewReader returns a Reader for language. An empty tessdata uses the
// system default training data location.
func NewReader(language, tessdata string) *Reader {
	if language == "" {
		language = "eng"
	}
	return &Reader{language: language, tessdata: tessdata}
}

// Language returns the Tesseract language code in use.
func (r *Reader) Language() string {
	return r.language
}

// ReadRegion recognises the text inside rect. Word bounds are reported in
// the coordinates of img.
func (r *Reader) ReadRegion(img image.Image, rect image.Rectangle) (*Text, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region outside image bounds %v", img.Bounds())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.Crop(img, rect)); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.tessdata != "" {
		if err := client.SetTessdataPrefix(r.tessdata); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(r.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	out := &Text{FullText: text, Words: []Word{}}

	// Word boxes are optional; keep the text when they fail.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return out, nil
	}
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		out.Words = append(out.Words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     box.Box.Add(rect.Min),
		})
	}
	return out, nil
}

// VerifyHeader reads rect and checks it for keywords. DefaultKeywords are
// used when keywords is empty.
func (r *Reader) VerifyHeader(img image.Image, rect image.Rectangle, keywords []string) (*Verification, error) {
	text, err := r.ReadRegion(img, rect)
	if err != nil {
		return nil, err
	}
	v := Verify(text.FullText, keywords)
	return &v, nil
}

// Verify checks text for keywords. DefaultKeywords are used when keywords
// is empty. The header is verified when every keyword is found.
func Verify(text string, keywords []string) Verification {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	v := Verification{
		Text:    text,
		Found:   []string{},
		Missing: []string{},
	}
	haystack := Fold(text)
	for _, k := range keywords {
		if strings.Contains(haystack, Fold(k)) {
			v.Found = append(v.Found, k)
		} else {
			v.Missing = append(v.Missing, k)
		}
	}
	v.Verified = len(v.Missing) == 0
	return v
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
