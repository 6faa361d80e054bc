package omr

import (
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		field   string
	}{
		{"section 1 only", Config{Section1Count: 5}, false, ""},
		{"all sections", Config{Section1Count: 40, Section2Count: 8, Section3Count: 6}, false, ""},
		{"custom digits", Config{Section3Count: 1, StudentIDDigits: 10, Section3Digits: 8}, false, ""},
		{"all zero", Config{}, true, ""},
		{"negative", Config{Section1Count: 5, Section2Count: -1}, true, "section2Count"},
		{"section 1 over capacity", Config{Section1Count: 41}, true, "section1Count"},
		{"section 2 over capacity", Config{Section2Count: 9}, true, "section2Count"},
		{"section 3 over capacity", Config{Section3Count: 7}, true, "section3Count"},
		{"too many ID digits", Config{Section1Count: 1, StudentIDDigits: 11}, true, "studentIdDigits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigurationError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
			if CodeOf(err) != CodeConfiguration {
				t.Errorf("code = %q", CodeOf(err))
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Threshold != 0.4 {
		t.Errorf("threshold = %v, want 0.4", opts.Threshold)
	}
	if opts.CanonicalWidth != 700 || opts.CanonicalHeight != 700 {
		t.Errorf("canonical size = %dx%d", opts.CanonicalWidth, opts.CanonicalHeight)
	}
	if opts.CannyLow != 10 || opts.CannyHigh != 70 {
		t.Errorf("canny = %v/%v", opts.CannyLow, opts.CannyHigh)
	}
	if opts.MarkerMinArea != 50 || opts.MarkerMaxArea != 5000 {
		t.Errorf("marker area = %v-%v", opts.MarkerMinArea, opts.MarkerMaxArea)
	}
}
