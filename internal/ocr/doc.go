// Package ocr reads the printed header of an answer sheet with Tesseract.
//
// It is used only to confirm that an image is the expected form; answers are
// never read as text.
//
// # Prerequisites
//
// Tesseract and the language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-vie
//   - macOS: brew install tesseract tesseract-lang
//
// Set BUBBLE_MCP_TESSDATA to use training data from a non-standard directory.
//
// # Matching
//
// Header keywords are compared after case folding, whitespace collapsing and
// removal of Vietnamese diacritics, because OCR of accented capitals is the
// least reliable part of the header.
package ocr
