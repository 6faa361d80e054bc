// Package omr reads marked answers from photographed or scanned bubble
// answer sheets.
//
// # Pipeline
//
// Processor.ProcessSheet runs these stages on one image:
//
//  1. Normalise: down-scale to Options.MaxInputDimension, convert to
//     grayscale, stretch contrast.
//  2. Align (Aligner): find the four corner markers, or failing that the
//     sheet outline, and warp the sheet onto the canonical rectangle. When
//     both fail the raw image is used with a degraded grid.
//  3. Grid (Layout): place every bubble of the configured sections as a
//     fraction of the sheet frame.
//  4. Classify (Classifier): score each bubble's fill confidence from its
//     mean darkness.
//  5. Extract: resolve answers per question against Options.Threshold.
//
// # Sheet Layout
//
//	┌──────────────────────────────────────┐
//	│ ■  header          student ID      ■ │
//	│                    0-9 × N digits    │
//	│ section 1: 4 columns × 10 questions  │
//	│            (A B C D)                 │
//	│ section 2: 2 rows × 4 questions      │
//	│            (a-d × true/false)        │
//	│ section 3: up to 6 numeric answers   │
//	│            (- , 0-9 per character)   │
//	│ ■                                  ■ │
//	└──────────────────────────────────────┘
//
// The ■ corner markers define the frame every fraction refers to.
//
// # Errors
//
// Only *ConfigurationError and *DecodeError are returned to callers.
// *AlignmentError and *RegionExtractionError are recovered inside the
// pipeline and lower the result's confidence instead.
package omr
