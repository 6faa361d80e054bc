// Package geometry provides the pure geometric primitives used by the sheet
// recognition pipeline.
//
// All coordinates are pixel coordinates in the coordinate space of whichever
// image they were measured in: origin at the top-left, X increasing rightward,
// Y increasing downward. Nothing in this package normalises coordinates; when a
// value has to move between a raw capture and a rectified sheet it goes through
// a Homography.
//
// # Corner Ordering
//
// Quadrilaterals are always stored as [top-left, top-right, bottom-left,
// bottom-right]. OrderCorners establishes that order from four unordered
// points using the sum/difference rule:
//
//   - smallest x+y is top-left, largest x+y is bottom-right
//   - smallest y-x is top-right, largest y-x is bottom-left
//
// # Thread Safety
//
// Every function is pure. Values are small structs passed by value and can be
// shared freely between goroutines.
package geometry
