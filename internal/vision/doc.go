// Package vision defines the Backend capability interface through which the
// recognition pipeline performs every pixel operation, together with its
// implementations.
//
// # Backends
//
//   - NewNative returns a pure-Go backend built on internal/imaging. It has
//     no system dependencies and is the default.
//   - NewOpenCV returns a backend built on gocv. It is only compiled with the
//     `gocv` build tag and needs OpenCV 4 installed.
//
// # Buffer Ownership
//
// Every Mat returned by a Backend is owned by the caller and must be released
// with Close exactly once, typically with defer right after the call that
// produced it. Closing is required even for the native backend, whose Close
// only drops references, so that pipeline code is correct for both.
//
// Backends hold no per-image state; one Backend value may be shared by any
// number of goroutines.
package vision
