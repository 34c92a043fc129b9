package vision

import "errors"

// Sentinel errors for the table pose pipeline. Callers wrap these with
// fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrConfiguration is fatal and only returned at construction time,
	// e.g. when the corner marker list is not exactly 4 unique IDs.
	ErrConfiguration = errors.New("configuration error")

	// ErrIncompleteCalibration means fewer than 4 corner markers have ever
	// been observed. The frame is skipped.
	ErrIncompleteCalibration = errors.New("incomplete calibration")

	// ErrDegenerateGeometry means the known corners are collinear or produce
	// non-finite homography terms. The frame is skipped; corners may recover
	// on a later frame.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrProjectionFailure means a single marker projected to a zero
	// homogeneous coordinate. Only that marker is skipped.
	ErrProjectionFailure = errors.New("projection failure")

	// ErrCallback wraps any error or panic raised by a dispatch sink.
	ErrCallback = errors.New("dispatch callback failed")
)
