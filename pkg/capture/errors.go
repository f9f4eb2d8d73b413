package capture

import "errors"

// Sentinel errors for the capture package.
var (
	// ErrPermissionDenied is returned when microphone access is refused.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")

	// ErrDeviceUnavailable is returned when no usable input device exists.
	ErrDeviceUnavailable = errors.New("capture: audio device unavailable")

	// ErrFinalizing is returned when Start races a stop in progress.
	ErrFinalizing = errors.New("capture: previous capture still finalizing")
)
