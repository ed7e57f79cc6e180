package pipeline

import "errors"

// NotLoadedMessage is the detail returned when the handle is NotLoaded.
const NotLoadedMessage = "Pipeline not loaded. Ensure weights are in FASHN_WEIGHTS_DIR."

// NoImageMessage is the detail returned when the runtime produced no image.
const NoImageMessage = "No image generated"

// notLoadedError signals that no pipeline is loaded so the HTTP layer can
// return 503 Service Unavailable.
type notLoadedError struct{ msg string }

func (e notLoadedError) Error() string { return e.msg }

// ErrNotLoaded is returned by the readiness accessor when the handle is NotLoaded.
var ErrNotLoaded error = notLoadedError{msg: NotLoadedMessage}

// IsNotLoaded reports whether err indicates a missing pipeline (return 503).
func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

// invalidInputError marks a client error: bad form values or undecodable images.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// InvalidInput constructs an invalidInputError.
func InvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err should be mapped to 400.
func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}

// noImageError signals that the runtime returned an empty image list.
type noImageError struct{}

func (noImageError) Error() string { return NoImageMessage }

// ErrNoImage is returned by TryOn when the result holds zero images.
var ErrNoImage error = noImageError{}

// IsNoImage reports whether err indicates an empty result (return 500).
func IsNoImage(err error) bool {
	var e noImageError
	return errors.As(err, &e)
}
