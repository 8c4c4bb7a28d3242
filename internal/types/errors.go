package types

import "errors"

var (
	// ErrFile means a path is missing, unreadable or not a regular file.
	ErrFile = errors.New("file error")
	// ErrDecode means the file is not an image in a supported format.
	ErrDecode = errors.New("decode error")
	// ErrModel means the detection model selector is invalid.
	ErrModel = errors.New("model error")
	// ErrEncoding means no encoding could be computed for a face location.
	ErrEncoding = errors.New("encoding error")
	// ErrPrecondition means the known image does not contain a usable face.
	ErrPrecondition = errors.New("precondition failed")
	// ErrArgument means a flag or interactive input is missing or invalid.
	ErrArgument = errors.New("invalid argument")
)

// Describe returns a short headline for the error box printed on exit.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrFile):
		return "Unable to access input file"
	case errors.Is(err, ErrDecode):
		return "Unable to decode image"
	case errors.Is(err, ErrModel):
		return "Invalid detection model"
	case errors.Is(err, ErrEncoding):
		return "Face encoding failed"
	case errors.Is(err, ErrPrecondition):
		return "Known image is not usable"
	case errors.Is(err, ErrArgument):
		return "Configuration Error"
	}
	return "Command failed"
}
