package wallpaper

import (
	"errors"
	"fmt"
)

// ErrEmptyPool is returned when a directory source contains no image
// files. Recoverable per-output: the session keeps its last image and
// retries on the next rotation tick or config reload.
var ErrEmptyPool = errors.New("no wallpaper available")

// DecodeError wraps a failure to turn an image file into pixels.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
