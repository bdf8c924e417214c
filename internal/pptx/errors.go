package pptx

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPresentation is wrapped by LoadError when the file is a zip
	// archive but not a presentation package.
	ErrNotPresentation = errors.New("not a presentation package")

	// ErrClosed is returned by operations on a closed presentation.
	ErrClosed = errors.New("presentation is closed")
)

// LoadError reports a presentation that could not be opened
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load presentation %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SaveError reports a presentation that could not be written
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save presentation %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// AsLoadError extracts *LoadError from an error chain
func AsLoadError(err error) (*LoadError, bool) {
	var e *LoadError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// AsSaveError extracts *SaveError from an error chain
func AsSaveError(err error) (*SaveError, bool) {
	var e *SaveError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
