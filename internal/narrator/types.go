package narrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/lexiqai/deck-narrator/internal/tts"
)

// State is the position of a run in the narration pipeline
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateSynthesizing
	StateEmbedding
	StateSaving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateSynthesizing:
		return "synthesizing"
	case StateEmbedding:
		return "embedding"
	case StateSaving:
		return "saving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Narrator
type Options struct {
	Voice string

	// Strict fails the run on the first slide whose synthesis fails.
	// Otherwise the slide is left without narration.
	Strict bool

	// MaxConsecutiveFailures stops calling the speech service after this many
	// failures in a row; remaining slides are skipped. 0 disables the check.
	MaxConsecutiveFailures int

	// BreakerResetTimeout lets one request through an open breaker once this
	// long has passed since the last failure. 0 keeps it open for the run.
	BreakerResetTimeout time.Duration

	ScratchParent string // empty means the OS temp dir
	ScratchPrefix string // defaults to "narrate"
}

// SkippedSlide is a slide left without narration
type SkippedSlide struct {
	Index  int    `json:"index" yaml:"index"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report summarizes one run
type Report struct {
	Input      string         `json:"input" yaml:"input"`
	Output     string         `json:"output" yaml:"output"`
	ScratchDir string         `json:"scratch_dir" yaml:"scratch_dir"`
	Slides     int            `json:"slides" yaml:"slides"`
	Narrated   int            `json:"narrated" yaml:"narrated"`
	Skipped    []SkippedSlide `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Speech service calls made, failed, and refused by the open breaker
	SpeechRequests int64 `json:"speech_requests" yaml:"speech_requests"`
	SpeechFailures int64 `json:"speech_failures" yaml:"speech_failures"`
	Rejected       int64 `json:"rejected" yaml:"rejected"`
}

// SynthesisError reports a slide whose narration could not be synthesized
type SynthesisError struct {
	Slide        int
	Cancellation *tts.CancellationDetails // set when the service canceled the request
	Err          error                    // set for local failures
}

func (e *SynthesisError) Error() string {
	if e.Cancellation != nil {
		msg := fmt.Sprintf("slide %d: speech synthesis canceled: %s", e.Slide, e.Cancellation.Reason)
		if e.Cancellation.ErrorDetails != "" {
			msg += fmt.Sprintf(" (%s: %s)", e.Cancellation.ErrorCode, e.Cancellation.ErrorDetails)
		}
		return msg
	}
	return fmt.Sprintf("slide %d: speech synthesis failed: %v", e.Slide, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// AsSynthesisError extracts *SynthesisError from an error
func AsSynthesisError(err error) (*SynthesisError, bool) {
	var e *SynthesisError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
