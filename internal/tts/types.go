package tts

import (
	"context"
	"fmt"
	"time"
)

// ResultReason is the outcome of one synthesis request
type ResultReason int

const (
	ReasonSynthesizingAudioCompleted ResultReason = iota + 1
	ReasonCanceled
)

func (r ResultReason) String() string {
	switch r {
	case ReasonSynthesizingAudioCompleted:
		return "SynthesizingAudioCompleted"
	case ReasonCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ResultReason(%d)", int(r))
	}
}

// CancellationReason says why a request was canceled
type CancellationReason int

const (
	CancellationError CancellationReason = iota + 1
	CancellationEndOfStream
	CancellationCancelledByUser
)

func (r CancellationReason) String() string {
	switch r {
	case CancellationError:
		return "CancellationReason.Error"
	case CancellationEndOfStream:
		return "CancellationReason.EndOfStream"
	case CancellationCancelledByUser:
		return "CancellationReason.CancelledByUser"
	default:
		return fmt.Sprintf("CancellationReason(%d)", int(r))
	}
}

// CancellationErrorCode classifies a service-side failure
type CancellationErrorCode int

const (
	ErrorCodeNoError CancellationErrorCode = iota
	ErrorCodeAuthenticationFailure
	ErrorCodeBadRequest
	ErrorCodeTooManyRequests
	ErrorCodeForbidden
	ErrorCodeConnectionFailure
	ErrorCodeServiceTimeout
	ErrorCodeServiceError
	ErrorCodeServiceUnavailable
	ErrorCodeRuntimeError
)

var errorCodeNames = map[CancellationErrorCode]string{
	ErrorCodeNoError:               "NoError",
	ErrorCodeAuthenticationFailure: "AuthenticationFailure",
	ErrorCodeBadRequest:            "BadRequest",
	ErrorCodeTooManyRequests:       "TooManyRequests",
	ErrorCodeForbidden:             "Forbidden",
	ErrorCodeConnectionFailure:     "ConnectionFailure",
	ErrorCodeServiceTimeout:        "ServiceTimeout",
	ErrorCodeServiceError:          "ServiceError",
	ErrorCodeServiceUnavailable:    "ServiceUnavailable",
	ErrorCodeRuntimeError:          "RuntimeError",
}

func (c CancellationErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CancellationErrorCode(%d)", int(c))
}

// CancellationDetails is attached to every canceled result
type CancellationDetails struct {
	Reason       CancellationReason
	ErrorCode    CancellationErrorCode
	ErrorDetails string
}

// Result is the outcome of SynthesizeToFile
type Result struct {
	Reason       ResultReason
	AudioPath    string        // set only when audio was written
	AudioBytes   int64         // bytes written to AudioPath
	Latency      time.Duration // request start to last byte
	Cancellation *CancellationDetails
}

// Succeeded reports whether audio was written
func (r *Result) Succeeded() bool {
	return r != nil && r.Reason == ReasonSynthesizingAudioCompleted
}

// Voice is one entry of the service voice list
type Voice struct {
	Name            string `json:"Name" yaml:"name"`
	DisplayName     string `json:"DisplayName" yaml:"display_name"`
	LocalName       string `json:"LocalName" yaml:"local_name"`
	ShortName       string `json:"ShortName" yaml:"short_name"`
	Gender          string `json:"Gender" yaml:"gender"`
	Locale          string `json:"Locale" yaml:"locale"`
	LocaleName      string `json:"LocaleName" yaml:"locale_name"`
	SampleRateHertz string `json:"SampleRateHertz" yaml:"sample_rate_hertz"`
	VoiceType       string `json:"VoiceType" yaml:"voice_type"`
	Status          string `json:"Status" yaml:"status"`
}

// Synthesizer turns text into a WAV file
type Synthesizer interface {
	// SynthesizeToFile requests speech for text in the given voice and writes
	// it to path. Service failures come back as a canceled Result; the error
	// return is reserved for local failures.
	SynthesizeToFile(ctx context.Context, text, voice, path string) (*Result, error)
}

// VoiceLister lists the voices a service offers
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}
