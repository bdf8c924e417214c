// Package narrator drives a narration run: load the presentation, synthesize
// each slide's notes, embed the clips and save the result.
package narrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lexiqai/deck-narrator/internal/audio"
	"github.com/lexiqai/deck-narrator/internal/observability"
	"github.com/lexiqai/deck-narrator/internal/pptx"
	"github.com/lexiqai/deck-narrator/internal/resilience"
	"github.com/lexiqai/deck-narrator/internal/scratch"
	"github.com/lexiqai/deck-narrator/internal/tts"
	"github.com/rs/zerolog"
)

const (
	defaultScratchPrefix = "narrate"
	logTextLimit         = 80
)

// Narrator runs the narration pipeline. A Narrator is meant for one run at a time.
type Narrator struct {
	synth   tts.Synthesizer
	opts    Options
	logger  zerolog.Logger
	metrics *observability.Metrics
	breaker *resilience.CircuitBreaker

	mu    sync.RWMutex
	state State
}

// New creates a Narrator. A nil metrics gets a fresh per-run set.
func New(synth tts.Synthesizer, opts Options, logger zerolog.Logger, metrics *observability.Metrics) *Narrator {
	if opts.ScratchPrefix == "" {
		opts.ScratchPrefix = defaultScratchPrefix
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Narrator{
		synth:   synth,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		breaker: resilience.NewCircuitBreaker("speech", opts.MaxConsecutiveFailures, opts.BreakerResetTimeout),
		state:   StateIdle,
	}
}

// State returns the current pipeline state
func (n *Narrator) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Narrator) setState(s State) {
	n.mu.Lock()
	prev := n.state
	n.state = s
	n.mu.Unlock()

	n.logger.Debug().
		Str("from", prev.String()).
		Str("to", s.String()).
		Msg("state transition")
}

func (n *Narrator) fail(err error) error {
	n.setState(StateFailed)
	n.logger.Error().Err(err).Msg("narration failed")
	return err
}

// Run narrates the presentation at input and writes the result to output.
// Load, save and scratch errors are fatal; a slide whose synthesis fails is
// skipped unless Strict is set. The report is returned whenever the
// presentation was loaded, even on failure.
func (n *Narrator) Run(ctx context.Context, input, output string) (*Report, error) {
	n.breaker.Reset()

	n.logger.Info().Str("path", input).Msg("reading ppt file")
	pres, err := pptx.Open(input)
	if err != nil {
		return nil, n.fail(err)
	}
	defer pres.Close()
	n.setState(StateLoaded)

	dir, err := scratch.AcquireIn(n.opts.ScratchParent, n.opts.ScratchPrefix)
	if err != nil {
		return nil, n.fail(err)
	}
	// released again on early exits; Release is idempotent
	defer func() {
		if err := dir.Release(); err != nil {
			n.logger.Warn().Err(err).Msg("failed to remove temporary files")
		}
	}()
	n.logger.Info().Str("dir", dir.Path()).Msg("creating temporary files")

	report := &Report{
		Input:      input,
		Output:     output,
		ScratchDir: dir.Path(),
		Slides:     pres.SlideCount(),
	}
	defer n.recordBreakerStats(report)

	for _, slide := range pres.Slides() {
		if err := ctx.Err(); err != nil {
			return report, n.fail(fmt.Errorf("narration interrupted before slide %d: %w", slide.Index(), err))
		}
		if err := n.narrateSlide(ctx, pres, slide, dir, report); err != nil {
			return report, n.fail(err)
		}
	}

	n.logger.Info().Str("dir", dir.Path()).Msg("removing temporary files")
	if err := dir.Release(); err != nil {
		return report, n.fail(err)
	}

	n.setState(StateSaving)
	n.logger.Info().Str("path", output).Msg("writing ppt file")
	if err := pres.Save(output); err != nil {
		return report, n.fail(err)
	}

	n.setState(StateDone)
	n.recordBreakerStats(report)
	n.logger.Info().
		Int("slides", report.Slides).
		Int("narrated", report.Narrated).
		Int("skipped", len(report.Skipped)).
		Str("breaker", n.breaker.Name()).
		Str("breaker_state", n.breaker.GetState().String()).
		Int64("rejected", report.Rejected).
		Msg("narration complete")
	return report, nil
}

func (n *Narrator) narrateSlide(ctx context.Context, pres *pptx.Presentation, slide *pptx.Slide, dir *scratch.Dir, report *Report) error {
	index := slide.Index()
	text := slide.NotesText()
	clipPath := dir.ClipPath(index)

	n.metrics.RecordSlide()
	n.logger.Info().
		Int("slide", index).
		Str("audio_file", clipPath).
		Str("text", truncate(text, logTextLimit)).
		Msg("narrating slide")

	if !n.breaker.Allow() {
		n.skip(report, index, fmt.Sprintf("speech service disabled after %d consecutive failures", n.opts.MaxConsecutiveFailures))
		return nil
	}

	n.setState(StateSynthesizing)
	n.metrics.RecordSynthesisStart()
	result, err := n.synth.SynthesizeToFile(ctx, text, n.opts.Voice, clipPath)
	if err != nil {
		n.metrics.RecordSynthesisEnd(observability.StatusError)
		n.breaker.RecordResult(false)
		n.logger.Warn().Int("slide", index).Err(err).Msg("Speech synthesis failed")
		return n.synthesisFailed(report, &SynthesisError{Slide: index, Err: err})
	}
	if !result.Succeeded() {
		n.metrics.RecordSynthesisEnd(observability.StatusCanceled)
		n.breaker.RecordResult(false)
		return n.synthesisFailed(report, n.canceled(index, result))
	}
	n.metrics.RecordSynthesisEnd(observability.StatusSuccess)
	n.breaker.RecordResult(true)

	duration := n.inspectClip(index, clipPath)

	n.setState(StateEmbedding)
	shape, err := pres.AppendAudio(slide, clipPath, pptx.AudioOptions{
		Volume:   pptx.VolumeLoud,
		AutoPlay: true,
	})
	if err != nil {
		return fmt.Errorf("embed narration for slide %d: %w", index, err)
	}

	report.Narrated++
	n.metrics.RecordNarrated(result.AudioBytes, duration)
	n.logger.Debug().
		Int("slide", index).
		Int("shape_id", shape.ID).
		Str("media", shape.MediaPart).
		Dur("latency", result.Latency).
		Msg("narration embedded")
	return nil
}

func (n *Narrator) recordBreakerStats(report *Report) {
	_, report.SpeechRequests, report.SpeechFailures, report.Rejected = n.breaker.GetStats()
}

func (n *Narrator) canceled(index int, result *tts.Result) *SynthesisError {
	details := result.Cancellation
	if details == nil {
		details = &tts.CancellationDetails{Reason: tts.CancellationError, ErrorCode: tts.ErrorCodeRuntimeError}
	}

	n.logger.Warn().
		Int("slide", index).
		Str("reason", details.Reason.String()).
		Msg("Speech synthesis canceled")
	if details.Reason == tts.CancellationError {
		n.logger.Warn().
			Int("slide", index).
			Str("error_code", details.ErrorCode.String()).
			Str("details", details.ErrorDetails).
			Msg("Error details")
	}
	return &SynthesisError{Slide: index, Cancellation: details}
}

func (n *Narrator) synthesisFailed(report *Report, serr *SynthesisError) error {
	if n.opts.Strict {
		return serr
	}
	n.skip(report, serr.Slide, serr.Error())
	return nil
}

func (n *Narrator) skip(report *Report, index int, reason string) {
	report.Skipped = append(report.Skipped, SkippedSlide{Index: index, Reason: reason})
	n.metrics.RecordSkipped()
	n.logger.Info().Int("slide", index).Str("reason", reason).Msg("slide left without narration")
}

// inspectClip warns about clips that are not the requested format or hold
// no speech, and returns the clip duration. Inspection problems never fail a slide.
func (n *Narrator) inspectClip(index int, path string) time.Duration {
	clip, err := audio.InspectClip(path)
	if err != nil {
		n.logger.Warn().Int("slide", index).Err(err).Msg("could not inspect narration clip")
		return 0
	}

	if !clip.Matches(audio.NarrationSampleRate, audio.NarrationChannels, audio.NarrationBitsPerSample) {
		n.logger.Warn().
			Int("slide", index).
			Int("sample_rate", clip.SampleRate).
			Int("channels", clip.Channels).
			Int("bits_per_sample", clip.BitsPerSample).
			Msg("narration clip is not mono 16-bit 22.05kHz PCM")
	} else if !clip.Speech.Detected() {
		n.logger.Warn().Int("slide", index).Msg("no speech detected in narration clip")
	} else {
		n.logger.Debug().
			Int("slide", index).
			Dur("duration", clip.Duration()).
			Dur("speech", clip.Speech.Duration()).
			Dur("leading_silence", clip.Speech.Start).
			Msg("narration clip inspected")
	}
	return clip.Duration()
}

// truncate returns at most limit runes of s
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
