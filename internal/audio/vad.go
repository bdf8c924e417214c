package audio

import "time"

// VADConfig holds configuration for voice activity detection over a clip
type VADConfig struct {
	EnergyThreshold float64       // frame RMS above which a frame counts as speech
	FrameDuration   time.Duration // analysis window
}

// DefaultVADConfig returns the configuration used when inspecting narration clips
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 300.0,
		FrameDuration:   20 * time.Millisecond,
	}
}

// SpeechSpan is the part of a clip between the first and the last speech frame
type SpeechSpan struct {
	Start        time.Duration
	End          time.Duration
	Frames       int
	SpeechFrames int
}

// Detected reports whether any frame held speech
func (s SpeechSpan) Detected() bool {
	return s.SpeechFrames > 0
}

// Duration returns the length of the span, leading and trailing silence excluded
func (s SpeechSpan) Duration() time.Duration {
	return s.End - s.Start
}

// DetectSpeech scans interleaved 16-bit samples frame by frame and returns the
// span holding speech
func DetectSpeech(samples []int16, sampleRate, channels int, cfg VADConfig) SpeechSpan {
	var span SpeechSpan
	if sampleRate <= 0 || channels <= 0 || cfg.FrameDuration <= 0 {
		return span
	}

	frameSize := int(int64(sampleRate)*int64(cfg.FrameDuration)/int64(time.Second)) * channels
	if frameSize <= 0 {
		return span
	}

	first, last := -1, -1
	for off := 0; off < len(samples); off += frameSize {
		end := off + frameSize
		if end > len(samples) {
			end = len(samples)
		}

		if CalculateRMS(samples[off:end]) > cfg.EnergyThreshold {
			if first < 0 {
				first = span.Frames
			}
			last = span.Frames
			span.SpeechFrames++
		}
		span.Frames++
	}

	if first < 0 {
		return span
	}

	total := time.Duration(len(samples)/channels) * time.Second / time.Duration(sampleRate)
	span.Start = time.Duration(first) * cfg.FrameDuration
	span.End = time.Duration(last+1) * cfg.FrameDuration
	if span.End > total {
		span.End = total
	}
	return span
}
