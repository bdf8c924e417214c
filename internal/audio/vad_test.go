package audio

import (
	"testing"
	"time"
)

// tone returns n samples of a square wave at the given amplitude
func tone(n int, amplitude int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amplitude
		} else {
			samples[i] = -amplitude
		}
	}
	return samples
}

func TestDetectSpeech_LeadingAndTrailingSilence(t *testing.T) {
	// 8kHz: 160 samples per 20ms frame
	var samples []int16
	samples = append(samples, make([]int16, 160*5)...) // 100ms silence
	samples = append(samples, tone(160*10, 5000)...)   // 200ms speech
	samples = append(samples, make([]int16, 160*5)...) // 100ms silence

	span := DetectSpeech(samples, 8000, 1, DefaultVADConfig())
	if !span.Detected() {
		t.Fatal("Expected speech to be detected")
	}
	if span.Frames != 20 {
		t.Errorf("Expected 20 frames, got %d", span.Frames)
	}
	if span.SpeechFrames != 10 {
		t.Errorf("Expected 10 speech frames, got %d", span.SpeechFrames)
	}
	if span.Start != 100*time.Millisecond {
		t.Errorf("Expected start at 100ms, got %v", span.Start)
	}
	if span.Duration() != 200*time.Millisecond {
		t.Errorf("Expected 200ms of speech, got %v", span.Duration())
	}
}

func TestDetectSpeech_Silence(t *testing.T) {
	span := DetectSpeech(tone(160*15, 10), 8000, 1, DefaultVADConfig())
	if span.Detected() {
		t.Errorf("Expected no speech in low-energy audio, got %+v", span)
	}
	if span.Frames != 15 {
		t.Errorf("Expected 15 frames, got %d", span.Frames)
	}
}

func TestDetectSpeech_PartialLastFrame(t *testing.T) {
	// 50ms of speech at 8kHz: two full frames and half a frame
	span := DetectSpeech(tone(400, 5000), 8000, 1, DefaultVADConfig())
	if span.Frames != 3 {
		t.Errorf("Expected 3 frames, got %d", span.Frames)
	}
	if span.End != 50*time.Millisecond {
		t.Errorf("Expected end clamped to 50ms, got %v", span.End)
	}
}

func TestDetectSpeech_Threshold(t *testing.T) {
	cfg := VADConfig{EnergyThreshold: 1000, FrameDuration: 20 * time.Millisecond}
	if DetectSpeech(tone(160, 999), 8000, 1, cfg).Detected() {
		t.Error("Expected RMS below threshold to be silence")
	}
	if !DetectSpeech(tone(160, 1001), 8000, 1, cfg).Detected() {
		t.Error("Expected RMS above threshold to be speech")
	}
}

func TestDetectSpeech_InvalidInput(t *testing.T) {
	if span := DetectSpeech(tone(100, 5000), 0, 1, DefaultVADConfig()); span.Frames != 0 {
		t.Errorf("Expected empty span for zero sample rate, got %+v", span)
	}
	if span := DetectSpeech(nil, 8000, 1, DefaultVADConfig()); span.Detected() {
		t.Errorf("Expected empty span for no samples, got %+v", span)
	}
}
