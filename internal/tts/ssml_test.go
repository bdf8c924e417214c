package tts

import (
	"strings"
	"testing"
)

func TestVoiceLocale(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"en-GB-RyanNeural", "en-GB"},
		{"de-DE-KatjaNeural", "de-DE"},
		{"fil-PH-AngeloNeural", "fil-PH"},
		{"zh-CN-shaanxi-XiaoniNeural", "zh-CN"},
		{"RyanNeural", "en-US"},
		{"EN-GB-RyanNeural", "en-US"},
		{"", "en-US"},
	}

	for _, tt := range tests {
		if got := VoiceLocale(tt.voice); got != tt.want {
			t.Errorf("VoiceLocale(%q): expected %q, got %q", tt.voice, tt.want, got)
		}
	}
}

func TestBuildSSML(t *testing.T) {
	data, err := BuildSSML(`say "hi" & <bye>`, "en-GB-RyanNeural")
	if err != nil {
		t.Fatalf("BuildSSML failed: %v", err)
	}
	s := string(data)

	for _, want := range []string{
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-GB">`,
		`<voice name="en-GB-RyanNeural">`,
		`&amp;`,
		`&lt;bye&gt;`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected SSML to contain %q, got %s", want, s)
		}
	}
	if strings.Contains(s, "<bye>") {
		t.Error("Expected markup in text to be escaped")
	}
}
