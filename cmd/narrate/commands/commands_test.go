package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexiqai/deck-narrator/internal/audio"
	"github.com/lexiqai/deck-narrator/internal/config"
	"github.com/lexiqai/deck-narrator/internal/narrator"
	"github.com/lexiqai/deck-narrator/internal/pptx"
	"github.com/lexiqai/deck-narrator/internal/pptx/pptxtest"
	"github.com/lexiqai/deck-narrator/internal/tts"
)

const voiceList = `[
	{"ShortName":"en-GB-RyanNeural","Gender":"Male","Locale":"en-GB","VoiceType":"Neural"},
	{"ShortName":"en-GB-SoniaNeural","Gender":"Female","Locale":"en-GB","VoiceType":"Neural"},
	{"ShortName":"de-DE-KatjaNeural","Gender":"Female","Locale":"de-DE","VoiceType":"Neural"}
]`

type speechService struct {
	key   string
	calls int
}

// startSpeechService serves synthesis and the voice list, and points the
// configuration at it through the environment
func startSpeechService(t *testing.T, key string) *speechService {
	t.Helper()
	svc := &speechService{key: key}
	wav := audio.EncodeWAV(make([]int16, 441), audio.NarrationSampleRate, audio.NarrationChannels)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != svc.key {
			http.Error(w, "invalid subscription key", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/cognitiveservices/v1":
			svc.calls++
			w.Write(wav)
		case "/cognitiveservices/voices/list":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, voiceList)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("AZURE_SPEECH_ENDPOINT", srv.URL)
	t.Setenv("AZURE_SPEECH_KEY", "")
	t.Setenv("NARRATE_SCRATCH_DIR", t.TempDir())
	return svc
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "disabled"))
	err := cmd.Execute()
	return out.String(), err
}

func TestNarrate_WritesDeck(t *testing.T) {
	svc := startSpeechService(t, "test-key")
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	out := filepath.Join(dir, "out.pptx")
	metricsFile := filepath.Join(dir, "narrate.prom")
	pptxtest.WriteNotes(t, in, "Hello there.", "General Kenobi.")

	stdout, err := runCLI(t, "-s", "test-key", "-i", in, "-o", out, "--metrics-file", metricsFile)
	if err != nil {
		t.Fatalf("narrate failed: %v", err)
	}
	if !strings.Contains(stdout, "narrated 2 of 2 slides") {
		t.Errorf("Expected summary, got %q", stdout)
	}
	if svc.calls != 2 {
		t.Errorf("Expected 2 synthesis calls, got %d", svc.calls)
	}

	pres, err := pptx.Open(out)
	if err != nil {
		t.Fatalf("Open output failed: %v", err)
	}
	defer pres.Close()
	for _, slide := range pres.Slides() {
		shapes, err := slide.MediaShapes()
		if err != nil {
			t.Fatal(err)
		}
		if len(shapes) != 1 {
			t.Errorf("slide %d: expected 1 media shape, got %d", slide.Index(), len(shapes))
		}
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("Expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), "narrate_slides_narrated_total 2") {
		t.Errorf("Expected narrated counter in metrics, got:\n%s", data)
	}

	entries, err := os.ReadDir(os.Getenv("NARRATE_SCRATCH_DIR"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected scratch space removed, found %d entries", len(entries))
	}
}

func TestNarrate_KeyFromEnvironment(t *testing.T) {
	svc := startSpeechService(t, "env-key")
	t.Setenv("AZURE_SPEECH_KEY", "env-key")
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	pptxtest.WriteNotes(t, in, "one")

	if _, err := runCLI(t, "-i", in, "-o", filepath.Join(dir, "out.pptx")); err != nil {
		t.Fatalf("narrate failed: %v", err)
	}
	if svc.calls != 1 {
		t.Errorf("Expected 1 synthesis call, got %d", svc.calls)
	}
}

func TestNarrate_MissingKey(t *testing.T) {
	startSpeechService(t, "test-key")

	_, err := runCLI(t, "-i", "whatever.pptx")
	if !errors.Is(err, config.ErrMissingSubscriptionKey) {
		t.Errorf("Expected ErrMissingSubscriptionKey, got %v", err)
	}
}

func TestNarrate_MissingInput(t *testing.T) {
	svc := startSpeechService(t, "test-key")
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pptx")

	_, err := runCLI(t, "-s", "test-key", "-i", filepath.Join(dir, "missing.pptx"), "-o", out)
	if _, ok := pptx.AsLoadError(err); !ok {
		t.Fatalf("Expected LoadError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "cannot read input presentation") {
		t.Errorf("Expected input stage in message, got %q", err.Error())
	}
	if svc.calls != 0 {
		t.Errorf("Expected no synthesis calls, got %d", svc.calls)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("Expected no output file")
	}
}

func TestNarrate_RejectedKeySkipsSlides(t *testing.T) {
	startSpeechService(t, "right-key")
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	out := filepath.Join(dir, "out.pptx")
	pptxtest.WriteNotes(t, in, "one", "two")

	stdout, err := runCLI(t, "-s", "wrong-key", "-i", in, "-o", out)
	if err != nil {
		t.Fatalf("Expected run to complete, got %v", err)
	}
	if !strings.Contains(stdout, "narrated 0 of 2 slides") || !strings.Contains(stdout, "AuthenticationFailure") {
		t.Errorf("Unexpected output %q", stdout)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected output file, got %v", err)
	}

	_, err = runCLI(t, "-s", "wrong-key", "-i", in, "-o", out, "--strict")
	if err == nil || !strings.Contains(err.Error(), "slide 0") {
		t.Errorf("Expected strict run to fail on slide 0, got %v", err)
	}
	if _, ok := narrator.AsSynthesisError(err); !ok {
		t.Errorf("Expected SynthesisError, got %v", err)
	}
	if err != nil && !strings.HasPrefix(err.Error(), "narration stopped at slide 0 (--strict)") {
		t.Errorf("Expected strict stage in message, got %q", err.Error())
	}
}

func TestNarrate_UnwritableOutput(t *testing.T) {
	startSpeechService(t, "test-key")
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	pptxtest.WriteNotes(t, in, "one")
	out := filepath.Join(dir, "no-such-dir", "out.pptx")

	_, err := runCLI(t, "-s", "test-key", "-i", in, "-o", out)
	if _, ok := pptx.AsSaveError(err); !ok {
		t.Fatalf("Expected SaveError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "cannot write output presentation "+out) {
		t.Errorf("Expected output stage in message, got %q", err.Error())
	}
}

func TestNarrate_BreakerStopsCalls(t *testing.T) {
	startSpeechService(t, "right-key")
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	pptxtest.WriteNotes(t, in, "one", "two", "three")

	stdout, err := runCLI(t, "-s", "wrong-key", "-i", in, "-o", filepath.Join(dir, "out.pptx"),
		"--max-consecutive-failures", "1", "--breaker-reset", "3600")
	if err != nil {
		t.Fatalf("Expected run to complete, got %v", err)
	}
	if !strings.Contains(stdout, "2 requests not sent after 1 consecutive failures") {
		t.Errorf("Expected rejected requests in summary, got %q", stdout)
	}
}

func TestVoices(t *testing.T) {
	startSpeechService(t, "test-key")

	stdout, err := runCLI(t, "voices", "-s", "test-key", "--locale", "en-gb")
	if err != nil {
		t.Fatalf("voices failed: %v", err)
	}
	if !strings.Contains(stdout, "short_name: en-GB-RyanNeural") || !strings.Contains(stdout, "short_name: en-GB-SoniaNeural") {
		t.Errorf("Expected en-GB voices, got:\n%s", stdout)
	}
	if strings.Contains(stdout, "de-DE") {
		t.Errorf("Expected locale filter, got:\n%s", stdout)
	}

	stdout, err = runCLI(t, "voices", "-s", "test-key", "--json")
	if err != nil {
		t.Fatalf("voices --json failed: %v", err)
	}
	var voices []map[string]any
	if err := json.Unmarshal([]byte(stdout), &voices); err != nil {
		t.Fatalf("Expected JSON output, got %v:\n%s", err, stdout)
	}
	if len(voices) != 3 || voices[0]["ShortName"] != "de-DE-KatjaNeural" {
		t.Errorf("Expected 3 voices sorted by name, got %v", voices)
	}
}

func TestVoices_MissingKey(t *testing.T) {
	startSpeechService(t, "test-key")

	_, err := runCLI(t, "voices")
	if !errors.Is(err, config.ErrMissingSubscriptionKey) {
		t.Errorf("Expected ErrMissingSubscriptionKey, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	startSpeechService(t, "test-key")
	in := filepath.Join(t.TempDir(), "in.pptx")
	pptxtest.WriteNotes(t, in, "one")

	stdout, err := runCLI(t, "check", "-s", "test-key", "-i", in)
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "status: ready") {
		t.Errorf("Expected ready status, got:\n%s", stdout)
	}

	stdout, err = runCLI(t, "check", "-s", "test-key", "-i", in, "-v", "xx-XX-NobodyNeural", "--json")
	if err == nil {
		t.Fatal("Expected check to fail for an unknown voice")
	}
	var status struct {
		Status       string `json:"status"`
		Dependencies map[string]struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(stdout), &status); err != nil {
		t.Fatalf("Expected JSON output, got %v:\n%s", err, stdout)
	}
	if status.Status != "not_ready" {
		t.Errorf("Expected not_ready, got %s", status.Status)
	}
	if status.Dependencies["voice"].Status != "unhealthy" || status.Dependencies["presentation"].Status != "healthy" {
		t.Errorf("Unexpected dependency report %+v", status.Dependencies)
	}
}

func TestCheck_RejectedKey(t *testing.T) {
	startSpeechService(t, "right-key")
	in := filepath.Join(t.TempDir(), "in.pptx")
	pptxtest.WriteNotes(t, in, "one")

	stdout, err := runCLI(t, "check", "-s", "wrong-key", "-i", in, "--region", "westeurope")
	if err == nil {
		t.Fatal("Expected check to fail for a rejected key")
	}
	if !strings.Contains(stdout, "subscription key rejected for region westeurope") {
		t.Errorf("Expected key hint, got:\n%s", stdout)
	}
}

func TestVoices_RejectedKey(t *testing.T) {
	startSpeechService(t, "right-key")

	_, err := runCLI(t, "voices", "-s", "wrong-key")
	apiErr, ok := tts.AsAPIError(err)
	if !ok || !apiErr.IsInvalidKey() {
		t.Fatalf("Expected invalid key APIError, got %v", err)
	}
	if !strings.Contains(err.Error(), "subscription key rejected") {
		t.Errorf("Expected key hint, got %q", err.Error())
	}
}

func TestFilterVoices(t *testing.T) {
	voices := []tts.Voice{
		{ShortName: "en-US-JennyNeural", Locale: "en-US"},
		{ShortName: "en-GB-SoniaNeural", Locale: "en-GB"},
		{ShortName: "en-GB-RyanNeural", Locale: "en-GB"},
	}

	got := filterVoices(voices, "EN-GB")
	if len(got) != 2 || got[0].ShortName != "en-GB-RyanNeural" {
		t.Errorf("Expected 2 en-GB voices sorted by name, got %v", got)
	}
	if got := filterVoices(voices, ""); len(got) != 3 {
		t.Errorf("Expected all voices without a locale, got %d", len(got))
	}
}
