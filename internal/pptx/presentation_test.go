package pptx

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexiqai/deck-narrator/internal/pptx/pptxtest"
)

func TestOpen_SlidesAndNotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	pptxtest.Write(t, path,
		pptxtest.Slide{Notes: "Welcome to the talk."},
		pptxtest.Slide{Notes: "First line\nSecond line & more"},
		pptxtest.Slide{Notes: ""},
		pptxtest.Slide{NoNotes: true},
	)

	pres, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer pres.Close()

	if pres.SlideCount() != 4 {
		t.Fatalf("Expected 4 slides, got %d", pres.SlideCount())
	}

	want := []string{"Welcome to the talk.", "First line\nSecond line & more", "", ""}
	for i, slide := range pres.Slides() {
		if slide.Index() != i {
			t.Errorf("Expected slide index %d, got %d", i, slide.Index())
		}
		if slide.NotesText() != want[i] {
			t.Errorf("Slide %d: expected notes %q, got %q", i, want[i], slide.NotesText())
		}
	}
	if pres.Slides()[1].PartName() != "ppt/slides/slide2.xml" {
		t.Errorf("Unexpected part name %s", pres.Slides()[1].PartName())
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pptx")

	_, err := Open(path)
	le, ok := AsLoadError(err)
	if !ok {
		t.Fatalf("Expected *LoadError, got %v", err)
	}
	if le.Path != path {
		t.Errorf("Expected path %s, got %s", path, le.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist in chain, got %v", err)
	}
}

func TestOpen_NotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("Expected error for non-zip file")
	} else if _, ok := AsLoadError(err); !ok {
		t.Errorf("Expected *LoadError, got %T", err)
	}
}

func TestOpen_ZipWithoutPresentation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("hello"))
	zw.Close()
	f.Close()

	_, err = Open(path)
	if !errors.Is(err, ErrNotPresentation) {
		t.Errorf("Expected ErrNotPresentation, got %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	out := filepath.Join(dir, "out.pptx")
	pptxtest.WriteNotes(t, in, "one", "two", "three")

	pres, err := Open(in)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := pres.Save(out); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	pres.Close()

	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("Open saved file failed: %v", err)
	}
	defer reopened.Close()

	if reopened.SlideCount() != 3 {
		t.Fatalf("Expected 3 slides, got %d", reopened.SlideCount())
	}
	for i, want := range []string{"one", "two", "three"} {
		if got := reopened.Slides()[i].NotesText(); got != want {
			t.Errorf("Slide %d: expected notes %q, got %q", i, want, got)
		}
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if zr.File[0].Name != contentTypesPart {
		t.Errorf("Expected %s as first entry, got %s", contentTypesPart, zr.File[0].Name)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("Expected only in.pptx and out.pptx in %s, got %d entries", dir, len(entries))
	}
}

func TestSave_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pptx")
	pptxtest.WriteNotes(t, in, "one")

	pres, err := Open(in)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer pres.Close()

	out := filepath.Join(dir, "missing", "out.pptx")
	err = pres.Save(out)
	se, ok := AsSaveError(err)
	if !ok {
		t.Fatalf("Expected *SaveError, got %v", err)
	}
	if se.Path != out {
		t.Errorf("Expected path %s, got %s", out, se.Path)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("Expected no output file")
	}
}

func TestClose(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pptx")
	pptxtest.WriteNotes(t, in, "one")

	pres, err := Open(in)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	slide := pres.Slides()[0]

	if err := pres.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := pres.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}

	if err := pres.Save(filepath.Join(t.TempDir(), "out.pptx")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Save, got %v", err)
	}
	if _, err := pres.AppendAudio(slide, "clip.wav", AudioOptions{Volume: VolumeLoud}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from AppendAudio, got %v", err)
	}
	if _, err := slide.MediaShapes(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from MediaShapes, got %v", err)
	}
}

func TestTargets(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
		{"ppt/presentation.xml", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"ppt/slides/slide1.xml", "../media/media1.wav", "ppt/media/media1.wav"},
		{"ppt/slides/slide1.xml", "/ppt/media/media1.wav", "ppt/media/media1.wav"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.source, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
		}
	}

	if got := relativeTarget("ppt/slides/slide1.xml", "ppt/media/media1.wav"); got != "../media/media1.wav" {
		t.Errorf("Unexpected relative target %q", got)
	}
	if got := relsPartName(""); got != "_rels/.rels" {
		t.Errorf("Unexpected package rels name %q", got)
	}
	if got := relsPartName("ppt/slides/slide1.xml"); got != "ppt/slides/_rels/slide1.xml.rels" {
		t.Errorf("Unexpected slide rels name %q", got)
	}
}
