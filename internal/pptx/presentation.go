// Package pptx reads and writes PowerPoint (Office Open XML) presentations:
// the ordered slides, their speaker notes, and embedded narration audio.
package pptx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Presentation is a presentation package loaded into memory
type Presentation struct {
	path   string
	pkg    *opcPackage
	slides []*Slide
	poster string
	closed bool
}

// Slide is one slide of a Presentation, in presentation order
type Slide struct {
	pres  *Presentation
	index int
	part  string
	notes string
}

// Open loads the presentation at path. Every failure is a *LoadError.
func Open(path string) (*Presentation, error) {
	pkg, err := readPackage(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if !pkg.has(contentTypesPart) {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("missing %s: %w", contentTypesPart, ErrNotPresentation)}
	}

	main, err := mainDocument(pkg)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	pres := &Presentation{path: path, pkg: pkg}
	if err := pres.loadSlides(main); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return pres, nil
}

// mainDocument finds the presentation part through the package relationships
func mainDocument(pkg *opcPackage) (string, error) {
	rels, err := pkg.relationships("")
	if err != nil {
		return "", err
	}

	name := "ppt/presentation.xml"
	for _, rel := range rels {
		if rel.Type == relOfficeDocument {
			name = resolveTarget("", rel.Target)
			break
		}
	}
	if !pkg.has(name) {
		return "", fmt.Errorf("missing %s: %w", name, ErrNotPresentation)
	}

	doc, err := pkg.xml(name)
	if err != nil {
		return "", err
	}
	if doc.Root().Tag != "presentation" {
		return "", fmt.Errorf("%s has root <%s>: %w", name, doc.Root().FullTag(), ErrNotPresentation)
	}
	return name, nil
}

func (p *Presentation) loadSlides(main string) error {
	doc, err := p.pkg.xml(main)
	if err != nil {
		return err
	}
	rels, err := p.pkg.relationships(main)
	if err != nil {
		return err
	}
	targets := make(map[string]string, len(rels))
	for _, rel := range rels {
		targets[rel.ID] = rel.Target
	}

	for i, sldID := range doc.Root().FindElements("p:sldIdLst/p:sldId") {
		rid := sldID.SelectAttrValue("r:id", "")
		target, ok := targets[rid]
		if !ok {
			return fmt.Errorf("slide %d: relationship %q not found", i, rid)
		}
		part := resolveTarget(main, target)
		if !p.pkg.has(part) {
			return fmt.Errorf("slide %d: missing part %s", i, part)
		}
		if _, err := p.pkg.xml(part); err != nil {
			return fmt.Errorf("slide %d: %w", i, err)
		}

		notes, err := p.readNotes(part)
		if err != nil {
			return fmt.Errorf("slide %d notes: %w", i, err)
		}
		p.slides = append(p.slides, &Slide{pres: p, index: i, part: part, notes: notes})
	}
	return nil
}

// Path returns the file the presentation was loaded from
func (p *Presentation) Path() string {
	return p.path
}

// Slides returns the slides in presentation order
func (p *Presentation) Slides() []*Slide {
	return p.slides
}

// SlideCount returns the number of slides
func (p *Presentation) SlideCount() int {
	return len(p.slides)
}

// rawPart returns the bytes of a package part as last loaded or appended.
// XML parts modified since loading are returned as of the last Save.
func (p *Presentation) rawPart(name string) ([]byte, bool) {
	if p.closed {
		return nil, false
	}
	data, ok := p.pkg.parts[name]
	return data, ok
}

// Save writes the presentation to path as a .pptx package. The file is
// written to a temporary name in the same directory and renamed into place,
// so a failed save never leaves a partial file at path. Every failure is a
// *SaveError.
func (p *Presentation) Save(path string) error {
	if p.closed {
		return &SaveError{Path: path, Err: ErrClosed}
	}
	if err := p.pkg.flush(); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, p.pkg.writeTo); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	return nil
}

// Close releases the in-memory package. Further use of the presentation
// returns ErrClosed.
func (p *Presentation) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.pkg = nil
	return nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, filepath.Ext(base))+"-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Index returns the zero-based position of the slide
func (s *Slide) Index() int {
	return s.index
}

// PartName returns the package part holding the slide
func (s *Slide) PartName() string {
	return s.part
}

// NotesText returns the speaker notes of the slide, or "" when it has none
func (s *Slide) NotesText() string {
	return s.notes
}
