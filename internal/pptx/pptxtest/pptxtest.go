// Package pptxtest writes small presentation packages for tests.
package pptxtest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"testing"
)

const namespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Slide describes one fixture slide
type Slide struct {
	Notes    string // one paragraph per line
	NoNotes  bool   // omit the notes slide entirely
	Animated bool   // include an existing click animation and an extLst
	TreeExt  bool   // end the shape tree with an extLst
}

// WriteNotes writes a presentation with one slide per notes string
func WriteNotes(tb testing.TB, path string, notes ...string) {
	tb.Helper()
	slides := make([]Slide, len(notes))
	for i, n := range notes {
		slides[i] = Slide{Notes: n}
	}
	Write(tb, path, slides...)
}

// Write writes a minimal presentation package to path
func Write(tb testing.TB, path string, slides ...Slide) {
	tb.Helper()

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, part := range parts(slides) {
		w, err := zw.Create(part.name)
		if err != nil {
			tb.Fatalf("create fixture part %s: %v", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			tb.Fatalf("write fixture part %s: %v", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close fixture: %v", err)
	}
}

type part struct {
	name string
	body string
}

func parts(slides []Slide) []part {
	var overrides, sldIDs, presRels strings.Builder
	var out []part

	overrides.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)

	for i, s := range slides {
		n := i + 1
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, n)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, n, n)
		fmt.Fprintf(&overrides, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, n)

		out = append(out, part{fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(n, s)})
		if s.NoNotes {
			continue
		}
		fmt.Fprintf(&overrides, `<Override PartName="/ppt/notesSlides/notesSlide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>`, n)
		out = append(out,
			part{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), rels(fmt.Sprintf(
				`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide%d.xml"/>`, n))},
			part{fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), notesXML(s.Notes)},
			part{fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", n), rels(fmt.Sprintf(
				`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="../slides/slide%d.xml"/>`, n))},
		)
	}

	head := []part{
		{"[Content_Types].xml", header +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			overrides.String() + `</Types>`},
		{"_rels/.rels", rels(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>`)},
		{"ppt/presentation.xml", header + `<p:presentation ` + namespaces + `>` +
			`<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>` +
			`<p:sldSz cx="9144000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>`},
		{"ppt/_rels/presentation.xml.rels", rels(presRels.String())},
	}
	return append(head, out...)
}

func rels(body string) string {
	return header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + body + `</Relationships>`
}

const groupProps = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`

func slideXML(n int, s Slide) string {
	var b strings.Builder
	b.WriteString(header + `<p:sld ` + namespaces + `><p:cSld><p:spTree>` + groupProps)
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>`+
		`<p:txBody><a:bodyPr/><a:p><a:r><a:t>Slide %d</a:t></a:r></a:p></p:txBody></p:sp>`, n)
	if s.TreeExt {
		b.WriteString(`<p:extLst><p:ext uri="{D42A27DB-BD31-4B8C-83A1-F6EECF244321}"/></p:extLst>`)
	}
	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	if s.Animated {
		b.WriteString(`<p:timing><p:tnLst><p:par><p:cTn id="1" dur="indefinite" restart="never" nodeType="tmRoot"><p:childTnLst>` +
			`<p:seq concurrent="1" nextAc="seek"><p:cTn id="2" dur="indefinite" nodeType="mainSeq"><p:childTnLst>` +
			`<p:par><p:cTn id="3" fill="hold"><p:stCondLst><p:cond delay="indefinite"/></p:stCondLst><p:childTnLst>` +
			`<p:par><p:cTn id="4" fill="hold"><p:stCondLst><p:cond delay="0"/></p:stCondLst><p:childTnLst>` +
			`<p:par><p:cTn id="5" presetID="10" presetClass="entr" presetSubtype="0" fill="hold" nodeType="clickEffect">` +
			`<p:stCondLst><p:cond delay="0"/></p:stCondLst><p:childTnLst>` +
			`<p:animEffect transition="in" filter="fade"><p:cBhvr><p:cTn id="6" dur="500"/><p:tgtEl><p:spTgt spid="2"/></p:tgtEl></p:cBhvr></p:animEffect>` +
			`</p:childTnLst></p:cTn></p:par></p:childTnLst></p:cTn></p:par></p:childTnLst></p:cTn></p:par>` +
			`</p:childTnLst></p:cTn></p:seq></p:childTnLst></p:cTn></p:par></p:tnLst></p:timing>` +
			`<p:extLst><p:ext uri="{BB962C8B-B14F-4D97-AF65-F5344CB8AC3E}"/></p:extLst>`)
	}
	b.WriteString(`</p:sld>`)
	return b.String()
}

func notesXML(notes string) string {
	var b strings.Builder
	b.WriteString(header + `<p:notes ` + namespaces + `><p:cSld><p:spTree>` + groupProps)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>`)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>`)
	b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, line := range strings.Split(notes, "\n") {
		if line == "" {
			b.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
			continue
		}
		b.WriteString(`<a:p><a:r><a:rPr lang="en-US"/><a:t>`)
		xml.EscapeText(&b, []byte(line))
		b.WriteString(`</a:t></a:r></a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:notes>`)
	return b.String()
}
