package pptx

import (
	"strings"

	"github.com/beevik/etree"
)

// readNotes returns the body text of the notes slide linked from a slide part
func (p *Presentation) readNotes(slidePart string) (string, error) {
	rels, err := p.pkg.relationships(slidePart)
	if err != nil {
		return "", err
	}
	for _, rel := range rels {
		if rel.Type != relNotesSlide {
			continue
		}
		doc, err := p.pkg.xml(resolveTarget(slidePart, rel.Target))
		if err != nil {
			return "", err
		}
		return notesText(doc.Root()), nil
	}
	return "", nil
}

// notesText extracts the text of the body placeholder of a notes slide
func notesText(notes *etree.Element) string {
	for _, sp := range notes.FindElements(".//p:sp") {
		ph := sp.FindElement("p:nvSpPr/p:nvPr/p:ph")
		if ph == nil || ph.SelectAttrValue("type", "") != "body" {
			continue
		}
		if body := sp.SelectElement("p:txBody"); body != nil {
			return textBodyText(body)
		}
		return ""
	}
	return ""
}

// textBodyText joins paragraphs with newlines; line breaks inside a
// paragraph also become newlines.
func textBodyText(body *etree.Element) string {
	var paragraphs []string
	for _, para := range body.SelectElements("a:p") {
		var b strings.Builder
		for _, child := range para.ChildElements() {
			switch child.Tag {
			case "r", "fld":
				if t := child.SelectElement("a:t"); t != nil {
					b.WriteString(t.Text())
				}
			case "br":
				b.WriteString("\n")
			}
		}
		paragraphs = append(paragraphs, b.String())
	}
	return strings.Join(paragraphs, "\n")
}
