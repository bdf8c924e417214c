package pptx

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	contentTypesPart = "[Content_Types].xml"

	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsDrawingML     = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPowerPoint14  = "http://schemas.microsoft.com/office/powerpoint/2010/main"

	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	relAudio          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/audio"
	relImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relMedia          = "http://schemas.microsoft.com/office/2007/relationships/media"

	contentTypeRels = "application/vnd.openxmlformats-package.relationships+xml"

	xmlDeclaration = `version="1.0" encoding="UTF-8" standalone="yes"`
)

// opcPackage is an Open Packaging Conventions archive held in memory.
// XML parts are parsed on first use and serialized again only when dirty.
type opcPackage struct {
	order []string
	parts map[string][]byte
	docs  map[string]*etree.Document
	dirty map[string]bool
}

type relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

func newPackage() *opcPackage {
	return &opcPackage{
		parts: make(map[string][]byte),
		docs:  make(map[string]*etree.Document),
		dirty: make(map[string]bool),
	}
}

func readPackage(name string) (*opcPackage, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	pkg := newPackage()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		pkg.setPart(f.Name, data)
	}
	return pkg, nil
}

func (p *opcPackage) has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

func (p *opcPackage) setPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
	delete(p.docs, name)
	delete(p.dirty, name)
}

// nextPartName returns prefix+N+ext for the smallest N >= 1 not in use
func (p *opcPackage) nextPartName(prefix, ext string) string {
	for n := 1; ; n++ {
		name := prefix + strconv.Itoa(n) + ext
		if !p.has(name) {
			return name
		}
	}
}

func (p *opcPackage) xml(name string) (*etree.Document, error) {
	if doc, ok := p.docs[name]; ok {
		return doc, nil
	}
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s: %w", name, fs.ErrNotExist)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse part %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse part %s: no root element", name)
	}
	p.docs[name] = doc
	return doc, nil
}

// createXML adds a new XML part with an empty root element
func (p *opcPackage) createXML(name, rootTag, namespace string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	root := doc.CreateElement(rootTag)
	root.CreateAttr("xmlns", namespace)

	p.setPart(name, nil)
	p.docs[name] = doc
	p.dirty[name] = true
	return doc
}

func (p *opcPackage) markDirty(name string) {
	p.dirty[name] = true
}

// flush serializes every modified XML part back into its bytes
func (p *opcPackage) flush() error {
	for name := range p.dirty {
		data, err := p.docs[name].WriteToBytes()
		if err != nil {
			return fmt.Errorf("serialize part %s: %w", name, err)
		}
		p.parts[name] = data
	}
	p.dirty = make(map[string]bool)
	return nil
}

// writeTo writes the package as a zip archive, content types first
func (p *opcPackage) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	names := make([]string, 0, len(p.order))
	if p.has(contentTypesPart) {
		names = append(names, contentTypesPart)
	}
	for _, name := range p.order {
		if name != contentTypesPart {
			names = append(names, name)
		}
	}

	for _, name := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

// relsPartName returns the relationships part for a source part; the
// package itself is the empty name.
func relsPartName(source string) string {
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget turns a relationship target into a part name
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}

// relativeTarget returns the target of to as seen from the source part
func relativeTarget(source, to string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(source)), filepath.FromSlash(to))
	if err != nil {
		return "/" + to
	}
	return filepath.ToSlash(rel)
}

func (p *opcPackage) relationships(source string) ([]relationship, error) {
	name := relsPartName(source)
	if !p.has(name) {
		return nil, nil
	}
	doc, err := p.xml(name)
	if err != nil {
		return nil, err
	}

	var rels []relationship
	for _, el := range doc.Root().SelectElements("Relationship") {
		rels = append(rels, relationship{
			ID:         el.SelectAttrValue("Id", ""),
			Type:       el.SelectAttrValue("Type", ""),
			Target:     el.SelectAttrValue("Target", ""),
			TargetMode: el.SelectAttrValue("TargetMode", ""),
		})
	}
	return rels, nil
}

// addRelationship appends a relationship to the source part and returns its ID
func (p *opcPackage) addRelationship(source, relType, target string) (string, error) {
	name := relsPartName(source)

	var doc *etree.Document
	if p.has(name) {
		var err error
		if doc, err = p.xml(name); err != nil {
			return "", err
		}
	} else {
		doc = p.createXML(name, "Relationships", nsRelationships)
		if err := p.ensureDefaultContentType("rels", contentTypeRels); err != nil {
			return "", err
		}
	}

	root := doc.Root()
	maxID := 0
	for _, el := range root.SelectElements("Relationship") {
		id := el.SelectAttrValue("Id", "")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}

	id := "rId" + strconv.Itoa(maxID+1)
	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	p.markDirty(name)
	return id, nil
}

// ensureDefaultContentType registers a content type for a file extension
func (p *opcPackage) ensureDefaultContentType(ext, contentType string) error {
	doc, err := p.xml(contentTypesPart)
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, el := range root.SelectElements("Default") {
		if strings.EqualFold(el.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}

	def := etree.NewElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", contentType)
	if first := root.SelectElement("Override"); first != nil {
		root.InsertChildAt(first.Index(), def)
	} else {
		root.AddChild(def)
	}
	p.markDirty(contentTypesPart)
	return nil
}
