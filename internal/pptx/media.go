package pptx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Volume is a media playback volume in thousandths of a percent
type Volume int

const (
	VolumeMute   Volume = 0
	VolumeLow    Volume = 25000
	VolumeMedium Volume = 50000
	VolumeLoud   Volume = 100000

	// DefaultVolume applies when a shape has no media timing node
	DefaultVolume = VolumeMedium
)

const (
	mediaExtURI     = "{DAA4B4D4-6D71-4841-9C94-3DE7FCFB9230}"
	playFromStart   = "playFrom(0.0)"
	audioPartPrefix = "ppt/media/media"
	imagePartPrefix = "ppt/media/image"
)

// AudioOptions controls how a narration clip is placed on a slide
type AudioOptions struct {
	Name     string // shape name; defaults to "Narration <slide number>"
	Volume   Volume
	AutoPlay bool // start playback when the slide is shown
}

// MediaShape is an audio shape found on a slide
type MediaShape struct {
	ID        int
	Name      string
	MediaPart string
	Volume    Volume
	AutoPlay  bool
	Width     int64 // EMU
	Height    int64 // EMU
}

// AppendAudio copies the WAV clip at clipPath into the package and adds a
// zero-size audio shape at the slide origin that plays it. The clip file is
// not referenced after AppendAudio returns.
func (p *Presentation) AppendAudio(slide *Slide, clipPath string, opts AudioOptions) (*MediaShape, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if slide == nil || slide.pres != p {
		return nil, errors.New("slide does not belong to this presentation")
	}
	if opts.Volume < VolumeMute || opts.Volume > VolumeLoud {
		return nil, fmt.Errorf("volume %d out of range [0, %d]", opts.Volume, VolumeLoud)
	}
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("Narration %d", slide.index+1)
	}

	data, err := os.ReadFile(clipPath)
	if err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}

	doc, err := p.pkg.xml(slide.part)
	if err != nil {
		return nil, err
	}
	sld := doc.Root()
	spTree := sld.FindElement("p:cSld/p:spTree")
	if spTree == nil {
		return nil, fmt.Errorf("%s has no shape tree", slide.part)
	}

	mediaPart := p.pkg.nextPartName(audioPartPrefix, ".wav")
	p.pkg.setPart(mediaPart, data)
	if err := p.pkg.ensureDefaultContentType("wav", "audio/wav"); err != nil {
		return nil, err
	}
	poster, err := p.posterPart()
	if err != nil {
		return nil, err
	}

	target := relativeTarget(slide.part, mediaPart)
	audioRID, err := p.pkg.addRelationship(slide.part, relAudio, target)
	if err != nil {
		return nil, err
	}
	mediaRID, err := p.pkg.addRelationship(slide.part, relMedia, target)
	if err != nil {
		return nil, err
	}
	imageRID, err := p.pkg.addRelationship(slide.part, relImage, relativeTarget(slide.part, poster))
	if err != nil {
		return nil, err
	}

	ensureNamespace(sld, "a", nsDrawingML)
	ensureNamespace(sld, "r", nsOfficeRels)

	id := maxShapeID(sld) + 1
	pic := audioPicture(id, opts.Name, audioRID, mediaRID, imageRID)
	if ext := spTree.SelectElement("p:extLst"); ext != nil {
		spTree.InsertChildAt(ext.Index(), pic)
	} else {
		spTree.AddChild(pic)
	}
	addMediaTiming(sld, id, opts.Volume, opts.AutoPlay)
	p.pkg.markDirty(slide.part)

	return &MediaShape{
		ID:        id,
		Name:      opts.Name,
		MediaPart: mediaPart,
		Volume:    opts.Volume,
		AutoPlay:  opts.AutoPlay,
	}, nil
}

// posterPart returns the shared placeholder image shown for audio shapes
func (p *Presentation) posterPart() (string, error) {
	if p.poster != "" {
		return p.poster, nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode poster image: %w", err)
	}

	name := p.pkg.nextPartName(imagePartPrefix, ".png")
	p.pkg.setPart(name, buf.Bytes())
	if err := p.pkg.ensureDefaultContentType("png", "image/png"); err != nil {
		return "", err
	}
	p.poster = name
	return name, nil
}

func ensureNamespace(el *etree.Element, prefix, uri string) {
	if el.SelectAttr("xmlns:"+prefix) == nil {
		el.CreateAttr("xmlns:"+prefix, uri)
	}
}

func maxShapeID(sld *etree.Element) int {
	maxID := 0
	for _, el := range sld.FindElements(".//p:cNvPr") {
		if n, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID
}

func maxTimeNodeID(sld *etree.Element) int {
	maxID := 0
	for _, el := range sld.FindElements(".//p:cTn") {
		if n, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID
}

func audioPicture(id int, name, audioRID, mediaRID, imageRID string) *etree.Element {
	pic := etree.NewElement("p:pic")

	nvPicPr := pic.CreateElement("p:nvPicPr")
	cNvPr := nvPicPr.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", name)
	click := cNvPr.CreateElement("a:hlinkClick")
	click.CreateAttr("r:id", "")
	click.CreateAttr("action", "ppaction://media")
	nvPicPr.CreateElement("p:cNvPicPr").CreateElement("a:picLocks").CreateAttr("noChangeAspect", "1")

	nvPr := nvPicPr.CreateElement("p:nvPr")
	nvPr.CreateElement("a:audioFile").CreateAttr("r:link", audioRID)
	ext := nvPr.CreateElement("p:extLst").CreateElement("p:ext")
	ext.CreateAttr("uri", mediaExtURI)
	media := ext.CreateElement("p14:media")
	media.CreateAttr("xmlns:p14", nsPowerPoint14)
	media.CreateAttr("r:embed", mediaRID)

	blipFill := pic.CreateElement("p:blipFill")
	blipFill.CreateElement("a:blip").CreateAttr("r:embed", imageRID)
	blipFill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("p:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	size := xfrm.CreateElement("a:ext")
	size.CreateAttr("cx", "0")
	size.CreateAttr("cy", "0")
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")

	return pic
}

// addMediaTiming registers the shape as a media node with the given volume
// and, for autoplay, adds a play command at the head of the main sequence
// that fires when the slide begins. Existing timing is kept.
func addMediaTiming(sld *etree.Element, spid int, vol Volume, autoplay bool) {
	next := maxTimeNodeID(sld) + 1
	nextID := func() string {
		id := strconv.Itoa(next)
		next++
		return id
	}
	target := strconv.Itoa(spid)

	timing := sld.SelectElement("p:timing")
	if timing == nil {
		timing = etree.NewElement("p:timing")
		if ext := sld.SelectElement("p:extLst"); ext != nil {
			sld.InsertChildAt(ext.Index(), timing)
		} else {
			sld.AddChild(timing)
		}
	}

	root := timing.FindElement("p:tnLst/p:par/p:cTn[@nodeType='tmRoot']")
	if root == nil {
		tnLst := timing.SelectElement("p:tnLst")
		if tnLst == nil {
			tnLst = timing.CreateElement("p:tnLst")
		}
		root = tnLst.CreateElement("p:par").CreateElement("p:cTn")
		root.CreateAttr("id", nextID())
		root.CreateAttr("dur", "indefinite")
		root.CreateAttr("restart", "never")
		root.CreateAttr("nodeType", "tmRoot")
	}
	children := root.SelectElement("p:childTnLst")
	if children == nil {
		children = root.CreateElement("p:childTnLst")
	}

	if autoplay {
		mainSeq := children.FindElement("p:seq/p:cTn[@nodeType='mainSeq']")
		if mainSeq == nil {
			seq := etree.NewElement("p:seq")
			seq.CreateAttr("concurrent", "1")
			seq.CreateAttr("nextAc", "seek")
			children.InsertChildAt(0, seq)

			mainSeq = seq.CreateElement("p:cTn")
			mainSeq.CreateAttr("id", nextID())
			mainSeq.CreateAttr("dur", "indefinite")
			mainSeq.CreateAttr("nodeType", "mainSeq")
			mainSeq.CreateElement("p:childTnLst")

			slideCondition(seq.CreateElement("p:prevCondLst"), "onPrev")
			slideCondition(seq.CreateElement("p:nextCondLst"), "onNext")
		}
		steps := mainSeq.SelectElement("p:childTnLst")
		if steps == nil {
			steps = mainSeq.CreateElement("p:childTnLst")
		}
		steps.InsertChildAt(0, autoplayStep(mainSeq.SelectAttrValue("id", ""), target, nextID))
	}

	node := children.CreateElement("p:audio").CreateElement("p:cMediaNode")
	node.CreateAttr("vol", strconv.Itoa(int(vol)))
	ctn := node.CreateElement("p:cTn")
	ctn.CreateAttr("id", nextID())
	ctn.CreateAttr("fill", "hold")
	ctn.CreateAttr("display", "0")
	ctn.CreateElement("p:stCondLst").CreateElement("p:cond").CreateAttr("delay", "indefinite")
	end := ctn.CreateElement("p:endCondLst").CreateElement("p:cond")
	end.CreateAttr("evt", "onStopAudio")
	end.CreateAttr("delay", "0")
	end.CreateElement("p:tgtEl").CreateElement("p:sldTgt")
	node.CreateElement("p:tgtEl").CreateElement("p:spTgt").CreateAttr("spid", target)
}

func slideCondition(list *etree.Element, evt string) {
	cond := list.CreateElement("p:cond")
	cond.CreateAttr("evt", evt)
	cond.CreateAttr("delay", "0")
	cond.CreateElement("p:tgtEl").CreateElement("p:sldTgt")
}

// autoplayStep is a main sequence step that starts with the slide and
// calls playFrom(0.0) on the shape.
func autoplayStep(mainSeqID, spid string, nextID func() string) *etree.Element {
	step := etree.NewElement("p:par")
	outer := step.CreateElement("p:cTn")
	outer.CreateAttr("id", nextID())
	outer.CreateAttr("fill", "hold")
	conds := outer.CreateElement("p:stCondLst")
	conds.CreateElement("p:cond").CreateAttr("delay", "indefinite")
	onBegin := conds.CreateElement("p:cond")
	onBegin.CreateAttr("evt", "onBegin")
	onBegin.CreateAttr("delay", "0")
	onBegin.CreateElement("p:tn").CreateAttr("val", mainSeqID)

	inner := outer.CreateElement("p:childTnLst").CreateElement("p:par").CreateElement("p:cTn")
	inner.CreateAttr("id", nextID())
	inner.CreateAttr("fill", "hold")
	inner.CreateElement("p:stCondLst").CreateElement("p:cond").CreateAttr("delay", "0")

	effect := inner.CreateElement("p:childTnLst").CreateElement("p:par").CreateElement("p:cTn")
	effect.CreateAttr("id", nextID())
	effect.CreateAttr("presetID", "1")
	effect.CreateAttr("presetClass", "mediacall")
	effect.CreateAttr("presetSubtype", "0")
	effect.CreateAttr("fill", "hold")
	effect.CreateAttr("nodeType", "afterEffect")
	effect.CreateElement("p:stCondLst").CreateElement("p:cond").CreateAttr("delay", "0")

	cmd := effect.CreateElement("p:childTnLst").CreateElement("p:cmd")
	cmd.CreateAttr("type", "call")
	cmd.CreateAttr("cmd", playFromStart)
	behavior := cmd.CreateElement("p:cBhvr")
	bctn := behavior.CreateElement("p:cTn")
	bctn.CreateAttr("id", nextID())
	bctn.CreateAttr("dur", "1")
	bctn.CreateAttr("fill", "hold")
	behavior.CreateElement("p:tgtEl").CreateElement("p:spTgt").CreateAttr("spid", spid)

	return step
}

// MediaShapes returns the audio shapes on the slide with their playback settings
func (s *Slide) MediaShapes() ([]MediaShape, error) {
	if s.pres.closed {
		return nil, ErrClosed
	}
	pkg := s.pres.pkg

	doc, err := pkg.xml(s.part)
	if err != nil {
		return nil, err
	}
	rels, err := pkg.relationships(s.part)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels))
	for _, rel := range rels {
		targets[rel.ID] = rel.Target
	}

	sld := doc.Root()
	var shapes []MediaShape
	for _, pic := range sld.FindElements(".//p:pic") {
		audioFile := pic.FindElement("p:nvPicPr/p:nvPr/a:audioFile")
		cNvPr := pic.FindElement("p:nvPicPr/p:cNvPr")
		if audioFile == nil || cNvPr == nil {
			continue
		}

		id, _ := strconv.Atoi(cNvPr.SelectAttrValue("id", ""))
		shape := MediaShape{
			ID:     id,
			Name:   cNvPr.SelectAttrValue("name", ""),
			Volume: DefaultVolume,
		}
		if target, ok := targets[audioFile.SelectAttrValue("r:link", "")]; ok {
			shape.MediaPart = resolveTarget(s.part, target)
		}
		if ext := pic.FindElement("p:spPr/a:xfrm/a:ext"); ext != nil {
			shape.Width, _ = strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
			shape.Height, _ = strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
		}

		spid := strconv.Itoa(id)
		for _, node := range sld.FindElements(".//p:cMediaNode") {
			if targetsShape(node, spid) {
				if v, err := strconv.Atoi(node.SelectAttrValue("vol", "")); err == nil {
					shape.Volume = Volume(v)
				}
			}
		}
		for _, cmd := range sld.FindElements(".//p:cmd") {
			if strings.HasPrefix(cmd.SelectAttrValue("cmd", ""), "playFrom") {
				if behavior := cmd.SelectElement("p:cBhvr"); behavior != nil && targetsShape(behavior, spid) {
					shape.AutoPlay = true
				}
			}
		}
		shapes = append(shapes, shape)
	}
	return shapes, nil
}

func targetsShape(el *etree.Element, spid string) bool {
	tgt := el.FindElement("p:tgtEl/p:spTgt")
	return tgt != nil && tgt.SelectAttrValue("spid", "") == spid
}
