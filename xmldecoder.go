package apkres

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPlainTextManifest is returned when the input is an actual UTF-8 XML
// document (some crafted/obfuscated APKs ship AndroidManifest.xml in
// plaintext) rather than the compiled binary form this decoder expects.
var ErrPlainTextManifest = errors.New("xml is in plaintext, binary form expected")

const androidNamespaceURI = "http://schemas.android.com/apk/res/android"

// referenceChainDepth bounds how many TYPE_REFERENCE hops resolveReferenceAttr follows
// when resolving an attribute value, per spec.md §9's guidance that
// reference-following implementations should cap recursion depth.
const referenceChainDepth = 5

// XmlAttribute is one decoded attribute of an XmlElement. Value is the final
// rendered textual form, after namespace and (optionally) resource
// resolution.
type XmlAttribute struct {
	NamespacePrefix string
	Name            string
	Value           string
}

// XmlElement is one decoded element of a binary XML document.
type XmlElement struct {
	Line            uint32
	Comment         string
	NamespacePrefix string
	Name            string
	Attributes      []XmlAttribute
	IsRoot          bool

	// Text holds CDATA occurrences found directly inside this element,
	// in document order.
	Text []string

	Children []*XmlElement
	Parent   *XmlElement
}

// Document is the result of decoding one binary XML chunk stream: the
// element tree plus the namespace URIs declared anywhere in the document,
// for serialization.
type Document struct {
	Root       *XmlElement
	Elements   []*XmlElement // document order, every START_ELEMENT
	Namespaces map[string]string // uri -> prefix, declared anywhere in the doc
}

type nsBinding struct {
	prefix, uri string
}

// XmlDecoder parses a binary XML chunk stream and materializes it as an
// element tree (and, via Serialize, as text). Resources is optional; when
// set and Resolve is true, TYPE_REFERENCE attribute values are rendered as
// their resolved default value instead of a "@type/key" resource key.
type XmlDecoder struct {
	Resources *ResourceTable
	Resolve   bool

	// Logf receives low-priority diagnostics. Defaults to a no-op.
	Logf func(format string, args ...any)

	strings     *StringPool
	resourceIds []uint32
	valDecoder  *TypedValueDecoder

	nsStack []nsBinding
	nsSeen  map[string]string
}

func NewXmlDecoder(resources *ResourceTable, resolve bool) *XmlDecoder {
	return &XmlDecoder{Resources: resources, Resolve: resolve, Logf: nopLogf}
}

// Decode parses a complete binary XML chunk stream held in data.
func (x *XmlDecoder) Decode(data []byte) (*Document, error) {
	if x.Logf == nil {
		x.Logf = nopLogf
	}
	x.nsSeen = make(map[string]string)

	if looksLikePlainXML(data) {
		return nil, ErrPlainTextManifest
	}

	hdr, ok := readChunkHeader(data, 0)
	if !ok {
		return nil, fmt.Errorf("binary xml: truncated file header")
	}
	if uint64(hdr.ChunkSize) > uint64(len(data)) {
		return nil, fmt.Errorf("binary xml: chunk_size %d exceeds buffer length %d", hdr.ChunkSize, len(data))
	}

	br := NewBinReader(data)

	doc := &Document{Namespaces: make(map[string]string)}
	var stack []*XmlElement

	cur := uint32(hdr.HeaderSize)
	end := hdr.ChunkSize
	for cur < end {
		ch, ok := readChunkHeader(data, cur)
		if !ok || ch.ChunkSize == 0 {
			return nil, fmt.Errorf("binary xml: truncated chunk at 0x%x", cur)
		}
		if cur+ch.ChunkSize > end {
			return nil, fmt.Errorf("binary xml: chunk at 0x%x overruns document (size %d)", cur, ch.ChunkSize)
		}

		switch ch.Type {
		case chunkStringTable:
			sp, err := parseStringPool(br, cur)
			if err != nil {
				return nil, fmt.Errorf("binary xml: string pool: %w", err)
			}
			x.strings = sp

		case chunkResourceIds:
			x.resourceIds = parseResourceIdMap(br, cur, ch)

		case chunkXmlNsStart:
			prefixIdx := br.u32le(cur + uint32(ch.HeaderSize))
			uriIdx := br.u32le(cur + uint32(ch.HeaderSize) + 4)
			prefix := x.strings.Get(prefixIdx)
			uri := x.strings.Get(uriIdx)
			x.nsStack = append(x.nsStack, nsBinding{prefix, uri})
			if uri != "" {
				if _, seen := doc.Namespaces[uri]; !seen {
					doc.Namespaces[uri] = prefix
				}
				x.nsSeen[uri] = prefix
			}

		case chunkXmlNsEnd:
			if n := len(x.nsStack); n > 0 {
				x.nsStack = x.nsStack[:n-1]
			}

		case chunkXmlTagStart:
			el, err := x.parseTagStart(br, cur, ch)
			if err != nil {
				return nil, fmt.Errorf("binary xml: start element at 0x%x: %w", cur, err)
			}
			if len(stack) == 0 {
				el.IsRoot = true
				doc.Root = el
			} else {
				parent := stack[len(stack)-1]
				el.Parent = parent
				parent.Children = append(parent.Children, el)
			}
			doc.Elements = append(doc.Elements, el)
			stack = append(stack, el)

		case chunkXmlTagEnd:
			if len(stack) == 0 {
				return nil, fmt.Errorf("binary xml: END_ELEMENT with no matching START_ELEMENT")
			}
			stack = stack[:len(stack)-1]

		case chunkXmlText:
			if len(stack) == 0 {
				break
			}
			dataIdx := br.u32le(cur + uint32(ch.HeaderSize))
			text := x.strings.Get(dataIdx)
			if text != "" {
				el := stack[len(stack)-1]
				el.Text = append(el.Text, text)
			}

		default:
			x.Logf("binary xml: skipping unknown chunk type 0x%x", ch.Type)
		}

		cur += ch.ChunkSize
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("binary xml: %d unclosed element(s) at end of document", len(stack))
	}

	return doc, nil
}

func looksLikePlainXML(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	s := string(data[:8])
	return strings.HasPrefix(s, "<?xml ") || strings.HasPrefix(s, "<manif")
}

func parseResourceIdMap(br *BinReader, off uint32, ch ChunkHeader) []uint32 {
	count := (ch.ChunkSize - uint32(ch.HeaderSize)) / 4
	ids := make([]uint32, 0, count)
	base := off + uint32(ch.HeaderSize)
	for i := uint32(0); i < count; i++ {
		ids = append(ids, br.u32le(base+4*i))
	}
	return ids
}

func (x *XmlDecoder) resolveNamespace(uri string) string {
	if uri == "" {
		return ""
	}
	for i := len(x.nsStack) - 1; i >= 0; i-- {
		if x.nsStack[i].uri == uri {
			return x.nsStack[i].prefix
		}
	}
	return x.nsSeen[uri]
}

func (x *XmlDecoder) parseTagStart(br *BinReader, off uint32, ch ChunkHeader) (*XmlElement, error) {
	hdrOff := off + uint32(ch.HeaderSize)
	lineNum := br.u32le(off + 8)
	commentIdx := br.u32le(off + 12)

	nsIdx := br.u32le(hdrOff)
	nameIdx := br.u32le(hdrOff + 4)
	attrStart := br.u16le(hdrOff + 8)
	attrSize := br.u16le(hdrOff + 10)
	attrCount := br.u16le(hdrOff + 12)

	namespaceURI := x.strings.Get(nsIdx)
	name := x.strings.Get(nameIdx)

	el := &XmlElement{
		Line:            lineNum,
		Comment:         x.strings.Get(commentIdx),
		NamespacePrefix: x.resolveNamespace(namespaceURI),
		Name:            name,
	}

	attrsBase := hdrOff + uint32(attrStart)
	for i := uint16(0); i < attrCount; i++ {
		attrOff := attrsBase + uint32(i)*uint32(attrSize)
		attr, err := x.parseAttribute(br, attrOff)
		if err != nil {
			return nil, err
		}
		el.Attributes = append(el.Attributes, attr)
	}

	return el, nil
}

func (x *XmlDecoder) parseAttribute(br *BinReader, off uint32) (XmlAttribute, error) {
	nsURIIdx := br.u32le(off)
	nameIdx := br.u32le(off + 4)
	rawValueIdx := br.u32le(off + 8)
	dataType := br.u8(off + 15)
	data := br.u32le(off + 16)

	nameFromStrings := x.strings.Get(nameIdx)
	namespaceURI := x.strings.Get(nsURIIdx)

	attrName := nameFromStrings
	usedResourceID := false
	// The resource-ID table is only a fallback for minified manifests whose
	// string-pool attribute name was stripped (SPEC_FULL.md §6.1); a present
	// string-pool name always wins, so a wrong or colliding table entry can
	// never mis-render a normal, non-obfuscated manifest's "package" or
	// platformBuildVersion* attributes either (SPEC_FULL.md §6.1-2).
	if nameFromStrings == "" && nameIdx < uint32(len(x.resourceIds)) {
		if n := attrNameForResourceID(x.resourceIds[nameIdx]); n != "" {
			attrName = n
			usedResourceID = true
		}
	}

	prefix := x.resolveNamespace(namespaceURI)
	if usedResourceID && namespaceURI == "" {
		prefix = x.resolveNamespace(androidNamespaceURI)
		if prefix == "" {
			prefix = "android"
		}
	}

	attr := XmlAttribute{NamespacePrefix: prefix, Name: attrName}

	switch {
	case rawValueIdx != noIndex:
		attr.Value = x.strings.Get(rawValueIdx)

	case dataType == typeReference:
		attr.Value = x.resolveReferenceAttr(attrName, data)

	default:
		attr.Value = x.decoder().Decode(dataType, data)
	}

	return attr, nil
}

func (x *XmlDecoder) decoder() *TypedValueDecoder {
	if x.valDecoder == nil {
		x.valDecoder = NewTypedValueDecoder(x.strings)
	}
	return x.valDecoder
}

// resolveReferenceAttr implements spec.md §4.5's attribute fallback rules
// for TYPE_REFERENCE, plus the reference-chain-following and icon-density
// supplements from SPEC_FULL.md §6.5-6.
func (x *XmlDecoder) resolveReferenceAttr(attrName string, data uint32) string {
	if x.Resources == nil {
		return fmt.Sprintf("res:0x%x", data)
	}

	if !x.Resolve {
		if key := x.Resources.KeyFor(data, true); key != "" {
			return key
		}
		return fmt.Sprintf("res:0x%x", data)
	}

	sel := ConfigFirst
	if attrName == "icon" || attrName == "roundIcon" {
		sel = ConfigLast
	}

	id := data
	var entry *Entry
	for hop := 0; hop < referenceChainDepth; hop++ {
		e := x.Resources.DefaultValueEx(id, sel)
		if e == nil {
			break
		}
		entry = e
		if e.DataType != typeReference || e.Complex {
			break
		}
		id = e.Data
	}

	if entry != nil {
		return entry.Value(x.Resources.Decoder())
	}

	if key := x.Resources.KeyFor(data, true); key != "" {
		return key
	}
	return fmt.Sprintf("res:0x%x", data)
}
