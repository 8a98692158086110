package apkres

import "encoding/binary"

// buf is a tiny little-endian byte builder used by the hand-built binary
// fixtures in this package's tests — there is no real resources.arsc/AXML
// sample available to load from disk, so tests construct the exact chunks
// they need to exercise.
type buf struct {
	b []byte
}

func (w *buf) u8(v uint8) *buf   { w.b = append(w.b, v); return w }
func (w *buf) u16(v uint16) *buf { var t [2]byte; binary.LittleEndian.PutUint16(t[:], v); w.b = append(w.b, t[:]...); return w }
func (w *buf) u32(v uint32) *buf { var t [4]byte; binary.LittleEndian.PutUint32(t[:], v); w.b = append(w.b, t[:]...); return w }
func (w *buf) raw(b []byte) *buf { w.b = append(w.b, b...); return w }
func (w *buf) pad4() *buf {
	for len(w.b)%4 != 0 {
		w.b = append(w.b, 0)
	}
	return w
}

func (w *buf) len() uint32 { return uint32(len(w.b)) }

// patchU32 overwrites the u32 at byte offset off with v, used to back-patch
// chunk_size once the chunk's full extent is known.
func (w *buf) patchU32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(w.b[off:], v)
}

// buildStringPool encodes strs as a standalone STRING_POOL chunk (type
// chunkStringTable), ASCII-only so the UTF-8 two-length-prefix fidelity gap
// (spec.md §9) never triggers: char count and byte count are equal for
// every string used here.
func buildStringPool(strs []string, utf8 bool) []byte {
	w := &buf{}
	headerSize := uint16(28)

	w.u16(uint16(chunkStringTable))
	w.u16(headerSize)
	sizeOff := w.len()
	w.u32(0) // chunk_size, patched below

	w.u32(uint32(len(strs))) // stringCount
	w.u32(0)                 // styleCount
	var flags uint32
	if utf8 {
		flags |= stringFlagUtf8
	}
	w.u32(flags)
	stringsStartOff := w.len()
	w.u32(0) // stringsStart, patched below
	w.u32(0) // stylesStart (none)

	offsetsOff := w.len()
	for range strs {
		w.u32(0) // patched below
	}

	dataStart := w.len()
	w.patchU32(stringsStartOff, dataStart)

	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = w.len() - dataStart
		if utf8 {
			w.u8(uint8(len(s))).u8(uint8(len(s))).raw([]byte(s)).u8(0)
		} else {
			w.u16(uint16(len([]rune(s))))
			for _, r := range s {
				w.u16(uint16(r))
			}
			w.u16(0)
		}
	}
	w.pad4()

	for i, off := range offsets {
		w.patchU32(offsetsOff+4*uint32(i), off)
	}

	w.patchU32(sizeOff, w.len())
	return w.b
}

// buildUTF16Name encodes s as a fixed 256-byte UTF-16LE package-name field,
// NUL-padded.
func buildUTF16Name(s string) []byte {
	out := make([]byte, 256)
	for i, r := range s {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(r))
	}
	return out
}

// buildResourceTable assembles a minimal but structurally complete
// resources.arsc: one package ("app", id 0x7f), one type ("string"), one
// entry ("app_name" -> global string "MyApp"), at the default configuration.
func buildResourceTable() []byte {
	globalStrings := buildStringPool([]string{"MyApp"}, true)
	typeNames := buildStringPool([]string{"string"}, true)
	keyNames := buildStringPool([]string{"app_name"}, true)

	const pkgHeaderSize = 284
	pkg := &buf{}
	pkg.u16(uint16(chunkTablePackage))
	pkg.u16(pkgHeaderSize)
	pkgSizeOff := pkg.len()
	pkg.u32(0) // chunk_size, patched below
	pkg.u32(0x7f)
	pkg.raw(buildUTF16Name("app"))
	typeStringsOffOff := pkg.len()
	pkg.u32(0) // typeStringsOff, patched below
	pkg.u32(0) // lastPublicType (unused)
	keyStringsOffOff := pkg.len()
	pkg.u32(0) // keyStringsOff, patched below
	pkg.u32(0) // lastPublicKey (unused)
	if pkg.len() != pkgHeaderSize {
		panic("buildResourceTable: package header size drifted")
	}

	pkg.patchU32(typeStringsOffOff, pkg.len())
	pkg.raw(typeNames)
	pkg.patchU32(keyStringsOffOff, pkg.len())
	pkg.raw(keyNames)

	// TypeSpec chunk: one flags entry for the single type-spec slot.
	specOff := pkg.len()
	pkg.u16(uint16(chunkTableTypeSpec))
	pkg.u16(16) // header_size
	specSizeOff := pkg.len()
	pkg.u32(0)
	pkg.u8(1) // type_id
	pkg.u8(0)
	pkg.u16(0)
	pkg.u32(1) // entry_count
	pkg.u32(0) // flags[0]
	pkg.patchU32(specSizeOff, pkg.len()-specOff)

	// Type chunk: default (all-zero) ConfigKey, one entry.
	typeOff := pkg.len()
	pkg.u16(uint16(chunkTableType))
	pkg.u16(20) // header_size (fixed fields only; parseTypeChunk doesn't use it)
	typeSizeOff := pkg.len()
	pkg.u32(0)
	pkg.u8(1) // type_id
	pkg.u8(0)
	pkg.u16(0)
	pkg.u32(1)  // entry_count
	pkg.u32(60) // entries_start, relative to typeOff
	pkg.u32(36) // ConfigKey.size
	for i := 0; i < 8; i++ {
		pkg.u32(0) // ConfigKey fields, all zero: the default configuration
	}
	pkg.u32(0) // offsets[0]: entry 0 lives at entries_start+0

	if pkg.len()-typeOff != 60 {
		panic("buildResourceTable: type chunk offsets table drifted")
	}

	// Entry: key_index 0 ("app_name"), simple TYPE_STRING value pointing at
	// global string 0 ("MyApp").
	pkg.u16(16) // entry_size
	pkg.u16(0)  // flags (not complex)
	pkg.u32(0)  // key_index
	pkg.u16(8)  // value.size
	pkg.u8(0)   // value.zero
	pkg.u8(typeString)
	pkg.u32(0) // value.data: global string index 0

	pkg.patchU32(typeSizeOff, pkg.len()-typeOff)
	pkg.patchU32(pkgSizeOff, pkg.len())

	t := &buf{}
	t.u16(uint16(chunkTable))
	t.u16(12) // header_size
	tableSizeOff := t.len()
	t.u32(0)
	t.u32(1) // package_count
	t.raw(globalStrings)
	t.raw(pkg.b)
	t.patchU32(tableSizeOff, t.len())
	return t.b
}

// startXmlChunk writes a chunk header for a binary-XML stream chunk. Every
// chunk inside the XML tree (namespace start/end, element start/end, CDATA)
// carries the 8-byte line_num/comment_idx extension right after the base
// 8-byte ChunkHeader; RESOURCE_MAP does not and is written separately. It
// returns the chunk's start offset and the offset of its chunk_size field,
// to be back-patched once the payload is known.
func startXmlChunk(w *buf, typ uint16) (chunkStart, sizeOff uint32) {
	chunkStart = w.len()
	w.u16(typ)
	w.u16(16)
	sizeOff = w.len()
	w.u32(0)
	w.u32(0xFFFFFFFF) // line_num (stored in XmlElement.Line; not checked by these tests)
	w.u32(noIndex)    // comment_idx: none
	return
}

func endXmlChunk(w *buf, chunkStart, sizeOff uint32) {
	w.patchU32(sizeOff, w.len()-chunkStart)
}

// buildBinaryXML assembles a minimal AndroidManifest.xml-shaped binary XML
// document: an "android" namespace, a root <manifest> with one raw-string
// "package" attribute, and a <child> element carrying one CDATA text node.
func buildBinaryXML() []byte {
	strs := []string{
		"android",                                            // 0
		"http://schemas.android.com/apk/res/android",         // 1
		"manifest",                                            // 2
		"package",                                             // 3
		"com.example",                                         // 4
		"child",                                               // 5
		"hello",                                               // 6
	}

	body := &buf{}

	cs, so := startXmlChunk(body, uint16(chunkXmlNsStart))
	body.u32(0).u32(1) // prefix_idx, uri_idx
	endXmlChunk(body, cs, so)

	cs, so = startXmlChunk(body, uint16(chunkXmlTagStart))
	body.u32(noIndex) // ns_uri_idx
	body.u32(2)       // name_idx: "manifest"
	body.u16(20)      // attr_start
	body.u16(20)      // attr_size
	body.u16(1)       // attr_count
	body.u16(0)       // id_idx
	body.u16(0)       // class_idx
	body.u16(0)       // style_idx
	// attribute 0: package="com.example" (raw string, no namespace)
	body.u32(noIndex) // ns_uri_idx
	body.u32(3)       // name_idx: "package"
	body.u32(4)       // raw_value_idx: "com.example"
	body.u16(8)       // typed.size
	body.u8(0)        // typed.zero
	body.u8(0)        // typed.data_type (unused: raw_value_idx wins)
	body.u32(0)       // typed.data
	endXmlChunk(body, cs, so)

	cs, so = startXmlChunk(body, uint16(chunkXmlTagStart))
	body.u32(noIndex) // ns_uri_idx
	body.u32(5)       // name_idx: "child"
	body.u16(20)
	body.u16(20)
	body.u16(0) // attr_count
	body.u16(0)
	body.u16(0)
	body.u16(0)
	endXmlChunk(body, cs, so)

	cs, so = startXmlChunk(body, uint16(chunkXmlText))
	body.u32(6) // data_idx: "hello"
	body.u16(8) // typed.size
	body.u8(0)
	body.u8(0)
	body.u32(0)
	endXmlChunk(body, cs, so)

	cs, so = startXmlChunk(body, uint16(chunkXmlTagEnd))
	body.u32(noIndex)
	body.u32(5) // name_idx: "child"
	endXmlChunk(body, cs, so)

	cs, so = startXmlChunk(body, uint16(chunkXmlTagEnd))
	body.u32(noIndex)
	body.u32(2) // name_idx: "manifest"
	endXmlChunk(body, cs, so)

	cs, so = startXmlChunk(body, uint16(chunkXmlNsEnd))
	body.u32(0).u32(1)
	endXmlChunk(body, cs, so)

	w := &buf{}
	w.u16(uint16(chunkAxmlFile))
	w.u16(8)
	sizeOff := w.len()
	w.u32(0)
	w.raw(buildStringPool(strs, true))
	w.raw(body.b)
	w.patchU32(sizeOff, w.len())
	return w.b
}
