package apkres

import (
	"fmt"
	"io"
)

// ConfigKey is the multi-axis device-configuration qualifier that selects
// among variants of a resource. Two keys are equal iff all eight fields are
// equal; the "default" key (DefaultConfig) is the all-zero key.
type ConfigKey struct {
	Imsi         uint32
	Locale       uint32
	ScreenType   uint32
	Input        uint32
	ScreenSize   uint32
	Version      uint32
	ScreenConfig uint32
	ScreenSizeDp uint32
}

// DefaultConfig is the all-zero ConfigKey: the configuration-independent
// variant of a resource.
var DefaultConfig = ConfigKey{}

// Entry is one configuration's variant of a resource table entry.
type Entry struct {
	Flags uint16
	Key   string

	DataType uint8
	Data     uint32

	// Complex marks an aggregate resource (style/array/plurals/attr map);
	// those are non-goals here (spec.md §1) and are not decoded further.
	// Value() still returns a best-effort opaque decimal rendering.
	Complex bool
}

// Value renders this entry's typed data using decoder. TYPE_REFERENCE is
// rendered as a hex literal; callers that want key/default-value resolution
// use ResourceTable.KeyFor / ResourceTable.DefaultValue on the referenced id
// instead.
func (e Entry) Value(decoder *TypedValueDecoder) string {
	if e.Complex {
		return fmt.Sprintf("%d", e.Data)
	}
	return decoder.Decode(e.DataType, e.Data)
}

// TypeSpec is one resource type's spec chunk plus the accumulated type
// chunk(s) for that type. A type may have multiple TypeChunks, one per
// device configuration; per spec.md §9 this decoder keeps only the first
// TypeChunk's shell (entry count, config) but merges every chunk's entries
// into the same per-slot ConfigKey map, so later configurations are not
// lost.
type TypeSpec struct {
	TypeID     uint8 // 1-based index into the package's type-name pool
	EntryCount uint32
	Flags      []uint32

	Type *TypeChunk
}

// TypeChunk holds, for each of EntryCount sparse slots, every configuration
// variant seen for that slot across all TypeChunks sharing this TypeSpec.
type TypeChunk struct {
	TypeID     uint8
	EntryCount uint32
	Config     ConfigKey

	Entries []map[ConfigKey]Entry
}

// Package is one resources.arsc package (an APK typically has exactly one,
// with Id 0x7F).
type Package struct {
	ID         uint8
	Name       string
	TypeNames  *StringPool
	KeyNames   *StringPool
	TypeSpecs  []*TypeSpec // index i holds the spec for type_id i+1
}

func (p *Package) specForType(typeID1Based uint32) *TypeSpec {
	idx := int(typeID1Based) - 1
	if idx < 0 || idx >= len(p.TypeSpecs) {
		return nil
	}
	return p.TypeSpecs[idx]
}

// ResourceTable is the parsed form of resources.arsc: a global string pool
// plus one or more packages, each with its own type/key name pools and
// ordered type specs. Once constructed it is immutable and safe to share
// across goroutines (spec.md §5).
type ResourceTable struct {
	GlobalStrings *StringPool
	Packages      map[uint8]*Package

	decoder *TypedValueDecoder

	// Logf receives low-priority diagnostics (e.g. encountering a complex
	// entry). It is only called while ParseResourceTableBytes runs, which
	// sets it to a no-op first, so those diagnostics are discarded; no later
	// method calls it.
	Logf func(format string, args ...any)
}

func nopLogf(string, ...any) {}

// ParseResourceTable parses a complete resources.arsc buffer read from r.
func ParseResourceTable(r io.Reader) (*ResourceTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("resources.arsc: read: %w", err)
	}
	return ParseResourceTableBytes(data)
}

// ParseResourceTableBytes parses a complete resources.arsc buffer already
// held in memory.
func ParseResourceTableBytes(data []byte) (*ResourceTable, error) {
	br := NewBinReader(data)

	hdr, ok := readChunkHeader(data, 0)
	if !ok || hdr.Type != chunkTable {
		return nil, fmt.Errorf("resources.arsc: invalid table header")
	}
	if uint64(hdr.ChunkSize) > uint64(len(data)) {
		return nil, fmt.Errorf("resources.arsc: chunk_size %d exceeds buffer length %d", hdr.ChunkSize, len(data))
	}

	packageCount := br.u32le(8)

	globalStrings, err := parseStringPool(br, uint32(hdr.HeaderSize))
	if err != nil {
		return nil, fmt.Errorf("resources.arsc: global string pool: %w", err)
	}

	globalStringsHdr, _ := readChunkHeader(data, uint32(hdr.HeaderSize))

	rt := &ResourceTable{
		GlobalStrings: globalStrings,
		Packages:      make(map[uint8]*Package),
		Logf:          nopLogf,
	}
	rt.decoder = NewTypedValueDecoder(globalStrings)

	off := uint32(hdr.HeaderSize) + globalStringsHdr.ChunkSize
	for i := uint32(0); i < packageCount; i++ {
		pkg, size, err := rt.parsePackage(br, off)
		if err != nil {
			return nil, fmt.Errorf("resources.arsc: package %d at 0x%x: %w", i, off, err)
		}
		rt.Packages[pkg.ID] = pkg
		off += size
	}

	return rt, nil
}

func (rt *ResourceTable) parsePackage(br *BinReader, off uint32) (*Package, uint32, error) {
	hdr, ok := readChunkHeader(br.data, off)
	if !ok || hdr.Type != chunkTablePackage {
		return nil, 0, fmt.Errorf("expected PACKAGE chunk, got type 0x%x", hdr.Type)
	}

	id := br.u32le(off + 8)
	name := br.strUTF16LE(off+12, 256)
	typeStringsOff := br.u32le(off + 268)
	keyStringsOff := br.u32le(off + 276)

	pkg := &Package{ID: uint8(id), Name: name}

	var err error
	pkg.TypeNames, err = parseStringPool(br, off+typeStringsOff)
	if err != nil {
		return nil, 0, fmt.Errorf("type-name pool: %w", err)
	}
	pkg.KeyNames, err = parseStringPool(br, off+keyStringsOff)
	if err != nil {
		return nil, 0, fmt.Errorf("key-name pool: %w", err)
	}

	chunkEnd := off + hdr.ChunkSize
	cur := off + uint32(hdr.HeaderSize)

	// type/key pools sit right after the package header, at the offsets
	// above; advance cur past whichever of them ends later before scanning
	// for spec/type chunks.
	if h, ok := readChunkHeader(br.data, off+typeStringsOff); ok {
		if end := off + typeStringsOff + h.ChunkSize; end > cur {
			cur = end
		}
	}
	if h, ok := readChunkHeader(br.data, off+keyStringsOff); ok {
		if end := off + keyStringsOff + h.ChunkSize; end > cur {
			cur = end
		}
	}

	for cur < chunkEnd {
		ch, ok := readChunkHeader(br.data, cur)
		if !ok || ch.ChunkSize == 0 {
			break
		}
		if ch.Type == chunkTablePackage {
			break
		}

		switch ch.Type {
		case chunkTableTypeSpec:
			spec := rt.parseTypeSpec(br, cur, ch)
			pkg.ensureSpecSlot(spec.TypeID)
			spec.Type = pkg.TypeSpecs[spec.TypeID-1].Type
			pkg.TypeSpecs[spec.TypeID-1] = spec
		case chunkTableType:
			rt.parseTypeChunk(br, cur, ch, pkg)
		}

		cur += ch.ChunkSize
	}

	return pkg, cur - off, nil
}

func (p *Package) ensureSpecSlot(typeID uint8) {
	for uint32(len(p.TypeSpecs)) < uint32(typeID) {
		p.TypeSpecs = append(p.TypeSpecs, nil)
	}
	if p.TypeSpecs[typeID-1] == nil {
		p.TypeSpecs[typeID-1] = &TypeSpec{TypeID: typeID}
	}
}

func (rt *ResourceTable) parseTypeSpec(br *BinReader, off uint32, ch ChunkHeader) *TypeSpec {
	typeID := br.u8(off + 8)
	entryCount := br.u32le(off + 12)

	spec := &TypeSpec{TypeID: typeID, EntryCount: entryCount}
	flagsOff := off + 16
	for i := uint32(0); i < entryCount; i++ {
		spec.Flags = append(spec.Flags, br.u32le(flagsOff+4*i))
	}
	return spec
}

func (rt *ResourceTable) parseTypeChunk(br *BinReader, off uint32, ch ChunkHeader, pkg *Package) {
	typeID := br.u8(off + 8)
	entryCount := br.u32le(off + 12)
	entriesStart := br.u32le(off + 16)

	cfg, cfgSize := parseConfigKey(br, off+20)

	offsetsOff := off + 20 + cfgSize

	pkg.ensureSpecSlot(typeID)
	spec := pkg.TypeSpecs[typeID-1]
	if spec.Type == nil {
		spec.Type = &TypeChunk{
			TypeID:     typeID,
			EntryCount: entryCount,
			Config:     cfg,
			Entries:    make([]map[ConfigKey]Entry, entryCount),
		}
	}
	tc := spec.Type
	for uint32(len(tc.Entries)) < entryCount {
		tc.Entries = append(tc.Entries, nil)
	}

	entriesBase := off + entriesStart
	for i := uint32(0); i < entryCount; i++ {
		entryOff := br.u32le(offsetsOff + 4*i)
		if entryOff == noIndex {
			continue
		}

		entry, ok := rt.parseEntry(br, entriesBase+entryOff, pkg)
		if !ok {
			continue
		}

		if tc.Entries[i] == nil {
			tc.Entries[i] = make(map[ConfigKey]Entry)
		}
		tc.Entries[i][cfg] = entry
	}
}

func parseConfigKey(br *BinReader, off uint32) (ConfigKey, uint32) {
	size := br.u32le(off)
	if size < 8 {
		size = 8
	}

	cfg := ConfigKey{
		Imsi:         br.u32le(off + 4),
		Locale:       br.u32le(off + 8),
		ScreenType:   br.u32le(off + 12),
		Input:        br.u32le(off + 16),
		ScreenSize:   br.u32le(off + 20),
		Version:      br.u32le(off + 24),
		ScreenConfig: br.u32le(off + 28),
		ScreenSizeDp: br.u32le(off + 32),
	}
	return cfg, size
}

func (rt *ResourceTable) parseEntry(br *BinReader, off uint32, pkg *Package) (Entry, bool) {
	flags := br.u16le(off + 2)
	keyIdx := br.u32le(off + 4)
	key := pkg.KeyNames.Get(keyIdx)

	if flags&entryFlagComplex != 0 {
		rt.Logf("resources.arsc: skipping complex entry %q (aggregate resources are a non-goal)", key)
		return Entry{Flags: flags, Key: key, Complex: true, Data: br.u32le(off + 8)}, true
	}

	dataType := br.u8(off + 11)
	data := br.u32le(off + 12)
	return Entry{Flags: flags, Key: key, DataType: dataType, Data: data}, true
}

// splitResID splits a 32-bit resource id PPTTIIII into package, 1-based
// type index, and zero-based entry index.
func splitResID(id uint32) (pkg uint8, typ uint32, entry uint32) {
	pkg = uint8(id >> 24)
	typ = (id >> 16) & 0xFF
	entry = id & 0xFFFF
	return
}

func (rt *ResourceTable) lookupEntries(id uint32) (*Package, map[ConfigKey]Entry, bool) {
	pkgID, typeIdx, entryIdx := splitResID(id)
	pkg, ok := rt.Packages[pkgID]
	if !ok {
		return nil, nil, false
	}
	spec := pkg.specForType(typeIdx)
	if spec == nil || spec.Type == nil {
		return nil, nil, false
	}
	if entryIdx >= uint32(len(spec.Type.Entries)) {
		return nil, nil, false
	}
	variants := spec.Type.Entries[entryIdx]
	if len(variants) == 0 {
		return nil, nil, false
	}
	return pkg, variants, true
}

// firstVariant returns a representative entry among a slot's configuration
// variants: the default config if present, else whichever one the map
// yields first. Without a default variant, which one is returned is not
// defined and may differ between calls.
func firstVariant(variants map[ConfigKey]Entry) Entry {
	if e, ok := variants[DefaultConfig]; ok {
		return e
	}
	for _, e := range variants {
		return e
	}
	return Entry{}
}

// KeyFor returns the "@type/key" (xmlForm=true) or "R.type.key" (xmlForm=false)
// form of id's key, or "" if id doesn't resolve to a known entry.
func (rt *ResourceTable) KeyFor(id uint32, xmlForm bool) string {
	pkg, variants, ok := rt.lookupEntries(id)
	if !ok {
		return ""
	}
	_, typeIdx, _ := splitResID(id)
	typeName := pkg.TypeNames.Get(typeIdx - 1)
	key := firstVariant(variants).Key

	if xmlForm {
		return fmt.Sprintf("@%s/%s", typeName, key)
	}
	return fmt.Sprintf("R.%s.%s", typeName, key)
}

// ConfigSelector chooses which configuration variant DefaultValueEx returns.
type ConfigSelector int

const (
	// ConfigFirst returns the default (all-zero) configuration's entry, or
	// nil when id has no default variant.
	ConfigFirst ConfigSelector = iota
	// ConfigLast returns a non-default configuration's entry when one
	// exists (used for density-sensitive resources like icons, which are
	// rarely defined for the default density; see SPEC_FULL.md §6.5).
	ConfigLast
)

// DefaultValue returns the default-configuration Entry for id, or nil.
func (rt *ResourceTable) DefaultValue(id uint32) *Entry {
	return rt.DefaultValueEx(id, ConfigFirst)
}

// DefaultValueEx returns an Entry for id per sel, or nil if id doesn't
// resolve.
func (rt *ResourceTable) DefaultValueEx(id uint32, sel ConfigSelector) *Entry {
	_, variants, ok := rt.lookupEntries(id)
	if !ok {
		return nil
	}

	if sel == ConfigFirst {
		if e, ok := variants[DefaultConfig]; ok {
			return &e
		}
		return nil
	} else {
		for cfg, e := range variants {
			if cfg != DefaultConfig {
				e := e
				return &e
			}
		}
	}

	e := firstVariant(variants)
	return &e
}

// AllValues returns every configuration variant of id, or nil if id doesn't
// resolve.
func (rt *ResourceTable) AllValues(id uint32) map[ConfigKey]Entry {
	_, variants, ok := rt.lookupEntries(id)
	if !ok {
		return nil
	}
	out := make(map[ConfigKey]Entry, len(variants))
	for k, v := range variants {
		out[k] = v
	}
	return out
}

// AllKeys enumerates every resolvable resource key, per package.
func (rt *ResourceTable) AllKeys() map[uint8][]string {
	out := make(map[uint8][]string)
	for pkgID, pkg := range rt.Packages {
		var keys []string
		for typeIdx, spec := range pkg.TypeSpecs {
			if spec == nil || spec.Type == nil {
				continue
			}
			typeName := pkg.TypeNames.Get(uint32(typeIdx))
			for _, variants := range spec.Type.Entries {
				if len(variants) == 0 {
					continue
				}
				keys = append(keys, fmt.Sprintf("@%s/%s", typeName, firstVariant(variants).Key))
			}
		}
		out[pkgID] = keys
	}
	return out
}

// AllStrings returns every interned string in the global pool.
func (rt *ResourceTable) AllStrings() []string {
	n := rt.GlobalStrings.Count()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = rt.GlobalStrings.Get(uint32(i))
	}
	return out
}

// AllTypes enumerates every type name, per package.
func (rt *ResourceTable) AllTypes() map[uint8][]string {
	out := make(map[uint8][]string)
	for pkgID, pkg := range rt.Packages {
		n := pkg.TypeNames.Count()
		names := make([]string, n)
		for i := 0; i < n; i++ {
			names[i] = pkg.TypeNames.Get(uint32(i))
		}
		out[pkgID] = names
	}
	return out
}

func (rt *ResourceTable) Decoder() *TypedValueDecoder {
	return rt.decoder
}
