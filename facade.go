package apkres

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

func readAllCurrent(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 64<<20))
}

// Handle is an opened APK: its resource table (parsed eagerly, the way the
// teacher's apkParser parses resources.arsc up front) plus the ZIP directory
// for locating compiled XML entries on demand.
type Handle struct {
	zip       *ZipReader
	resources *ResourceTable

	// Logf receives low-priority diagnostics from the XML decoder run by
	// ParseXML. Defaults to a no-op. Diagnostics from parsing resources.arsc
	// inside Open/OpenWithZip are not forwarded to it.
	Logf func(format string, args ...any)
}

// Open locates and parses resources.arsc from the APK at path. It does not
// require AndroidManifest.xml or any other XML entry to be present or
// well-formed; those are parsed lazily by ParseXML.
func Open(path string) (h *Handle, err error) {
	zip, err := OpenZip(path)
	if err != nil {
		return nil, err
	}
	return OpenWithZip(zip)
}

// OpenWithZip is Open for a ZipReader you already have. Closing the returned
// Handle also closes zip.
func OpenWithZip(zip *ZipReader) (h *Handle, err error) {
	hnd := &Handle{zip: zip, Logf: nopLogf}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic parsing resources.arsc: %v\n%s", r, string(debug.Stack()))
		}
	}()

	resourcesFile := zip.File["resources.arsc"]
	if resourcesFile == nil {
		return nil, os.ErrNotExist
	}
	if err := resourcesFile.Open(); err != nil {
		return nil, fmt.Errorf("opening resources.arsc: %w", err)
	}
	defer resourcesFile.Close()

	rt, err := ParseResourceTable(resourcesFile)
	if err != nil {
		return nil, fmt.Errorf("parsing resources.arsc: %w", err)
	}
	hnd.resources = rt
	return hnd, nil
}

// Close releases the underlying ZIP archive.
func (h *Handle) Close() error {
	return h.zip.Close()
}

func (h *Handle) KeyFor(id uint32, xmlForm bool) string { return h.resources.KeyFor(id, xmlForm) }
func (h *Handle) DefaultValue(id uint32) *Entry          { return h.resources.DefaultValue(id) }
func (h *Handle) AllValues(id uint32) map[ConfigKey]Entry { return h.resources.AllValues(id) }
func (h *Handle) AllKeys() map[uint8][]string            { return h.resources.AllKeys() }
func (h *Handle) AllStrings() []string                   { return h.resources.AllStrings() }
func (h *Handle) AllTypes() map[uint8][]string           { return h.resources.AllTypes() }

// ParseXML decodes the named compiled-XML entry (e.g. "AndroidManifest.xml")
// and returns both its serialized text and its element tree, per spec.md
// §4.6. resolve enables TYPE_REFERENCE resolution against the handle's
// resource table; pretty selects the indented serialization form.
func (h *Handle) ParseXML(name string, pretty, resolve bool) (text string, elements []*XmlElement, err error) {
	entry := h.zip.File[name]
	if entry == nil {
		return "", nil, fmt.Errorf("no such entry in APK: %s", name)
	}

	if err := entry.Open(); err != nil {
		return "", nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer entry.Close()

	// Crafted/broken ZIPs can carry more than one physical entry under the
	// same name; try each, the way the teacher's parseManifestXml loop does,
	// and keep the first one that decodes.
	var lastErr error
	for entry.Next() {
		data, readErr := readAllCurrent(entry)
		if readErr != nil {
			lastErr = readErr
			continue
		}

		dec := NewXmlDecoder(h.resources, resolve)
		dec.Logf = h.Logf
		doc, decErr := dec.Decode(data)
		if decErr == nil {
			return doc.Serialize(pretty), doc.Elements, nil
		}
		lastErr = decErr
		if decErr == ErrPlainTextManifest {
			break
		}
	}

	if lastErr == ErrPlainTextManifest {
		return "", nil, lastErr
	}
	return "", nil, fmt.Errorf("parsing %s: %w", name, lastErr)
}
