package apkres

// attrNameForResourceID maps a handful of well-known android: manifest
// attribute resource IDs to their names, grounded on the teacher's
// attribute-ID fallback (SPEC_FULL.md §6.1): Android itself resolves
// AndroidManifest.xml attributes purely by resource ID (see
// frameworks/base/core/res/res/values/attrs_manifest.xml), and most
// compilers also happen to put a matching name in the string pool — except
// obfuscators/minifiers that strip it, which is what this fallback exists
// for.
//
// Only the attribute IDs that commonly show up stripped in minified
// manifests are listed; anything else falls back to the string-pool name,
// per spec.md §4.5.
var manifestAttrNames = map[uint32]string{
	0x01010003: "name",
	0x0101021b: "versionCode",
	0x0101021c: "versionName",
	0x0101020c: "minSdkVersion",
	0x01010270: "targetSdkVersion",
	0x01010001: "label",
	0x01010002: "icon",
	0x0101052c: "roundIcon",
	0x01010024: "value",
	0x01010025: "resource",
	0x01010010: "exported",
	0x01010006: "permission",
	0x01010000: "theme",
}

const androidAttrIDLow = 0x01010000
const androidAttrIDHigh = 0x0101ffff

// attrNameForResourceID returns the android: attribute name for id, or ""
// if id isn't in the reserved android: range or isn't in the static table
// above.
func attrNameForResourceID(id uint32) string {
	if id < androidAttrIDLow || id > androidAttrIDHigh {
		return ""
	}
	return manifestAttrNames[id]
}
