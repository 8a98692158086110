package apkres

import (
	"sort"
	"strings"
)

// Serialize renders doc as XML text, grounded on the teacher's own
// tree-printer idiom (one open/close tag per line, child indentation tied to
// tree depth) but following spec.md §4.5's serialization contract exactly:
// pretty mode precedes every element start/end with a newline and
// depth*2 spaces and puts each attribute on its own indented line; compact
// mode emits a single line with no added whitespace. The root element
// declares every namespace opened anywhere in the document; non-root
// elements never redeclare them.
func (d *Document) Serialize(pretty bool) string {
	if d.Root == nil {
		return ""
	}
	var b strings.Builder
	writeElement(&b, d.Root, 0, pretty, d.Namespaces)
	s := b.String()
	if pretty {
		s = strings.TrimPrefix(s, "\n")
	}
	return s
}

func writeElement(b *strings.Builder, el *XmlElement, depth int, pretty bool, rootNamespaces map[string]string) {
	indent := ""
	if pretty {
		b.WriteByte('\n')
		indent = strings.Repeat("  ", depth)
		b.WriteString(indent)
	}

	b.WriteByte('<')
	b.WriteString(qualifiedName(el))

	if el.IsRoot {
		writeNamespaceDecls(b, rootNamespaces, pretty, depth)
	}

	for _, a := range el.Attributes {
		if pretty {
			b.WriteByte('\n')
			b.WriteString(indent)
			b.WriteString("  ")
		} else {
			b.WriteByte(' ')
		}
		if a.NamespacePrefix != "" {
			b.WriteString(a.NamespacePrefix)
			b.WriteByte(':')
		}
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.Value))
		b.WriteByte('"')
	}

	if len(el.Children) == 0 && len(el.Text) == 0 {
		if pretty && len(el.Attributes) > 0 {
			b.WriteByte('\n')
			b.WriteString(indent)
		}
		b.WriteString("/>")
		return
	}

	b.WriteByte('>')

	for _, line := range el.Text {
		for _, part := range strings.Split(line, "\n") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if pretty {
				b.WriteByte('\n')
				b.WriteString(indent)
				b.WriteString("  ")
			}
			b.WriteString("<![CDATA[")
			b.WriteString(part)
			b.WriteString("]]>")
		}
	}

	for _, child := range el.Children {
		writeElement(b, child, depth+1, pretty, rootNamespaces)
	}

	if pretty {
		b.WriteByte('\n')
		b.WriteString(indent)
	}
	b.WriteString("</")
	b.WriteString(qualifiedName(el))
	b.WriteByte('>')
}

func qualifiedName(el *XmlElement) string {
	if el.NamespacePrefix == "" {
		return el.Name
	}
	return el.NamespacePrefix + ":" + el.Name
}

func writeNamespaceDecls(b *strings.Builder, namespaces map[string]string, pretty bool, depth int) {
	uris := make([]string, 0, len(namespaces))
	for uri := range namespaces {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	indent := strings.Repeat("  ", depth)
	for _, uri := range uris {
		prefix := namespaces[uri]
		if prefix == "" {
			continue
		}
		if pretty {
			b.WriteByte('\n')
			b.WriteString(indent)
			b.WriteString("  ")
		} else {
			b.WriteByte(' ')
		}
		b.WriteString("xmlns:")
		b.WriteString(prefix)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(uri))
		b.WriteByte('"')
	}
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
