package gii

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrInvalidXML marks a document that is not well-formed XML at the root
// level. Missing optional elements never produce this error.
var ErrInvalidXML = errors.New("invalid xml document")

// element is a minimal DOM node. Character data before the first child is
// kept in text; character data following an element inside its parent is
// kept in tail, so mixed content round-trips the way the dialect nests it.
type element struct {
	tag      string
	attrs    []xml.Attr
	text     string
	tail     string
	children []*element
}

func (e *element) attr(name string) string {
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// find returns the first direct child with the given tag, or nil.
func (e *element) find(tag string) *element {
	for _, c := range e.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// findAll returns all direct children with the given tag, in document order.
func (e *element) findAll(tag string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns all matching elements below e, depth-first.
func (e *element) descendants(tag string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.tag == tag {
			out = append(out, c)
		}
		out = append(out, c.descendants(tag)...)
	}
	return out
}

// trimmedText returns the direct text of the element with surrounding
// whitespace removed.
func (e *element) trimmedText() string {
	return strings.TrimSpace(e.text)
}

func buildElement(dec *xml.Decoder, start xml.StartElement) (*element, error) {
	el := &element{tag: start.Name.Local, attrs: start.Attr}
	var last *element
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := buildElement(dec, t)
			if err != nil {
				return nil, err
			}
			el.children = append(el.children, child)
			last = child
		case xml.CharData:
			if last == nil {
				el.text += string(t)
			} else {
				last.tail += string(t)
			}
		case xml.EndElement:
			return el, nil
		}
	}
}

// buildTree decodes the document into a DOM, returning the root element.
// Non-whitespace content after the root closes is an error.
func buildTree(dec *xml.Decoder) (*element, error) {
	var root *element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if root == nil {
				return nil, errors.New("no root element")
			}
			return root, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, errors.New("extra content after document root")
			}
			root, err = buildElement(dec, t)
			if err != nil {
				return nil, err
			}
		case xml.CharData:
			if root != nil && strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("extra content after document root")
			}
		}
	}
}

// Parse decodes a gii-norm XML document into its typed tree.
//
// Parsing is purely structural: absent optional elements leave fields
// empty, and a malformed sub-element yields fewer fields rather than an
// error. Only syntactically invalid XML at the document level fails.
func Parse(data []byte) (*Dokumente, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	root, err := buildTree(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXML, err)
	}
	return parseDokumente(root), nil
}

func parseDokumente(root *element) *Dokumente {
	doc := &Dokumente{
		Builddate: root.attr("builddate"),
		Doknr:     root.attr("doknr"),
	}
	for _, normEl := range root.findAll("norm") {
		doc.Norms = append(doc.Norms, parseNorm(normEl))
	}
	return doc
}

func parseNorm(el *element) Norm {
	norm := Norm{
		Builddate: el.attr("builddate"),
		Doknr:     el.attr("doknr"),
	}
	if meta := el.find("metadaten"); meta != nil {
		norm.Metadaten = parseMetadaten(meta)
	}
	if td := el.find("textdaten"); td != nil {
		norm.Textdaten = parseTextdaten(td)
	}
	return norm
}

func parseMetadaten(el *element) Metadaten {
	meta := Metadaten{}

	for _, j := range el.findAll("jurabk") {
		if t := j.trimmedText(); t != "" {
			meta.Jurabk = append(meta.Jurabk, t)
		}
	}
	if amtabk := el.find("amtabk"); amtabk != nil {
		meta.Amtabk = amtabk.trimmedText()
	}
	if datum := el.find("ausfertigung-datum"); datum != nil {
		meta.AusfertigungDatum = datum.trimmedText()
		meta.DatumManuell = datum.attr("manuell")
	}
	for _, fs := range el.findAll("fundstelle") {
		if f, ok := parseFundstelle(fs); ok {
			meta.Fundstellen = append(meta.Fundstellen, f)
		}
	}
	if kurzue := el.find("kurzue"); kurzue != nil {
		meta.Kurzue = collectText(kurzue)
	}
	if langue := el.find("langue"); langue != nil {
		meta.Langue = collectText(langue)
	}
	if g := el.find("gliederungseinheit"); g != nil {
		meta.Gliederungseinheit = parseGliederungseinheit(g)
	}
	if enbez := el.find("enbez"); enbez != nil {
		meta.Enbez = enbez.trimmedText()
	}
	if titel := el.find("titel"); titel != nil {
		meta.Titel = collectText(titel)
		meta.TitelFormat = titel.attr("format")
	}
	for _, st := range el.findAll("standangabe") {
		if s, ok := parseStandangabe(st); ok {
			meta.Standangaben = append(meta.Standangaben, s)
		}
	}
	return meta
}

func parseFundstelle(el *element) (Fundstelle, bool) {
	periodikum := el.find("periodikum")
	zitstelle := el.find("zitstelle")
	if periodikum == nil || zitstelle == nil {
		return Fundstelle{}, false
	}
	fs := Fundstelle{
		Periodikum: periodikum.trimmedText(),
		Zitstelle:  zitstelle.trimmedText(),
		Typ:        el.attr("typ"),
	}
	if anlage := el.find("anlageabgabe"); anlage != nil {
		if d := anlage.find("anlagedat"); d != nil {
			fs.Anlagedat = d.trimmedText()
		}
		if d := anlage.find("dokst"); d != nil {
			fs.Dokst = d.trimmedText()
		}
		if d := anlage.find("abgabedat"); d != nil {
			fs.Abgabedat = d.trimmedText()
		}
	}
	return fs, true
}

func parseGliederungseinheit(el *element) *Gliederungseinheit {
	kennzahl := el.find("gliederungskennzahl")
	if kennzahl == nil || kennzahl.trimmedText() == "" {
		return nil
	}
	g := &Gliederungseinheit{Kennzahl: kennzahl.trimmedText()}
	if bez := el.find("gliederungsbez"); bez != nil {
		g.Bez = bez.trimmedText()
	}
	if titel := el.find("gliederungstitel"); titel != nil {
		g.Titel = collectText(titel)
	}
	return g
}

func parseStandangabe(el *element) (Standangabe, bool) {
	standtyp := el.find("standtyp")
	kommentar := el.find("standkommentar")
	if standtyp == nil || kommentar == nil {
		return Standangabe{}, false
	}
	return Standangabe{
		Standtyp:       standtyp.trimmedText(),
		Standkommentar: collectText(kommentar),
		Checked:        el.attr("checked"),
	}, true
}

func parseTextdaten(el *element) *Textdaten {
	td := &Textdaten{}
	if text := el.find("text"); text != nil {
		td.Text = parseTextContent(text)
	}
	if fn := el.find("fussnoten"); fn != nil {
		td.Fussnoten = parseTextContent(fn)
	}
	return td
}

func parseTextContent(el *element) *TextContent {
	tc := &TextContent{Format: el.attr("format")}

	// Body text lives in Content; tables of contents use TOC. Either is an
	// equivalent source of paragraphs.
	target := el.find("Content")
	if target == nil {
		target = el.find("TOC")
	}
	if target != nil {
		tc.FormattedText = parseFormattedContent(target)
	}

	if footnotes := el.find("Footnotes"); footnotes != nil {
		for _, fn := range footnotes.findAll("Footnote") {
			if f, ok := parseFootnote(fn); ok {
				tc.Footnotes = append(tc.Footnotes, f)
			}
		}
	}
	return tc
}

func parseFormattedContent(el *element) *FormattedText {
	ft := &FormattedText{}

	for _, p := range el.descendants("P") {
		if text := collectText(p); text != "" {
			ft.Paragraphs = append(ft.Paragraphs, text)
		}
	}
	for _, tbl := range el.descendants("table") {
		ft.Tables = append(ft.Tables, parseTable(tbl))
	}
	ft.Content = collectText(el)
	for _, fnr := range el.descendants("FnR") {
		if id := fnr.attr("ID"); id != "" {
			ft.FootnoteRefs = append(ft.FootnoteRefs, id)
		}
	}
	return ft
}

func parseTable(el *element) Table {
	tbl := Table{RawContent: serialize(el)}
	if title := el.find("Title"); title != nil {
		tbl.Title = collectText(title)
	}
	return tbl
}

func parseFootnote(el *element) (Footnote, bool) {
	id := el.attr("ID")
	if id == "" {
		return Footnote{}, false
	}
	return Footnote{
		ID:      id,
		Content: collectText(el),
		Prefix:  el.attr("Prefix"),
		FnZ:     el.attr("FnZ"),
		Postfix: el.attr("Postfix"),
		Pos:     el.attr("Pos"),
		Group:   el.attr("Group"),
	}, true
}

// collectText flattens an element's mixed content into plain text: direct
// text, then each child (BR becomes a newline) followed by its tail. Lines
// are trimmed and empty lines dropped, preserving line order.
func collectText(el *element) string {
	var sb strings.Builder
	collectRecursive(el, &sb)

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func collectRecursive(el *element, sb *strings.Builder) {
	sb.WriteString(el.text)
	for _, child := range el.children {
		if child.tag == "BR" {
			sb.WriteString("\n")
		} else {
			collectRecursive(child, sb)
		}
		sb.WriteString(child.tail)
	}
}

// serialize re-emits an element subtree as XML markup. Used to capture
// tables verbatim so they can be rendered later.
func serialize(el *element) string {
	var sb strings.Builder
	writeElement(&sb, el)
	return sb.String()
}

func writeElement(sb *strings.Builder, el *element) {
	sb.WriteString("<")
	sb.WriteString(el.tag)
	for _, a := range el.attrs {
		sb.WriteString(" ")
		sb.WriteString(a.Name.Local)
		sb.WriteString(`="`)
		xml.EscapeText(sb, []byte(a.Value))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	xml.EscapeText(sb, []byte(el.text))
	for _, child := range el.children {
		writeElement(sb, child)
		xml.EscapeText(sb, []byte(child.tail))
	}
	sb.WriteString("</")
	sb.WriteString(el.tag)
	sb.WriteString(">")
}
