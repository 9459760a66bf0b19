package gii

import (
	"fmt"
	"strings"
)

// LegalText is one flat, citable unit of a law: the paragraph text keyed by
// its citation triple. Code is always the caller-supplied import code, not
// the in-document abbreviation, so later lookups use the key that triggered
// the import.
type LegalText struct {
	Text       string
	Code       string
	Section    string
	SubSection string
}

// PDFURL returns the official PDF location for a code on
// gesetze-im-internet.de.
func PDFURL(code string) string {
	return fmt.Sprintf("https://www.gesetze-im-internet.de/%s/%s.pdf", code, code)
}

// HTMLURL returns the official HTML index location for a code.
func HTMLURL(code string) string {
	return fmt.Sprintf("https://www.gesetze-im-internet.de/%s/index.html", code)
}

// Extract flattens a parsed document into citable units, one per paragraph
// of every norm that has both a designation and formatted text. Unit order
// follows norm document order, then paragraph order; it is not citation
// numeric order.
//
// When the document yields no such unit but contains at least one norm,
// exactly one fallback unit with section "Metadaten" is synthesized from
// the first norm's metadata so the caller can surface the externally hosted
// source. International agreements are indexed this way without a full text.
func Extract(doc *Dokumente, code string) []LegalText {
	var units []LegalText

	for _, norm := range doc.Norms {
		if norm.Metadaten.Enbez == "" {
			continue
		}
		if norm.Textdaten == nil || norm.Textdaten.Text == nil || norm.Textdaten.Text.FormattedText == nil {
			continue
		}
		for _, p := range norm.Textdaten.Text.FormattedText.Paragraphs {
			units = append(units, LegalText{
				Text:       p,
				Code:       code,
				Section:    norm.Metadaten.Enbez,
				SubSection: subSection(p),
			})
		}
	}

	if len(units) == 0 && len(doc.Norms) > 0 {
		units = append(units, fallbackUnit(&doc.Norms[0], code))
	}
	return units
}

// subSection derives the sub-section identifier from the leading
// parenthesized numeral of a paragraph, e.g. "(1) ..." yields "1". A
// paragraph without one, or with an unclosed parenthetical, yields "".
func subSection(paragraph string) string {
	if !strings.HasPrefix(paragraph, "(") {
		return ""
	}
	end := strings.Index(paragraph, ")")
	if end < 0 {
		return ""
	}
	return paragraph[1:end]
}

func fallbackUnit(norm *Norm, code string) LegalText {
	meta := &norm.Metadaten

	title := meta.Langue
	if title == "" {
		title = meta.Kurzue
	}
	if title == "" {
		title = strings.ToUpper(code)
	}

	jurabk := strings.ToUpper(code)
	if len(meta.Jurabk) > 0 {
		jurabk = meta.Jurabk[0]
	}

	var fundstelle string
	if len(meta.Fundstellen) > 0 {
		fs := meta.Fundstellen[0]
		fundstelle = fmt.Sprintf(" (Fundstelle: %s %s)", fs.Periodikum, fs.Zitstelle)
	}

	var fussnoten string
	if norm.Textdaten != nil && norm.Textdaten.Fussnoten != nil && norm.Textdaten.Fussnoten.FormattedText != nil {
		fussnoten = strings.Join(norm.Textdaten.Fussnoten.FormattedText.Paragraphs, " ")
	}

	text := fmt.Sprintf(`[METADATA-ONLY] %s%s

Dieses Gesetz/Abkommen ist nicht als Volltext verfügbar.
Es handelt sich vermutlich um ein internationales Abkommen, einen Vertrag oder eine ältere Norm.

Offizieller Name: %s
Abkürzung: %s

Volltext verfügbar unter:
- PDF: %s
- HTML: %s

%s`, title, fundstelle, title, jurabk, PDFURL(code), HTMLURL(code), fussnoten)

	return LegalText{
		Text:       strings.TrimSpace(text),
		Code:       code,
		Section:    "Metadaten",
		SubSection: "",
	}
}
