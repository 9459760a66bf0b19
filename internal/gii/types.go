// Package gii parses German statutory texts published by
// gesetze-im-internet.de in the gii-norm.dtd XML dialect and flattens them
// into citable text units.
package gii

// Fundstelle is a citation source (periodical + citation locus).
type Fundstelle struct {
	Periodikum string
	Zitstelle  string
	Typ        string // "amtlich" or "nichtamtlich"
	Anlagedat  string
	Dokst      string
	Abgabedat  string
}

// Gliederungseinheit is a structural unit descriptor (book, chapter, title).
type Gliederungseinheit struct {
	Kennzahl string
	Bez      string
	Titel    string
}

// Standangabe is a version annotation on a norm.
type Standangabe struct {
	Standtyp       string
	Standkommentar string
	Checked        string
}

// Metadaten holds the metadata block of a norm.
type Metadaten struct {
	Jurabk             []string // legal abbreviations, repeated element
	Amtabk             string   // official abbreviation
	AusfertigungDatum  string   // promulgation date
	DatumManuell       string   // "ja" when the date was entered manually
	Fundstellen        []Fundstelle
	Kurzue             string // short title
	Langue             string // long title
	Gliederungseinheit *Gliederungseinheit
	Enbez              string // designation, e.g. "§ 1"
	Titel              string
	TitelFormat        string
	Standangaben       []Standangabe
}

// Table captures a table opaquely: its caption plus the original markup,
// re-serializable for later rendering.
type Table struct {
	Title      string
	RawContent string
}

// FormattedText is the flattened content of a Content or TOC element.
type FormattedText struct {
	Content      string
	Paragraphs   []string
	Tables       []Table
	FootnoteRefs []string
}

// Footnote is a single footnote with its markup attributes.
type Footnote struct {
	ID      string
	Content string
	Prefix  string
	FnZ     string
	Postfix string
	Pos     string
	Group   string
}

// TextContent is one text section (body text or footnote block).
type TextContent struct {
	FormattedText *FormattedText
	Footnotes     []Footnote
	Format        string
}

// Textdaten holds the text sections of a norm.
type Textdaten struct {
	Text      *TextContent
	Fussnoten *TextContent
}

// Norm is one structural unit of a legal document: metadata plus optional
// text. A norm without a designation (Enbez) cannot yield citable units
// from its paragraphs.
type Norm struct {
	Metadaten Metadaten
	Textdaten *Textdaten
	Builddate string
	Doknr     string
}

// Dokumente is the parsed document tree: the ordered norms of one law.
type Dokumente struct {
	Norms     []Norm
	Builddate string
	Doknr     string
}
