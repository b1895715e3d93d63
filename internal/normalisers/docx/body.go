package docx

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// block is one direct child of w:body: a non-empty paragraph or a table.
type block struct {
	isTable bool
	text    string
	rows    [][]string
}

// parseBody streams word/document.xml and returns the body's paragraphs and
// tables in document order. Content controls (w:sdt) are transparent.
func parseBody(r io.Reader) ([]block, error) {
	dec := xml.NewDecoder(r)

	if err := seekBody(dec); err != nil {
		return nil, err
	}

	var blocks []block
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				text, err := readParagraph(dec)
				if err != nil {
					return nil, err
				}
				if text != "" {
					blocks = append(blocks, block{text: text})
				}
			case "tbl":
				rows, err := readTable(dec)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, block{isTable: true, rows: rows})
			case "sdt", "sdtContent":
				// Descend.
			default:
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				return blocks, nil
			}
		}
	}
}

// seekBody advances the decoder past the w:body start tag.
func seekBody(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return errors.New("document has no body")
		}
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "body" {
			return nil
		}
	}
}

// readParagraph collects the visible text of a w:p whose start tag has been
// consumed. Runs inside hyperlinks, smart tags and fields are included;
// deleted text, field instructions, properties and drawings are not.
func readParagraph(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	inText := false

	for depth := 0; ; {
		tok, err := dec.Token()
		if err != nil {
			return "", unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr", "rPr", "delText", "instrText", "drawing", "pict", "object", "AlternateContent":
				if err := dec.Skip(); err != nil {
					return "", err
				}
				continue
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
			depth++
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return cleanText(sb.String()), nil
			}
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		}
	}
}

// cell is a w:tc before expansion onto the table grid.
type cell struct {
	text  string
	span  int
	merge mergeState
}

type mergeState int

const (
	mergeNone mergeState = iota
	mergeRestart
	mergeContinue
)

// readTable reads a w:tbl whose start tag has been consumed into grid rows.
// Horizontally merged cells repeat their text across every spanned column and
// vertically merged continuations repeat the text of the cell above.
func readTable(dec *xml.Decoder) ([][]string, error) {
	var (
		rows  [][]string
		above []string
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tr" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			cells, err := readRow(dec)
			if err != nil {
				return nil, err
			}
			row := expandRow(cells, above)
			rows = append(rows, row)
			above = row
		case xml.EndElement:
			return rows, nil
		}
	}
}

func expandRow(cells []cell, above []string) []string {
	var row []string
	for _, c := range cells {
		for i := 0; i < c.span; i++ {
			text := c.text
			if c.merge == mergeContinue && len(row) < len(above) {
				text = above[len(row)]
			}
			row = append(row, text)
		}
	}
	return row
}

// readRow reads the cells of a w:tr whose start tag has been consumed.
func readRow(dec *xml.Decoder) ([]cell, error) {
	var cells []cell
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tc" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			c, err := readCell(dec)
			if err != nil {
				return nil, err
			}
			cells = append(cells, c)
		case xml.EndElement:
			return cells, nil
		}
	}
}

// readCell reads a w:tc whose start tag has been consumed. The cell's own
// paragraphs are joined with a space; nested tables are ignored.
func readCell(dec *xml.Decoder) (cell, error) {
	c := cell{span: 1}
	var parts []string

	for {
		tok, err := dec.Token()
		if err != nil {
			return c, unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tcPr":
				if err := readCellProps(dec, &c); err != nil {
					return c, err
				}
			case "p":
				text, err := readParagraph(dec)
				if err != nil {
					return c, err
				}
				if text != "" {
					parts = append(parts, text)
				}
			case "sdt", "sdtContent":
				// Descend.
			default:
				if err := dec.Skip(); err != nil {
					return c, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tc" {
				c.text = strings.Join(parts, " ")
				return c, nil
			}
		}
	}
}

// readCellProps reads gridSpan and vMerge from a w:tcPr.
func readCellProps(dec *xml.Decoder, c *cell) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "gridSpan":
				if n, err := strconv.Atoi(attrVal(t)); err == nil && n > 1 {
					c.span = n
				}
			case "vMerge":
				if attrVal(t) == "restart" {
					c.merge = mergeRestart
				} else {
					c.merge = mergeContinue
				}
			}
			if err := dec.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func attrVal(se xml.StartElement) string {
	for _, a := range se.Attr {
		if a.Name.Local == "val" {
			return a.Value
		}
	}
	return ""
}

// cleanText applies NFC normalisation and trims surrounding whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
