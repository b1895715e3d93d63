package docx

import "strings"

// TableToMarkdown renders rows as a markdown table. The first row is the
// header; every following row is padded with empty cells or truncated to the
// header's width. Tables with fewer than two rows render as "".
func TableToMarkdown(rows [][]string) string {
	if len(rows) < 2 {
		return ""
	}

	width := len(rows[0])
	lines := make([]string, 0, len(rows)+1)

	lines = append(lines, markdownRow(rows[0], width))

	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, markdownRow(sep, width))

	for _, row := range rows[1:] {
		lines = append(lines, markdownRow(row, width))
	}

	return strings.Join(lines, "\n")
}

func markdownRow(cells []string, width int) string {
	out := make([]string, width)
	for i := 0; i < width && i < len(cells); i++ {
		out[i] = escapeCell(cells[i])
	}
	return "| " + strings.Join(out, " | ") + " |"
}

func escapeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
