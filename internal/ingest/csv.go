package ingest

import "strings"

// Table is the tokenized content of a CSV document, header row included.
type Table struct {
	Delimiter rune
	Rows      [][]string
}

// ParseCSV splits text into trimmed field rows. The delimiter is sniffed from the
// header line: ';' when present, ',' otherwise. Blank lines are dropped and parsing
// never fails; a malformed line still yields a row.
func ParseCSV(text string) Table {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return Table{Delimiter: ','}
	}

	delim := ','
	if strings.ContainsRune(lines[0], ';') {
		delim = ';'
	}

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, parseLine(line, delim))
	}
	return Table{Delimiter: delim, Rows: rows}
}

func parseLine(line string, delim rune) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch == '"' {
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			continue
		}
		if !inQuotes && ch == delim {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(ch)
	}
	return append(out, strings.TrimSpace(cur.String()))
}
