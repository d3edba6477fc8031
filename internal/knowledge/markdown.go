package knowledge

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// LoadMarkdown reads extra facts from the markdown file at path.
func LoadMarkdown(path string) ([]Fact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMarkdown(f)
}

// ParseMarkdown turns a markdown document into facts:
//   - a heading switches the current product (detected from its text, or
//     general when it names none);
//   - every other non-empty line is one fact, with list bullets removed;
//   - table rows are flattened into one fact per row, separator rows are
//     skipped.
func ParseMarkdown(r io.Reader) ([]Fact, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		out     []Fact
		current Product
	)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		out = append(out, Fact{Product: current, Text: s})
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if p, ok := DetectProduct(heading); ok {
				current = p
			} else {
				current = ""
			}
			continue
		}

		// table row: "| ... |"
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			cols := strings.Split(strings.Trim(line, "|"), "|")
			allSep := true
			cells := make([]string, 0, len(cols))
			for _, c := range cols {
				cell := strings.TrimSpace(c)
				if cell != "" {
					cells = append(cells, cell)
				}
				if strings.Trim(cell, ":- ") != "" {
					allSep = false
				}
			}
			if allSep || len(cells) == 0 {
				continue
			}
			add(strings.Join(cells, " "))
			continue
		}

		add(stripBullet(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func stripBullet(line string) string {
	for _, b := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, b) {
			return line[len(b):]
		}
	}
	return line
}
