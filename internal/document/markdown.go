package document

import (
	"bufio"
	"bytes"
	"strings"
)

// markdownCodec writes "# heading" followed by one paragraph per line,
// separated by blank lines.
type markdownCodec struct{}

func (markdownCodec) encode(heading string, lines []string) ([]byte, error) {
	var b bytes.Buffer
	if heading != "" {
		b.WriteString("# ")
		b.WriteString(heading)
		b.WriteString("\n")
	}
	for _, line := range lines {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

func (markdownCodec) decode(data []byte) (string, []string, error) {
	var heading string
	var lines []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if first && strings.HasPrefix(line, "# ") {
			heading = strings.TrimPrefix(line, "# ")
			first = false
			continue
		}
		first = false
		lines = append(lines, line)
	}
	return heading, lines, sc.Err()
}
