package stream

import (
	"bufio"
	"io"
	"strings"
)

// frame is one raw server-sent event: the event name plus its data payload.
// Multi-line data fields are joined with newlines per the SSE wire format.
type frame struct {
	name string
	data string
}

// sseReader incrementally parses a text/event-stream body into frames.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &sseReader{scanner: scanner}
}

// next returns the next complete frame, or the underlying read error.
// Comment lines (leading colon) are skipped; an absent event field defaults
// to "message" per the SSE specification.
func (r *sseReader) next() (frame, error) {
	f := frame{name: "message"}
	var data []string
	sawField := false

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if sawField {
				f.data = strings.Join(data, "\n")
				return f, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			f.name = value
			sawField = true
		case "data":
			data = append(data, value)
			sawField = true
		}
		// id and retry fields are valid SSE but unused by this client.
	}

	if err := r.scanner.Err(); err != nil {
		return frame{}, err
	}
	return frame{}, io.EOF
}

func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
