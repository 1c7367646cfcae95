package dicom

import (
	"bytes"
	"strings"
)

var crlf = []byte("\r\n")

// Part is one body part of a multipart/related payload. Body is a slice of the
// parsed buffer, not a copy.
type Part struct {
	Headers map[string]string
	Body    []byte
}

// Header looks up a header ignoring case.
func (p Part) Header(name string) string {
	if value, ok := p.Headers[name]; ok {
		return value
	}
	for key, value := range p.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// ParseBoundary extracts the boundary parameter of a Content-Type value,
// without surrounding quotes. It returns "" when there is none.
func ParseBoundary(contentType string) string {
	for _, item := range strings.Split(contentType, ";") {
		item = strings.TrimSpace(item)
		name, value, found := strings.Cut(item, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "boundary") {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.TrimPrefix(value, `"`)
		value = strings.TrimSuffix(value, `"`)
		return value
	}
	return ""
}

// ParseMultipart splits buf into parts delimited by "--boundary\r\n". Only
// delimiters at the start of the buffer or right after a CRLF count, so
// boundary-like bytes inside binary bodies are left alone. The closing
// "--boundary--" bounds the last part; without it the last part runs to the
// end of the buffer.
func ParseMultipart(buf []byte, boundary string) []Part {
	if boundary == "" {
		return nil
	}
	delimiter := []byte("--" + boundary + "\r\n")
	terminator := []byte("--" + boundary + "--")

	var stops []int
	for i := 0; ; i++ {
		i = findDelimiter(buf, delimiter, i)
		if i == -1 {
			break
		}
		stops = append(stops, i)
	}
	if len(stops) == 0 {
		return nil
	}

	end := findDelimiter(buf, terminator, stops[len(stops)-1]+1)
	if end == -1 {
		// last part runs to the end of the buffer, minus its trailing CRLF
		end = len(buf) + len(crlf)
		if bytes.HasSuffix(buf, crlf) {
			end = len(buf)
		}
	}
	stops = append(stops, end)

	parts := make([]Part, 0, len(stops)-1)
	for i := 0; i < len(stops)-1; i++ {
		start := stops[i] + len(delimiter)
		stop := stops[i+1] - 2
		if stop < start {
			continue
		}
		part, ok := parsePart(buf[start:stop:stop])
		if ok {
			parts = append(parts, part)
		}
	}
	return parts
}

// parsePart reads CRLF-terminated header lines up to the first empty line;
// the rest is the body. Lines without a colon become a header with an empty
// value. A part without a header terminator is dropped.
func parsePart(raw []byte) (Part, bool) {
	headers := make(map[string]string)
	offset := 0
	for {
		lineEnd := bytes.Index(raw[offset:], crlf)
		if lineEnd == -1 {
			return Part{}, false
		}
		line := raw[offset : offset+lineEnd]
		offset += lineEnd + len(crlf)
		if len(line) == 0 {
			return Part{Headers: headers, Body: raw[offset:]}, true
		}
		name, value, _ := strings.Cut(string(line), ":")
		headers[name] = strings.TrimSpace(value)
	}
}

// findDelimiter returns the index of the first occurrence of delimiter at or
// after start that begins a line, or -1.
func findDelimiter(buf, delimiter []byte, start int) int {
	for start <= len(buf)-len(delimiter) {
		index := bytes.Index(buf[start:], delimiter)
		if index == -1 {
			return -1
		}
		position := start + index
		if position == 0 || (position >= 2 && buf[position-2] == '\r' && buf[position-1] == '\n') {
			return position
		}
		start = position + 1
	}
	return -1
}
