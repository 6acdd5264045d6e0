// Stream framing: splits a streamed body into provider frames.
//
// Providers stream in one of three shapes:
// - SSE: "data: {...}" lines, optionally ended by "data: [DONE]"
// - JSON: NDJSON objects or a JSON array of objects
// - text: plain lines
//
// The shape comes from Content-Type, sniffed from the first bytes when the
// header says nothing useful.

package llm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	readBufferSize = 64 * 1024
	maxFrameSize   = 4 * 1024 * 1024
	sseDone        = "[DONE]"
)

type framing int

const (
	framingAuto framing = iota
	framingSSE
	framingJSON
	framingText
)

// frame is one unit of stream output. Raw frames are not JSON and are
// forwarded as text without parsing.
type frame struct {
	data []byte
	raw  bool
}

func detectFraming(contentType string) framing {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/event-stream"):
		return framingSSE
	case strings.Contains(ct, "json"):
		return framingJSON
	case strings.HasPrefix(ct, "text/plain"):
		return framingText
	default:
		return framingAuto
	}
}

// readFrames calls emit for each frame until the body ends, emit returns
// false or reading fails.
func readFrames(r io.Reader, f framing, emit func(frame) bool) error {
	br := bufio.NewReaderSize(r, readBufferSize)
	if f == framingAuto {
		f = sniffFraming(br)
	}
	switch f {
	case framingSSE:
		return readSSE(br, emit)
	case framingJSON:
		return readJSON(br, emit)
	default:
		return readText(br, emit)
	}
}

func sniffFraming(br *bufio.Reader) framing {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if len(b) < i {
			return framingText
		}
		c := b[i-1]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			if err != nil {
				return framingText
			}
			continue
		}
		switch c {
		case '{', '[':
			return framingJSON
		case ':', 'd', 'e', 'i':
			head, _ := br.Peek(i + 5)
			rest := head[i-1:]
			for _, prefix := range []string{"data:", "event:", "id:", ":"} {
				if bytes.HasPrefix(rest, []byte(prefix)) {
					return framingSSE
				}
			}
		}
		return framingText
	}
}

func readSSE(br *bufio.Reader, emit func(frame) bool) error {
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, readBufferSize), maxFrameSize)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == sseDone {
			return nil
		}
		data := []byte(payload)
		if !emit(frame{data: data, raw: !json.Valid(data)}) {
			return nil
		}
	}
	return sc.Err()
}

func readJSON(br *bufio.Reader, emit func(frame) bool) error {
	dec := json.NewDecoder(br)
	array := false
	if b, err := peekNonSpace(br); err == nil && b == '[' {
		if _, err := dec.Token(); err != nil {
			return err
		}
		array = true
	}
	for {
		if array && !dec.More() {
			_, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !emit(frame{data: raw}) {
			return nil
		}
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if len(b) < i {
			return 0, err
		}
		switch c := b[i-1]; c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c, nil
		}
	}
}

func readText(br *bufio.Reader, emit func(frame) bool) error {
	for {
		line, err := br.ReadString('\n')
		if line != "" && !emit(frame{data: []byte(line), raw: true}) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
