package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectFrames(t *testing.T, body string, f framing) []frame {
	t.Helper()
	var out []frame
	err := readFrames(strings.NewReader(body), f, func(fr frame) bool {
		out = append(out, fr)
		return true
	})
	require.NoError(t, err)
	return out
}

func frameData(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = string(f.data)
	}
	return out
}

func TestDetectFraming(t *testing.T) {
	assert.Equal(t, framingSSE, detectFraming("text/event-stream; charset=utf-8"))
	assert.Equal(t, framingJSON, detectFraming("application/x-ndjson"))
	assert.Equal(t, framingJSON, detectFraming("application/json"))
	assert.Equal(t, framingText, detectFraming("text/plain"))
	assert.Equal(t, framingAuto, detectFraming(""))
}

func TestReadSSE(t *testing.T) {
	body := "event: delta\ndata: {\"a\":1}\n\n: comment\ndata: plain words\n\ndata: [DONE]\n\ndata: {\"after\":true}\n\n"
	frames := collectFrames(t, body, framingSSE)

	require.Len(t, frames, 2)
	assert.Equal(t, `{"a":1}`, string(frames[0].data))
	assert.False(t, frames[0].raw)
	assert.Equal(t, "plain words", string(frames[1].data))
	assert.True(t, frames[1].raw)
}

func TestReadJSONArray(t *testing.T) {
	body := "[{\"candidates\": [\n  {\"x\": \"}{\"}\n]}\n,\r\n{\"y\": 2}\n]"
	frames := collectFrames(t, body, framingJSON)
	assert.Equal(t, []string{"{\"candidates\": [\n  {\"x\": \"}{\"}\n]}", `{"y": 2}`}, frameData(frames))
}

func TestReadNDJSON(t *testing.T) {
	body := "{\"a\":1}\n{\"b\":2}\n"
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, frameData(collectFrames(t, body, framingJSON)))
}

func TestReadText(t *testing.T) {
	frames := collectFrames(t, "line one\nline two", framingText)
	assert.Equal(t, []string{"line one\n", "line two"}, frameData(frames))
	assert.True(t, frames[0].raw)
}

func TestSniffFraming(t *testing.T) {
	assert.Equal(t, []string{`{"a":1}`}, frameData(collectFrames(t, "data: {\"a\":1}\n\n", framingAuto)))
	assert.Equal(t, []string{`{"a":1}`}, frameData(collectFrames(t, "  {\"a\":1}", framingAuto)))
	assert.Equal(t, []string{"hello\n"}, frameData(collectFrames(t, "hello\n", framingAuto)))
	assert.Equal(t, []string{"done\n"}, frameData(collectFrames(t, "done\n", framingAuto)))
}

func TestReadFramesStopsWhenEmitReturnsFalse(t *testing.T) {
	calls := 0
	err := readFrames(strings.NewReader("data: 1\n\ndata: 2\n\n"), framingSSE, func(frame) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGeminiStreamEndpoint(t *testing.T) {
	assert.Equal(t, "/models/m:streamGenerateContent?alt=sse", geminiStreamEndpoint("/models/m:generateContent"))
	assert.Equal(t, "/models/m:streamGenerateContent?x=1&alt=sse", geminiStreamEndpoint("/models/m:generateContent?x=1"))
	assert.Equal(t, "/models/m:streamGenerateContent?alt=json", geminiStreamEndpoint("/models/m:streamGenerateContent?alt=json"))
	assert.Equal(t, "/custom", geminiStreamEndpoint("/custom"))
}
