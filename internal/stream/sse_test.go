package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReader_SingleFrame(t *testing.T) {
	reader := newSSEReader(strings.NewReader(
		"event: append\ndata: {\"content\":\"hello\"}\n\n"))

	f, err := reader.next()
	require.NoError(t, err)
	assert.Equal(t, "append", f.name)
	assert.Equal(t, `{"content":"hello"}`, f.data)

	_, err = reader.next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReader_MultipleFrames(t *testing.T) {
	body := "event: init\ndata: {\"file\":\"bot.log\",\"content\":\"A\"}\n\n" +
		"event: append\ndata: {\"content\":\"B\"}\n\n" +
		"event: ping\ndata: {}\n\n"
	reader := newSSEReader(strings.NewReader(body))

	names := []string{}
	for {
		f, err := reader.next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, f.name)
	}
	assert.Equal(t, []string{"init", "append", "ping"}, names)
}

func TestSSEReader_MultiLineDataJoinedWithNewlines(t *testing.T) {
	reader := newSSEReader(strings.NewReader(
		"event: append\ndata: first\ndata: second\n\n"))

	f, err := reader.next()
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", f.data)
}

func TestSSEReader_CommentsAndBlankPrologueSkipped(t *testing.T) {
	reader := newSSEReader(strings.NewReader(
		": keep-alive\n\n\nevent: reset\ndata: {}\n\n"))

	f, err := reader.next()
	require.NoError(t, err)
	assert.Equal(t, "reset", f.name)
}

func TestSSEReader_DefaultEventName(t *testing.T) {
	reader := newSSEReader(strings.NewReader("data: plain\n\n"))

	f, err := reader.next()
	require.NoError(t, err)
	assert.Equal(t, "message", f.name)
	assert.Equal(t, "plain", f.data)
}

func TestSSEReader_CRLFTolerated(t *testing.T) {
	reader := newSSEReader(strings.NewReader(
		"event: append\r\ndata: x\r\n\r\n"))

	f, err := reader.next()
	require.NoError(t, err)
	assert.Equal(t, "append", f.name)
	assert.Equal(t, "x", f.data)
}

func TestSSEReader_ValueWithoutSpaceAfterColon(t *testing.T) {
	reader := newSSEReader(strings.NewReader("event:append\ndata:y\n\n"))

	f, err := reader.next()
	require.NoError(t, err)
	assert.Equal(t, "append", f.name)
	assert.Equal(t, "y", f.data)
}

func TestDecodeEvent_KnownKinds(t *testing.T) {
	ev := decodeEvent("init", []byte(`{"file":"bot.log","content":"boot"}`))
	assert.Equal(t, EventInit, ev.Kind)
	assert.Equal(t, "bot.log", ev.File)
	assert.Equal(t, "boot", ev.Content)

	ev = decodeEvent("error", []byte(`{"error":"log file removed"}`))
	assert.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "log file removed", ev.Message)
}

func TestDecodeEvent_UnknownNameBecomesPing(t *testing.T) {
	ev := decodeEvent("heartbeat", []byte(`{}`))
	assert.Equal(t, EventPing, ev.Kind)
}

func TestDecodeEvent_MalformedPayloadToleratedAsEmpty(t *testing.T) {
	ev := decodeEvent("append", []byte(`{not json`))
	assert.Equal(t, EventAppend, ev.Kind)
	assert.Empty(t, ev.Content)
}
