package irc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
)

func TestLineBuffer_Feed(t *testing.T) {
	b := &lineBuffer{}

	lines, err := b.feed([]byte("PING :a\r\nPI"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING :a\r")}, lines)

	lines, err = b.feed([]byte("NG :b"))
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = b.feed([]byte("\r\n\r\nX\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING :b\r"), []byte("\r"), []byte("X")}, lines)
	assert.Empty(t, b.partial)
}

func TestLineBuffer_LinesAreCopies(t *testing.T) {
	b := &lineBuffer{}
	chunk := []byte("ab\ncd")

	lines, err := b.feed(chunk)
	require.NoError(t, err)

	copy(chunk, "zz")
	assert.Equal(t, "ab", string(lines[0]))
}

func TestLineBuffer_TooLong(t *testing.T) {
	b := &lineBuffer{limit: 4}

	_, err := b.feed([]byte("abcd"))
	require.NoError(t, err)

	lines, err := b.feed([]byte("\nefghi"))
	assert.Equal(t, [][]byte{[]byte("abcd")}, lines)
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestReader_SkipsBlankAndMalformedLines(t *testing.T) {
	logger := &mockLogger{}
	conn, peer := newTestConn(t, LoggerOption(logger))
	require.NoError(t, conn.Start(context.Background()))

	_, err := peer.Write([]byte("\r\n   \r\n:only-a-prefix\r\nPING :ok\r\n"))
	require.NoError(t, err)

	m := receive(t, conn)
	assert.Equal(t, "PING", m.Command)
	assert.Equal(t, "ok", m.Trailing)

	_, ok := conn.TryReceive()
	assert.False(t, ok)
	assert.True(t, logger.has("dropping malformed line"))
	assert.False(t, conn.HasCrashed())
}

func TestReader_TrimsLineEndings(t *testing.T) {
	conn, peer := newTestConn(t)
	require.NoError(t, conn.Start(context.Background()))

	// bare LF and trailing whitespace are both accepted
	_, err := peer.Write([]byte("NOTICE me :one  \nNOTICE me :two\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "one", receive(t, conn).Trailing)
	assert.Equal(t, "two", receive(t, conn).Trailing)
}

func TestReader_SmallReadBuffer(t *testing.T) {
	conn, peer := newTestConn(t, ReadBufferSizeOption(3))
	require.NoError(t, conn.Start(context.Background()))

	text := strings.Repeat("x", 100)
	_, err := peer.Write([]byte("PRIVMSG #c :" + text + "\r\n"))
	require.NoError(t, err)

	assert.Equal(t, text, receive(t, conn).Trailing)
}

func TestReader_MultibyteSplitAcrossReads(t *testing.T) {
	conn, peer := newTestConn(t)
	require.NoError(t, conn.Start(context.Background()))

	line := []byte("PRIVMSG #c :héllo\r\n")
	cut := strings.Index(string(line), "é") + 1

	_, err := peer.Write(line[:cut])
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = peer.Write(line[cut:])
	require.NoError(t, err)

	assert.Equal(t, "héllo", receive(t, conn).Trailing)
}

func TestReader_IdleTimeout(t *testing.T) {
	conn, _ := newTestConn(t, IdleTimeoutOption(50*time.Millisecond))
	require.NoError(t, conn.Start(context.Background()))

	require.Eventually(t, conn.HasCrashed, 5*time.Second, time.Millisecond)

	var fault *FaultError
	require.ErrorAs(t, conn.Err(), &fault)
	assert.Equal(t, "read", fault.Op)
}

func TestReader_InvalidUTF8IsFault(t *testing.T) {
	conn, peer := newTestConn(t)
	require.NoError(t, conn.Start(context.Background()))

	_, err := peer.Write([]byte("PING :ok\r\nPRIVMSG #c :\xff\xfe\r\nPING :after\r\n"))
	require.NoError(t, err)

	require.Eventually(t, conn.HasCrashed, 5*time.Second, time.Millisecond)

	var fault *FaultError
	require.ErrorAs(t, conn.Err(), &fault)
	assert.Equal(t, "read", fault.Op)
	assert.ErrorIs(t, fault, encoding.ErrInvalidUTF8)

	// lines before the bad one were delivered, nothing after it
	assert.Equal(t, "ok", receive(t, conn).Trailing)
	_, ok := conn.TryReceive()
	assert.False(t, ok)
}
