package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack(t *testing.T) {
	m := Message{
		Prefix:      "nick!user@host",
		Command:     "PRIVMSG",
		Args:        []string{"#chan"},
		Trailing:    "hello world",
		HasTrailing: true,
	}

	assert.Equal(t, ":nick!user@host PRIVMSG #chan :hello world", Pack(m))
	assert.Equal(t, Pack(m), m.String())
}

func TestPack_Variants(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"command only", NewMessage("QUIT"), "QUIT"},
		{"args", NewMessage("MODE", "#c", "+o", "nick"), "MODE #c +o nick"},
		{"empty trailing", NewMessage("PING").WithTrailing(""), "PING :"},
		{"prefix", NewMessage("JOIN", "#c").WithPrefix("srv"), ":srv JOIN #c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pack(tt.msg))
		})
	}
}

func TestSplit(t *testing.T) {
	m, err := Split(":irc.example.net 001 me :Welcome to the network, me")
	require.NoError(t, err)

	assert.Equal(t, "irc.example.net", m.Prefix)
	assert.Equal(t, "001", m.Command)
	assert.Equal(t, []string{"me"}, m.Args)
	assert.True(t, m.HasTrailing)
	assert.Equal(t, "Welcome to the network, me", m.Trailing)
}

func TestSplit_NoTrailing(t *testing.T) {
	m, err := Split("MODE #chan  +o   nick")
	require.NoError(t, err)

	assert.Empty(t, m.Prefix)
	assert.Equal(t, "MODE", m.Command)
	assert.Equal(t, []string{"#chan", "+o", "nick"}, m.Args)
	assert.False(t, m.HasTrailing)
}

func TestSplit_TrailingKeepsColons(t *testing.T) {
	m, err := Split("PRIVMSG #c :look :) at this")
	require.NoError(t, err)

	assert.Equal(t, "look :) at this", m.Trailing)
}

func TestSplit_Malformed(t *testing.T) {
	for _, line := range []string{":prefix-only", ":prefix :trailing", "   "} {
		_, err := Split(line)
		assert.ErrorIs(t, err, ErrMalformedMessage, line)
	}
}

func TestPackSplit_RoundTrip(t *testing.T) {
	msgs := []Message{
		NewMessage("QUIT"),
		NewMessage("PING").WithTrailing("abc"),
		NewMessage("PRIVMSG", "#chan").WithTrailing("hello world").WithPrefix("nick!user@host"),
		NewMessage("MODE", "#c", "+ov", "a", "b").WithPrefix("srv"),
		NewMessage("TOPIC", "#c").WithTrailing(""),
		NewMessage("NOTICE", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o").WithTrailing("x y"),
	}

	for _, m := range msgs {
		got, err := Split(Pack(m))
		require.NoError(t, err)
		assert.Equal(t, m, got, Pack(m))
	}
}

func TestMessage_Arg(t *testing.T) {
	m := NewMessage("KICK", "#c", "nick")

	assert.Equal(t, "#c", m.Arg(0))
	assert.Equal(t, "nick", m.Arg(1))
	assert.Equal(t, "", m.Arg(2))
	assert.Equal(t, "", m.Arg(-1))
}

func TestMessage_Validate(t *testing.T) {
	args := make([]string, MaxArgs+1)
	for i := range args {
		args[i] = "a"
	}

	assert.ErrorIs(t, NewMessage("X", args...).validate(), ErrArgumentCountExceeded)
	assert.NoError(t, NewMessage("X", args[:MaxArgs]...).validate())
	assert.ErrorIs(t, NewMessage("PRIVMSG", "#chan", "bad arg").validate(), ErrArgumentFormatInvalid)

	// count is checked before format
	args[0] = "bad arg"
	assert.ErrorIs(t, NewMessage("X", args...).validate(), ErrArgumentCountExceeded)
}
