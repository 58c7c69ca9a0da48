package irc

import (
	"strings"

	"github.com/pkg/errors"
)

// Wire format limits.
const (
	// MaxArgs is the maximum number of space separated positional arguments.
	MaxArgs = 15
	// MaxLineBytes is the maximum size of an encoded line including the terminator.
	MaxLineBytes = 512
	// LineTerminator ends every outbound line.
	LineTerminator = "\r\n"
)

// Message is one protocol message.
//
// Args never contain a space. Trailing is the only field that may,
// and it is only meaningful when HasTrailing is set.
type Message struct {
	Prefix      string // origin of the message, empty when absent
	Command     string
	Args        []string
	Trailing    string
	HasTrailing bool
}

// NewMessage returns a message with the given command and positional arguments.
func NewMessage(command string, args ...string) Message {
	return Message{Command: command, Args: args}
}

// WithTrailing returns a copy of m carrying the trailing argument text.
func (m Message) WithTrailing(text string) Message {
	m.Trailing = text
	m.HasTrailing = true
	return m
}

// WithPrefix returns a copy of m carrying the given prefix.
func (m Message) WithPrefix(prefix string) Message {
	m.Prefix = prefix
	return m
}

// Arg returns the i-th positional argument or "" when out of range.
func (m Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// String returns the framed line without terminator.
func (m Message) String() string {
	return Pack(m)
}

// Pack frames m into a single wire line, without the line terminator.
// Pack does not validate; Send does that before queueing.
func Pack(m Message) string {
	parts := make([]string, 0, len(m.Args)+3)

	if m.Prefix != "" {
		parts = append(parts, ":"+m.Prefix)
	}
	parts = append(parts, m.Command)
	parts = append(parts, m.Args...)

	if m.HasTrailing {
		parts = append(parts, ":"+m.Trailing)
	}

	return strings.Join(parts, " ")
}

// Split parses a single wire line, without terminator, into a Message.
//
// Everything after the first " :" is the trailing argument. The rest is split on
// whitespace: a leading token starting with ':' is the prefix, the next token the
// command and the remaining tokens the positional arguments.
func Split(line string) (Message, error) {
	var m Message

	rest := line
	if i := strings.Index(line, " :"); i >= 0 {
		rest = line[:i]
		m.Trailing = line[i+2:]
		m.HasTrailing = true
	}

	tokens := strings.Fields(rest)
	if len(tokens) > 0 && strings.HasPrefix(tokens[0], ":") {
		m.Prefix = tokens[0][1:]
		tokens = tokens[1:]
	}

	if len(tokens) == 0 {
		return Message{}, errors.Wrapf(ErrMalformedMessage, "no command in %q", line)
	}

	m.Command = tokens[0]
	if len(tokens) > 1 {
		m.Args = tokens[1:]
	}

	return m, nil
}

// validate checks the positional argument rules, in the order Send applies them.
func (m Message) validate() error {
	if len(m.Args) > MaxArgs {
		return errors.Wrapf(ErrArgumentCountExceeded, "message has %d arguments, at most %d allowed", len(m.Args), MaxArgs)
	}

	for _, arg := range m.Args {
		if strings.Contains(arg, " ") {
			return errors.Wrapf(ErrArgumentFormatInvalid, "argument %q", arg)
		}
	}

	return nil
}
