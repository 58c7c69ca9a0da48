package irc

import (
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used in both directions until SetEncoding is called.
var DefaultEncoding encoding.Encoding = unicode.UTF8

// LookupEncoding returns the text encoding registered under name.
// Latin-1 aliases resolve to ISO 8859-1 rather than the WHATWG windows-1252 mapping.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1", "l1":
		return charmap.ISO8859_1, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup encoding %q", name)
	}
	return enc, nil
}

// textCodec holds the encoding shared by the reader and the sender.
type textCodec struct {
	enc atomic.Pointer[encoding.Encoding]
}

func newTextCodec(enc encoding.Encoding) *textCodec {
	c := &textCodec{}
	c.set(enc)
	return c
}

func (c *textCodec) set(enc encoding.Encoding) {
	if enc == nil {
		enc = DefaultEncoding
	}
	c.enc.Store(&enc)
}

func (c *textCodec) get() encoding.Encoding {
	return *c.enc.Load()
}

func (c *textCodec) encode(s string) ([]byte, error) {
	b, err := c.get().NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(ErrEncoding, "encode %q: %v", s, err)
	}
	return b, nil
}

// decode converts b to a string. Invalid UTF-8 is an error rather than being
// replaced with U+FFFD.
func (c *textCodec) decode(b []byte) (string, error) {
	enc := c.get()
	if enc == unicode.UTF8 && !utf8.Valid(b) {
		return "", errors.Wrap(encoding.ErrInvalidUTF8, "decode line")
	}

	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(err, "decode line")
	}
	return string(s), nil
}
