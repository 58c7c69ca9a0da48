package irc

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// lineBuffer reassembles a byte stream into lines separated by '\n'.
// Bytes after the last separator stay buffered until more data arrives.
type lineBuffer struct {
	partial []byte
	limit   int
}

// feed appends chunk and returns every complete line, without the separator.
// It returns ErrLineTooLong if the unterminated remainder grows past the limit.
func (b *lineBuffer) feed(chunk []byte) ([][]byte, error) {
	b.partial = append(b.partial, chunk...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		line := make([]byte, i)
		copy(line, b.partial[:i])
		lines = append(lines, line)
		b.partial = b.partial[i+1:]
	}

	if b.limit > 0 && len(b.partial) > b.limit {
		return lines, errors.Wrapf(ErrLineTooLong, "%d bytes without terminator", len(b.partial))
	}

	// Compact so the backing array does not keep consumed lines alive.
	if len(b.partial) == 0 {
		b.partial = nil
	}

	return lines, nil
}

// readLoop continuously reads from the connection, reassembles lines and
// queues the parsed messages. It returns when the context is canceled or the
// socket fails; a failure is recorded as the reader's crash and ends the loop
// for good. The unfinished partial line is dropped.
func (c *Conn) readLoop(ctx context.Context) error {
	buf := make([]byte, c.opts.readBufferSize)
	lines := &lineBuffer{limit: c.opts.maxLineLength}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.opts.idleTimeout > 0 {
			_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.idleTimeout))
		}

		n, err := c.rawConn.Read(buf)
		if n > 0 {
			complete, ferr := lines.feed(buf[:n])
			for _, raw := range complete {
				if derr := c.handleLine(raw); derr != nil {
					return c.crash(c.readerCrash, "reader", newFault("read", derr))
				}
			}
			if ferr != nil {
				return c.crash(c.readerCrash, "reader", newFault("read", ferr))
			}
		}

		if err != nil {
			if c.closing.Load() || ctx.Err() != nil {
				return nil
			}
			return c.crash(c.readerCrash, "reader", newFault("read", err))
		}
	}
}

// handleLine decodes, trims, parses and queues one raw line. Only a decoding
// failure is returned; blank and malformed lines are skipped.
func (c *Conn) handleLine(raw []byte) error {
	text, err := c.text.decode(raw)
	if err != nil {
		return err
	}

	line := strings.TrimRightFunc(text, unicode.IsSpace)
	if line == "" {
		return nil
	}

	c.logger.Debug("raw input", "line", line)

	msg, err := Split(line)
	if err != nil {
		c.logger.Warn("dropping malformed line", "line", line, "error", err)
		return nil
	}

	c.inbound.Push(msg)
	c.metrics.received.Inc()

	return nil
}
