package irc

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Send validates m, frames and encodes it and queues the line for writing.
//
// The checks run in this order: argument count, spaces in arguments, encoding,
// encoded length including the terminator. When any check fails nothing is
// queued. Send never blocks: the outbound queue is unbounded and pacing
// happens in the write loop. Once the write loop has stopped, or Shutdown or
// Close has begun, Send returns ErrConnectionClosed.
func (c *Conn) Send(m Message) error {
	if c.sendClosed.Load() {
		c.metrics.rejected.WithLabelValues(reasonClosed).Inc()
		return ErrConnectionClosed
	}

	data, reason, err := c.frame(m)
	if err != nil {
		c.metrics.rejected.WithLabelValues(reason).Inc()
		return err
	}

	c.outbound.Push(data)
	c.metrics.queueDepth.Set(float64(c.outbound.Len()))

	return nil
}

// frame returns the encoded wire line for m, or the rejection reason and error.
func (c *Conn) frame(m Message) ([]byte, string, error) {
	if err := m.validate(); err != nil {
		if errors.Is(err, ErrArgumentCountExceeded) {
			return nil, reasonArgumentCount, err
		}
		return nil, reasonArgumentFormat, err
	}

	data, err := c.text.encode(Pack(m) + LineTerminator)
	if err != nil {
		return nil, reasonEncoding, err
	}

	if len(data) > MaxLineBytes {
		return nil, reasonTooLong, errors.Wrapf(ErrMessageTooLong, "%d bytes, at most %d allowed", len(data), MaxLineBytes)
	}

	return data, "", nil
}

// Drain blocks until every queued line has been written. It returns early
// with the sender's fault if the write loop crashes, with ErrConnectionClosed
// if the write loop stopped with lines left, or with ctx's error.
//
// Drain does not wait for inbound messages to be consumed: lines already
// received stay available through TryReceive after the connection closes.
func (c *Conn) Drain(ctx context.Context) error {
	idle := c.outbound.Idle()

	select {
	case <-idle:
		return nil
	case <-c.senderCrash.done:
		return c.senderCrash.load()
	case <-c.writerDone:
		select {
		case <-idle:
			return nil
		default:
		}
		if err := c.senderCrash.load(); err != nil {
			return err
		}
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of lines waiting to be written.
func (c *Conn) Pending() int {
	return c.outbound.Len()
}

// writeLoop continuously writes queued lines to the connection and sleeps
// after each one for as long as the flood policy asks. Returns when the
// context is canceled or a write fails; a failure is recorded as the
// sender's crash and ends the loop for good.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		data, err := c.outbound.Pop(ctx)
		if err != nil {
			return err
		}
		c.metrics.queueDepth.Set(float64(c.outbound.Len()))

		err = c.write(data)
		c.outbound.Done()
		if err != nil {
			if c.closing.Load() || ctx.Err() != nil {
				return nil
			}
			return c.crash(c.senderCrash, "sender", newFault("write", err))
		}
		c.metrics.sent.Inc()

		delay := c.opts.policy.CalculateDelay(data)
		c.metrics.observeDelay(delay)
		c.logger.Debug("flood delay", "delay", delay)

		if err = c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// write sends one line to the connection, with a deadline when configured.
func (c *Conn) write(data []byte) error {
	if c.opts.idleTimeout > 0 {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.idleTimeout))
	}

	c.logger.Debug("raw output", "line", strings.TrimRight(string(data), LineTerminator))

	_, err := c.rawConn.Write(data)
	return err
}

// sleep waits d on the configured clock or until ctx is done.
func (c *Conn) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := c.opts.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
