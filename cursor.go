package marshal

// cursor is a forward-only reader over a dump. It borrows the input.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) read(n int) ([]byte, error) {
	if n < 0 || n > len(c.b)-c.off {
		return nil, c.corrupt(ErrTruncated)
	}
	p := c.b[c.off : c.off+n : c.off+n]
	c.off += n
	return p, nil
}

func (c *cursor) readByte() (byte, error) {
	if c.off >= len(c.b) {
		return 0, c.corrupt(ErrTruncated)
	}
	t := c.b[c.off]
	c.off++
	return t, nil
}

func (c *cursor) remaining() int { return len(c.b) - c.off }

func (c *cursor) corrupt(err error) *FormatError {
	return &FormatError{Offset: c.off, Err: err}
}

// readBytes reads a length-prefixed byte sequence.
func (c *cursor) readBytes() ([]byte, error) {
	ln, err := c.readLength()
	if err != nil {
		return nil, err
	}
	return c.read(ln)
}
