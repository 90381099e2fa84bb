package marshal

import (
	"fmt"
	"math"
)

// Integers use a length-prefixed little-endian scheme. Small values take a
// single byte: 0 is 0x00, 1..122 are i+5 and -123..-1 are (i-5)&0xff.
// Anything else is a count byte followed by that many value bytes, least
// significant first. The count byte is negative for negative values so the
// reader knows to sign-extend with 0xff.

// intBytes returns how many low-order bytes of i remain once the leading
// 0x00 (non-negative) or 0xff (negative) bytes are stripped.
func intBytes(i int64) int {
	u := uint64(i)
	pad := uint64(0)
	if i < 0 {
		pad = 0xff
	}
	k := 8
	for k > 0 && (u>>uint(8*(k-1)))&0xff == pad {
		k--
	}
	return k
}

// isFixnum reports whether i can be written with appendInt and read back.
func isFixnum(i int64) bool { return intBytes(i) <= fixnumMaxBytes }

// appendInt appends the encoding of i. With legacy set the count byte is
// always written as a positive magnitude, which is what older writers
// produced; such dumps read negative multi-byte values back incorrectly.
func appendInt(b []byte, i int64, legacy bool) []byte {
	switch {
	case i == 0:
		return append(b, 0)
	case 0 < i && i < 123:
		return append(b, byte(i+5))
	case -124 < i && i < 0:
		return append(b, byte(i-5))
	}

	k := intBytes(i)
	n := byte(k)
	if i < 0 && !legacy {
		n = byte(-k)
	}
	b = append(b, n)

	u := uint64(i)
	for j := 0; j < k; j++ {
		b = append(b, byte(u>>uint(8*j)))
	}
	return b
}

// appendBignum appends an integer too wide for a count byte: a sign byte,
// the number of 16-bit words, then the magnitude little-endian.
func appendBignum(b []byte, i int64) []byte {
	b = append(b, typeBIGNUM)

	mag := uint64(i)
	if i < 0 {
		b = append(b, '-')
		mag = -mag
	} else {
		b = append(b, '+')
	}

	n := 0
	for m := mag; m != 0; m >>= 8 {
		n++
	}
	n += n & 1

	b = appendInt(b, int64(n/2), false)
	for j := 0; j < n; j++ {
		b = append(b, byte(mag>>uint(8*j)))
	}
	return b
}

func (c *cursor) readInt() (int64, error) {
	t, err := c.readByte()
	if err != nil {
		return 0, err
	}

	l := int8(t)
	switch {
	case l == 0:
		return 0, nil
	case l > fixnumMaxBytes:
		return int64(l) - 5, nil
	case l < -fixnumMaxBytes:
		return int64(l) + 5, nil
	}

	n, pad := int(l), ^uint64(0)
	if l > 0 {
		pad = 0
	} else {
		n = -n
	}

	p, err := c.read(n)
	if err != nil {
		return 0, err
	}

	u := pad << uint(8*n)
	for j, x := range p {
		u |= uint64(x) << uint(8*j)
	}
	return int64(u), nil
}

// readLength reads a non-negative integer used as a length or count.
func (c *cursor) readLength() (int, error) {
	start := c.off
	v, err := c.readInt()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxInt32 {
		return 0, &FormatError{Offset: start, Err: fmt.Errorf("%w %d", ErrBadLength, v)}
	}
	return int(v), nil
}

func (c *cursor) readBignum() (int64, error) {
	start := c.off
	sign, err := c.readByte()
	if err != nil {
		return 0, err
	}
	if sign != '+' && sign != '-' {
		return 0, &FormatError{Offset: start, Err: fmt.Errorf("%w: bad sign %q", ErrIntRange, sign)}
	}

	words, err := c.readLength()
	if err != nil {
		return 0, err
	}
	p, err := c.read(2 * words)
	if err != nil {
		return 0, err
	}

	var mag uint64
	for j, x := range p {
		if x == 0 {
			continue
		}
		if j >= 8 {
			return 0, &FormatError{Offset: start, Err: ErrIntRange}
		}
		mag |= uint64(x) << uint(8*j)
	}

	if sign == '+' {
		if mag > math.MaxInt64 {
			return 0, &FormatError{Offset: start, Err: ErrIntRange}
		}
		return int64(mag), nil
	}
	if mag > 1<<63 {
		return 0, &FormatError{Offset: start, Err: ErrIntRange}
	}
	return int64(-mag), nil
}
