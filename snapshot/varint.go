package snapshot

import "github.com/cockroachdb/errors"

var errBadVarint = errors.New("snapshot: bad varint")

func varint(by []byte, n uint) []uint8 {

	for n >= 0x80 {
		b := byte(n) | 0x80
		by = append(by, b)
		n >>= 7
	}

	return append(by, byte(n))
}

func varintdecode(by []byte) (n int, sz int, err error) {
	s := uint(0) // shift count
	for i, b := range by {
		if s > 56 {
			break
		}

		n |= int(b&0x7f) << s
		s += 7

		if (b & 0x80) == 0 {
			if n < 0 {
				return 0, 0, errBadVarint
			}
			return n, i + 1, nil
		}
	}

	// byte without continuation bit
	return 0, 0, errBadVarint
}
