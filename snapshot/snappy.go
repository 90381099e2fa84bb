package snapshot

import (
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

const snappyMaxRatio = 22

// SnappyCompressor compresses snapshots using the Snappy block format.
type SnappyCompressor struct{}

func (SnappyCompressor) Kind() Kind { return KindSnappy }

func (c SnappyCompressor) compress(b []byte) ([]byte, error) {
	if snappy.MaxEncodedLen(len(b)) < 0 {
		return nil, ErrTooLarge
	}
	return snappy.Encode(nil, b), nil
}

func (c SnappyCompressor) decompress(b []byte, size int) ([]byte, error) {
	n, err := snappy.DecodedLen(b)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: snappy")
	}
	if n != size {
		return nil, errors.Wrapf(ErrCorrupt, "snappy body holds %d bytes, want %d", n, size)
	}
	// a copy element expands at most 64 bytes out of 3
	if n > snappyMaxRatio*len(b) {
		return nil, errors.Wrapf(ErrCorrupt, "snappy body of %d bytes cannot hold %d", len(b), n)
	}

	decompressed, err := snappy.Decode(make([]byte, n), b)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: snappy")
	}
	return decompressed, nil
}
