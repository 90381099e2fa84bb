package snapshot

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind names the compression applied to a snapshot body.
type Kind byte

const (
	KindNone Kind = iota
	KindSnappy
	KindZstd
	KindZlib
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSnappy:
		return "snappy"
	case KindZstd:
		return "zstd"
	case KindZlib:
		return "zlib"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind returns the Kind named s, as printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return KindNone, nil
	case "snappy":
		return KindSnappy, nil
	case "zstd":
		return KindZstd, nil
	case "zlib":
		return KindZlib, nil
	}
	return 0, errors.Newf("snapshot: unknown compression %q", s)
}

// A Compressor compresses snapshot bodies.
type Compressor interface {
	Kind() Kind
	compress(b []byte) ([]byte, error)
	// decompress is told the expected size of the result.
	decompress(b []byte, size int) ([]byte, error)
}

// NewCompressor returns the default compressor for k; nil for KindNone.
func NewCompressor(k Kind) (Compressor, error) {
	switch k {
	case KindNone:
		return nil, nil
	case KindSnappy:
		return SnappyCompressor{}, nil
	case KindZstd:
		return ZstdCompressor{}, nil
	case KindZlib:
		return ZlibCompressor{Level: ZlibDefaultCompression}, nil
	}
	return nil, errors.Wrapf(ErrBadKind, "kind %d", byte(k))
}

// maxPrealloc bounds how much buffer a decompressor reserves per compressed
// byte before any output exists. The header's size is only an upper bound.
const maxPrealloc = 64

// readLimited drains the decompressing reader r, failing as soon as it
// yields more than size bytes.
func readLimited(r io.Reader, size, compressed int) ([]byte, error) {
	dec := bytes.NewBuffer(make([]byte, 0, min(size, maxPrealloc*compressed)))
	if _, err := dec.ReadFrom(io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, err
	}
	if dec.Len() > size {
		return nil, errors.Wrapf(ErrCorrupt, "body expands past %d bytes", size)
	}
	return dec.Bytes(), nil
}
