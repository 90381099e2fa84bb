//go:build !clibs
// +build !clibs

package snapshot

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoders holds one *zstd.Encoder per level. EncodeAll is safe for
// concurrent use.
var zstdEncoders sync.Map

func zstdEncoder(level int) (*zstd.Encoder, error) {
	if e, ok := zstdEncoders.Load(level); ok {
		return e.(*zstd.Encoder), nil
	}

	e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	actual, loaded := zstdEncoders.LoadOrStore(level, e)
	if loaded {
		e.Close()
	}
	return actual.(*zstd.Encoder), nil
}

func zstdEncode(buf []byte, level int) ([]byte, error) {
	e, err := zstdEncoder(level)
	if err != nil {
		return nil, err
	}
	return e.EncodeAll(buf, nil), nil
}

// zstdDecode streams the frame so a body claiming more than size bytes is
// cut off instead of decoded in full.
func zstdDecode(buf []byte, size int) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(buf),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDumpSize))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr, size, len(buf))
}
