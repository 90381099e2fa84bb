package snapshot

import (
	"bytes"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

// ZlibCompressor compresses snapshots using the zlib format.
type ZlibCompressor struct {
	Level int // compression level
}

const (
	ZlibNoCompression      = zlib.NoCompression
	ZlibBestSpeed          = zlib.BestSpeed
	ZlibBestCompression    = zlib.BestCompression
	ZlibDefaultCompression = zlib.DefaultCompression
)

var zlibWriterPools = make(map[int]*sync.Pool)

func init() {
	// -1 => 9
	for i := zlib.DefaultCompression; i <= zlib.BestCompression; i++ {
		level := i
		zlibWriterPools[i] = &sync.Pool{
			New: func() interface{} {
				zw, _ := zlib.NewWriterLevel(nil, level)
				return zw
			},
		}
	}
}

func (ZlibCompressor) Kind() Kind { return KindZlib }

func (c ZlibCompressor) compress(buf []byte) ([]byte, error) {
	pool := zlibWriterPools[c.Level]
	if pool == nil {
		return nil, errors.Newf("snapshot: unknown zlib level %d", c.Level)
	}

	var comp bytes.Buffer
	zw := pool.Get().(*zlib.Writer)
	defer pool.Put(zw)
	zw.Reset(&comp)

	if _, err := zw.Write(buf); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return comp.Bytes(), nil
}

func (c ZlibCompressor) decompress(buf []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: zlib")
	}
	defer zr.Close()

	dec, err := readLimited(zr, size, len(buf))
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: zlib")
	}
	return dec, nil
}
