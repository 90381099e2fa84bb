//go:build clibs
// +build clibs

package snapshot

import (
	"bytes"

	"github.com/DataDog/zstd"
)

func zstdEncode(buf []byte, level int) ([]byte, error) {
	return zstd.CompressLevel(nil, buf, level)
}

// zstdDecode streams the frame so a body claiming more than size bytes is
// cut off instead of decoded in full.
func zstdDecode(buf []byte, size int) ([]byte, error) {
	zr := zstd.NewReader(bytes.NewReader(buf))
	defer zr.Close()
	return readLimited(zr, size, len(buf))
}
