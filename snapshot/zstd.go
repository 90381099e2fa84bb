package snapshot

// ZstdCompressor compresses snapshots using the zstd format.
type ZstdCompressor struct {
	Level int // compression level, set to ZstdDefaultCompression by default
}

// Zstd constants
const (
	ZstdBestSpeed          = 1
	ZstdBestCompression    = 20
	ZstdDefaultCompression = 3
)

func (ZstdCompressor) Kind() Kind { return KindZstd }

func (c ZstdCompressor) compress(buf []byte) ([]byte, error) {
	if c.Level == 0 {
		c.Level = ZstdDefaultCompression
	}
	return zstdEncode(buf, c.Level)
}

func (c ZstdCompressor) decompress(buf []byte, size int) ([]byte, error) {
	return zstdDecode(buf, size)
}
