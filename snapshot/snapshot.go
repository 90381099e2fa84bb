package snapshot

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dchest/siphash"

	"github.com/mrbmarshal/marshal"
)

var magic = []byte("MRBS")

const (
	checksumSize = 8
	maxDumpSize  = 1 << 30
)

// Errors
var (
	ErrBadMagic = errors.New("snapshot: not a snapshot")
	ErrBadKind  = errors.New("snapshot: unknown compression kind")
	ErrChecksum = errors.New("snapshot: checksum mismatch")
	ErrCorrupt  = errors.New("snapshot: corrupt snapshot")
	ErrTooLarge = errors.New("snapshot: dump too large")
	ErrNotDump  = errors.New("snapshot: payload is not a marshal dump")
)

// Options controls how snapshots are written and verified.
type Options struct {
	// Compression compresses the dump; nil stores it as is.
	Compression Compressor

	// Threshold is the dump size below which compression is skipped.
	Threshold int

	// Key0 and Key1 form the SipHash key of the checksum. Readers must use
	// the key the snapshot was written with.
	Key0, Key1 uint64
}

func (o *Options) checksum(dump []byte) uint64 {
	return siphash.Hash(o.Key0, o.Key1, dump)
}

// IsSnapshot reports whether b starts like a snapshot.
func IsSnapshot(b []byte) bool {
	return bytes.HasPrefix(b, magic)
}

// Encode wraps dump, which must carry a marshal version header.
func Encode(dump []byte, opts Options) ([]byte, error) {
	if len(dump) < 2 || dump[0] != marshal.MajorVersion || dump[1] != marshal.MinorVersion {
		return nil, ErrNotDump
	}

	kind := KindNone
	body := dump
	if opts.Compression != nil && len(dump) >= opts.Threshold {
		var err error
		body, err = opts.Compression.compress(dump)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot: %s compression", opts.Compression.Kind())
		}
		kind = opts.Compression.Kind()
	}

	b := make([]byte, 0, len(magic)+1+2*binary.MaxVarintLen64+len(body)+checksumSize)
	b = append(b, magic...)
	b = append(b, byte(kind))
	b = varint(b, uint(len(dump)))
	b = varint(b, uint(len(body)))
	b = append(b, body...)
	b = binary.LittleEndian.AppendUint64(b, opts.checksum(dump))

	return b, nil
}

// Decode verifies the snapshot b and returns the dump it holds.
func Decode(b []byte, opts Options) ([]byte, error) {
	if !IsSnapshot(b) {
		return nil, ErrBadMagic
	}
	idx := len(magic)

	if idx >= len(b) {
		return nil, errors.Wrap(ErrCorrupt, "truncated header")
	}
	kind := Kind(b[idx])
	idx++

	size, sz, err := varintdecode(b[idx:])
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "dump length")
	}
	idx += sz
	if size > maxDumpSize {
		return nil, errors.Wrapf(ErrTooLarge, "%d bytes", size)
	}

	ln, sz, err := varintdecode(b[idx:])
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "body length")
	}
	idx += sz

	if ln > len(b)-idx-checksumSize {
		return nil, errors.Wrapf(ErrCorrupt, "body of %d bytes overruns the input", ln)
	}
	body := b[idx : idx+ln]
	sum := binary.LittleEndian.Uint64(b[idx+ln:])

	var dump []byte
	if kind == KindNone {
		if ln != size {
			return nil, errors.Wrapf(ErrCorrupt, "stored body holds %d bytes, want %d", ln, size)
		}
		dump = make([]byte, ln)
		copy(dump, body)
	} else {
		c, err := NewCompressor(kind)
		if err != nil {
			return nil, err
		}
		dump, err = c.decompress(body, size)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot: %s body", kind)
		}
		if len(dump) != size {
			return nil, errors.Wrapf(ErrCorrupt, "%s body holds %d bytes, want %d", kind, len(dump), size)
		}
	}

	if opts.checksum(dump) != sum {
		return nil, ErrChecksum
	}
	return dump, nil
}

// Write writes dump to w as a snapshot.
func Write(w io.Writer, dump []byte, opts Options) error {
	b, err := Encode(dump, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "snapshot: write")
}

// Read reads a whole snapshot from r and returns the dump it holds.
func Read(r io.Reader, opts Options) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: read")
	}
	return Decode(b, opts)
}

// Save dumps v with enc, or the default Encoder when enc is nil, and wraps
// the result.
func Save(v interface{}, enc *marshal.Encoder, opts Options) ([]byte, error) {
	if enc == nil {
		enc = &marshal.Encoder{}
	}
	dump, err := enc.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Encode(dump, opts)
}

// Restore verifies b and loads the value it holds with dec, or the default
// Decoder when dec is nil.
func Restore(b []byte, dec *marshal.Decoder, opts Options) (interface{}, error) {
	if dec == nil {
		dec = &marshal.Decoder{}
	}
	dump, err := Decode(b, opts)
	if err != nil {
		return nil, err
	}
	return dec.Load(dump)
}
