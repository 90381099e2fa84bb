/*
Package snapshot stores marshal dumps in a self-checking container, optionally
compressed.

A snapshot is laid out as

	"MRBS" | kind (1 byte) | varint dump length | varint body length | body | checksum (8 bytes)

where body is the dump compressed with the compressor named by kind, and
checksum is the little-endian SipHash-2-4 of the uncompressed dump.
*/
package snapshot
