package marshal_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"

	"github.com/mrbmarshal/marshal"
)

var roundtrips = []struct {
	in   interface{}
	want interface{}
}{
	{nil, nil},
	{true, true},
	{false, false},
	{0, int64(0)},
	{1, int64(1)},
	{122, int64(122)},
	{123, int64(123)},
	{-123, int64(-123)},
	{-124, int64(-124)},
	{-200, int64(-200)},
	{255, int64(255)},
	{256, int64(256)},
	{-256, int64(-256)},
	{int8(-15), int64(-15)},
	{uint16(300), int64(300)},
	{int32(math.MaxInt32), int64(math.MaxInt32)},
	{int32(math.MinInt32), int64(math.MinInt32)},
	{uint32(math.MaxUint32), int64(math.MaxUint32)},
	{int64(1 << 32), int64(1 << 32)},
	{int64(-(1 << 32)), int64(-(1 << 32))},
	{int64(-2613115362782646504), int64(-2613115362782646504)},
	{int64(math.MaxInt64), int64(math.MaxInt64)},
	{int64(math.MinInt64), int64(math.MinInt64)},
	{uint64(math.MaxInt64), int64(math.MaxInt64)},
	{0.0, 0.0},
	{1.5, 1.5},
	{123456789.123456789, 123456789.123456789},
	{0.30000000000000004, 0.30000000000000004},
	{-1e-310, -1e-310},
	{2.2250738585072014e-308, 2.2250738585072014e-308},
	{0.1, 0.1},
	{-2.2, -2.2},
	{5e-324, 5e-324},
	{1e300, 1e300},
	{math.MaxFloat64, math.MaxFloat64},
	{float32(2.5), 2.5},
	{math.Inf(1), math.Inf(1)},
	{math.Inf(-1), math.Inf(-1)},
	{"", ""},
	{"hello", "hello"},
	{"twas brillig and the slithy toves and gyre and gimble in the wabe", "twas brillig and the slithy toves and gyre and gimble in the wabe"},
	{strings.Repeat("x", 300), strings.Repeat("x", 300)},
	{"a\x00b\x00", "a\x00b\x00"},
	{[]byte{0, 0, 0}, "\x00\x00\x00"},
	{[]byte("bytes"), "bytes"},
	{[3]byte{'a', 'b', 'c'}, "abc"},
	{marshal.Symbol("name"), marshal.Symbol("name")},
	{[]interface{}{}, []interface{}{}},
	{[]int{1, 2, 3}, []interface{}{int64(1), int64(2), int64(3)}},
	{[]string{"a", "b"}, []interface{}{"a", "b"}},
	{
		[]interface{}{1, 100, 1000, 0xdeadbeef, 2.5, "hello, world", nil, true},
		[]interface{}{int64(1), int64(100), int64(1000), int64(0xdeadbeef), 2.5, "hello, world", nil, true},
	},
	{
		[]interface{}{marshal.Symbol("a"), marshal.Symbol("b"), marshal.Symbol("a"), []interface{}{marshal.Symbol("b")}},
		[]interface{}{marshal.Symbol("a"), marshal.Symbol("b"), marshal.Symbol("a"), []interface{}{marshal.Symbol("b")}},
	},
	{marshal.Hash{}, marshal.Hash{}},
	{
		marshal.Hash{{Key: "b", Value: 1}, {Key: "a", Value: 2}},
		marshal.Hash{{Key: "b", Value: int64(1)}, {Key: "a", Value: int64(2)}},
	},
	{
		marshal.Hash{{Key: []interface{}{1}, Value: marshal.Hash{{Key: nil, Value: false}}}},
		marshal.Hash{{Key: []interface{}{int64(1)}, Value: marshal.Hash{{Key: nil, Value: false}}}},
	},
	{
		map[string]interface{}{"foo": 1, "bar": 2, "baz": "qux"},
		marshal.Hash{{Key: "bar", Value: int64(2)}, {Key: "baz", Value: "qux"}, {Key: "foo", Value: int64(1)}},
	},
	{
		map[int]bool{3: true, -1: false},
		marshal.Hash{{Key: int64(-1), Value: false}, {Key: int64(3), Value: true}},
	},
	{[]interface{}(nil), nil},
	{map[string]int(nil), nil},
	{(*int)(nil), nil},
	{func() *int { i := 7; return &i }(), int64(7)},
}

func TestRoundtrip(t *testing.T) {
	for _, tt := range roundtrips {
		b, err := marshal.Dump(tt.in)
		if err != nil {
			t.Errorf("failed dumping %#v: %v", tt.in, err)
			continue
		}

		got, err := marshal.Load(b)
		if err != nil {
			t.Errorf("failed loading %#v from % x: %v", tt.in, b, err)
			continue
		}

		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("roundtrip %#v mismatch (-want +got):\n%s\n%s", tt.in, diff, spew.Sdump(b))
		}
	}
}

func TestDumpBytes(t *testing.T) {
	tests := []struct {
		what string
		in   interface{}
		want []byte
	}{
		{"nil", nil, []byte{4, 8, '0'}},
		{"true", true, []byte{4, 8, 'T'}},
		{"false", false, []byte{4, 8, 'F'}},
		{"small int", 42, []byte{4, 8, 'i', 47}},
		{"minus one", -1, []byte{4, 8, 'i', 250}},
		{"negative int", -200, []byte{4, 8, 'i', 0xff, 0x38}},
		{"wide int", int64(1 << 40), []byte{4, 8, 'l', '+', 8, 0, 0, 0, 0, 0, 1}},
		{"float", 1.5, []byte{4, 8, 'f', 8, '1', '.', '5'}},
		{"negative zero", math.Copysign(0, -1), []byte{4, 8, 'f', 7, '-', '0'}},
		{"nan", math.NaN(), []byte{4, 8, 'f', 8, 'n', 'a', 'n'}},
		{"inf", math.Inf(-1), []byte{4, 8, 'f', 9, '-', 'i', 'n', 'f'}},
		{"string", "hi", []byte{4, 8, '"', 7, 'h', 'i'}},
		{"symbol", marshal.Symbol("a"), []byte{4, 8, ':', 6, 'a'}},
		{"repeated symbol", []interface{}{marshal.Symbol("a"), marshal.Symbol("a")}, []byte{4, 8, '[', 7, ':', 6, 'a', ';', 0}},
		{"empty array", []interface{}{}, []byte{4, 8, '[', 0}},
		{"hash", map[string]int{"k": 1}, []byte{4, 8, '{', 6, '"', 6, 'k', 'i', 6}},
	}

	for _, tt := range tests {
		got, err := marshal.Dump(tt.in)
		if err != nil {
			t.Errorf("%s: %v", tt.what, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("%s: got % x, want % x", tt.what, got, tt.want)
		}
	}
}

func TestLegacyIntegers(t *testing.T) {
	e := &marshal.Encoder{LegacyIntegers: true}

	tests := []struct {
		in   int64
		want []byte
	}{
		{42, []byte{4, 8, 'i', 47}},
		{-200, []byte{4, 8, 'i', 0x01, 0x38}},
		{1 << 40, []byte{4, 8, 'i', 0x06, 0, 0, 0, 0, 0, 1}},
		{math.MaxInt64, []byte{4, 8, 'i', 0x08, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		got, err := e.Marshal(tt.in)
		if err != nil {
			t.Errorf("%d: %v", tt.in, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("%d: got % x, want % x", tt.in, got, tt.want)
		}
	}

	// older readers see only the magnitude
	b, _ := e.Marshal(-200)
	v, err := marshal.Load(b)
	if err != nil || v != int64(56) {
		t.Errorf("legacy -200 loaded as %v, %v", v, err)
	}
}

func TestFloatSpecials(t *testing.T) {
	b, err := marshal.Dump(math.NaN())
	if err != nil {
		t.Fatal(err)
	}
	v, err := marshal.Load(b)
	if f, ok := v.(float64); err != nil || !ok || !math.IsNaN(f) {
		t.Errorf("nan loaded as %v, %v", v, err)
	}

	b, _ = marshal.Dump(math.Copysign(0, -1))
	v, _ = marshal.Load(b)
	if f, ok := v.(float64); !ok || f != 0 || !math.Signbit(f) {
		t.Errorf("-0 loaded as %v", v)
	}

	// out of range text still loads, as infinity
	v, err = marshal.Load([]byte{4, 8, 'f', 11, '1', 'e', '9', '9', '9', '9'})
	if f, ok := v.(float64); err != nil || !ok || !math.IsInf(f, 1) {
		t.Errorf("1e9999 loaded as %v, %v", v, err)
	}
}

func nest(n int) interface{} {
	var v interface{} = []interface{}{}
	for i := 0; i < n; i++ {
		v = []interface{}{v}
	}
	return v
}

func TestDepth(t *testing.T) {
	b, err := marshal.Dump(nest(10))
	if err != nil {
		t.Fatalf("nesting 10 deep: %v", err)
	}
	if _, err := marshal.Load(b); err != nil {
		t.Fatalf("loading 10 deep: %v", err)
	}

	_, err = marshal.Dump(nest(11))
	if !errors.Is(err, marshal.ErrTooDeep) {
		t.Errorf("nesting 11 deep: got %v", err)
	}

	h := marshal.Hash{}
	for i := 0; i < 11; i++ {
		h = marshal.Hash{{Key: i, Value: h}}
	}
	if _, err := marshal.Dump(h); !errors.Is(err, marshal.ErrTooDeep) {
		t.Errorf("hash nesting 11 deep: got %v", err)
	}

	// scalars below the deepest container do not count
	if _, err := marshal.Dump([]interface{}{nest(9), 1, "x"}); err != nil {
		t.Errorf("scalars at depth 10: %v", err)
	}

	e := &marshal.Encoder{MaxDepth: 20}
	d := &marshal.Decoder{MaxDepth: 20}
	b, err = e.Marshal(nest(15))
	if err != nil {
		t.Fatalf("MaxDepth 20: %v", err)
	}
	if _, err := d.Load(b); err != nil {
		t.Errorf("MaxDepth 20 load: %v", err)
	}
	if _, err := marshal.Load(b); !errors.Is(err, marshal.ErrTooDeep) {
		t.Errorf("default decoder on 15 deep: got %v", err)
	}
}

func TestCycles(t *testing.T) {
	a := []interface{}{nil}
	a[0] = a
	if _, err := marshal.Dump(a); !isCyclic(err) {
		t.Errorf("self-containing slice: got %v", err)
	}

	m := map[string]interface{}{}
	m["self"] = m
	if _, err := marshal.Dump(m); !isCyclic(err) {
		t.Errorf("self-containing map: got %v", err)
	}

	var x interface{}
	x = &x
	if _, err := marshal.Dump(x); !isCyclic(err) {
		t.Errorf("self-referencing pointer: got %v", err)
	}

	// shared, acyclic references are written twice
	shared := []interface{}{1}
	b, err := marshal.Dump([]interface{}{shared, shared})
	if err != nil {
		t.Fatalf("shared slice: %v", err)
	}
	v, _ := marshal.Load(b)
	want := []interface{}{[]interface{}{int64(1)}, []interface{}{int64(1)}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("shared slice (-want +got):\n%s", diff)
	}
}

func isCyclic(err error) bool {
	var ce *marshal.CyclicGraphError
	return errors.As(err, &ce)
}

type klass string

func (klass) IsModule() bool { return false }

func TestUnsupported(t *testing.T) {
	for _, v := range []interface{}{
		make(chan int),
		func() {},
		struct{ A int }{1},
		uint64(math.MaxUint64),
		uint(math.MaxUint64),
		complex(1, 2),
		[]interface{}{1, make(chan int)},
	} {
		_, err := marshal.Dump(v)
		var ue *marshal.UnsupportedTypeError
		if !errors.As(err, &ue) {
			t.Errorf("dumping %T: got %v", v, err)
		}
	}

	_, err := marshal.Dump(klass("Foo"))
	var le *marshal.LookupError
	if !errors.As(err, &le) || !errors.Is(err, marshal.ErrNoHost) {
		t.Errorf("class without host: got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		what string
		in   []byte
		err  error
	}{
		{"empty", nil, marshal.ErrTruncated},
		{"header only", []byte{4, 8}, marshal.ErrTruncated},
		{"old version", []byte{4, 7, '0'}, marshal.ErrVersion},
		{"new version", []byte{5, 8, '0'}, marshal.ErrVersion},
		{"unknown tag", []byte{4, 8, 'z'}, marshal.ErrUnknownTag},
		{"unknown symbol", []byte{4, 8, ';', 0}, marshal.ErrUnknownSymbol},
		{"symbol out of order", []byte{4, 8, '[', 7, ';', 0, ':', 6, 'a'}, marshal.ErrUnknownSymbol},
		{"object name not a symbol", []byte{4, 8, 'o', 'i', 0}, marshal.ErrExpectedSymbol},
		{"negative length", []byte{4, 8, '"', 0xfa}, marshal.ErrBadLength},
		{"string overrun", []byte{4, 8, '"', 10, 'a'}, marshal.ErrTruncated},
		{"huge array", []byte{4, 8, '[', 4, 0xff, 0xff, 0xff, 0x7f, '0'}, marshal.ErrTruncated},
		{"bad float", []byte{4, 8, 'f', 6, 'x'}, marshal.ErrBadFloat},
		{"class without host", []byte{4, 8, 'c', 8, 'F', 'o', 'o'}, marshal.ErrNoHost},
		{"object without host", []byte{4, 8, 'o', ':', 8, 'F', 'o', 'o', 0}, marshal.ErrNoHost},
		{"too deep", deepArrays(11), marshal.ErrTooDeep},
	}

	for _, tt := range tests {
		v, err := marshal.Load(append([]byte(nil), tt.in...))
		if !errors.Is(err, tt.err) {
			t.Errorf("%s: got %v, %v; want %v", tt.what, v, err, tt.err)
		}
		if v != nil {
			t.Errorf("%s: got value %v along with error", tt.what, v)
		}
	}

	_, err := marshal.Load([]byte{4, 7, '0'})
	var ve *marshal.VersionError
	if !errors.As(err, &ve) || ve.Major != 4 || ve.Minor != 7 {
		t.Errorf("version error: got %#v", err)
	}

	_, err = marshal.Load([]byte{4, 8, '[', 7, 'T', 'q'})
	var fe *marshal.FormatError
	if !errors.As(err, &fe) || fe.Offset != 5 {
		t.Errorf("format error offset: got %#v", err)
	}
}

// deepArrays returns a dump of singleton arrays around an empty array at the
// given depth.
func deepArrays(depth int) []byte {
	b := []byte{marshal.MajorVersion, marshal.MinorVersion}
	b = append(b, bytes.Repeat([]byte{'[', 6}, depth)...)
	return append(b, '[', 0)
}

func TestLoadDepth(t *testing.T) {
	v, err := marshal.Load(deepArrays(10))
	if err != nil {
		t.Fatalf("10 deep: %v", err)
	}
	if diff := cmp.Diff(nest(10), v); diff != "" {
		t.Errorf("10 deep (-want +got):\n%s", diff)
	}

	_, err = marshal.Load(deepArrays(11))
	var fe *marshal.FormatError
	if !errors.As(err, &fe) || fe.Err != marshal.ErrTooDeep || fe.Offset != 2+2*11 {
		t.Errorf("11 deep: got %#v", err)
	}
}

func TestTruncated(t *testing.T) {
	for _, tt := range roundtrips {
		b, err := marshal.Dump(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		for n := 0; n < len(b); n++ {
			if _, err := marshal.Load(b[:n]); !errors.Is(err, marshal.ErrTruncated) {
				t.Errorf("%#v cut to %d bytes: got %v", tt.in, n, err)
			}
		}
	}
}

func TestTrailingBytes(t *testing.T) {
	v, err := marshal.Load([]byte{4, 8, 'T', 'x', 'y'})
	if err != nil || v != true {
		t.Errorf("got %v, %v", v, err)
	}
}

func TestBinaryStrings(t *testing.T) {
	b, _ := marshal.Dump([]interface{}{"ab", marshal.Symbol("c")})

	d := &marshal.Decoder{Binary: true}
	v, err := d.Load(b)
	if err != nil {
		t.Fatal(err)
	}

	want := []interface{}{[]byte("ab"), marshal.Symbol("c")}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestUnmarshal(t *testing.T) {
	d := &marshal.Decoder{}

	b, _ := marshal.Dump("hi")
	var s string
	if err := d.Unmarshal(b, &s); err != nil || s != "hi" {
		t.Errorf("string: got %q, %v", s, err)
	}

	b, _ = marshal.Dump(1 << 40)
	var i int64
	if err := d.Unmarshal(b, &i); err != nil || i != 1<<40 {
		t.Errorf("int64: got %d, %v", i, err)
	}

	var iface interface{} = "old"
	b, _ = marshal.Dump(nil)
	if err := d.Unmarshal(b, &iface); err != nil || iface != nil {
		t.Errorf("nil: got %v, %v", iface, err)
	}

	var small int
	b, _ = marshal.Dump(3)
	var ue *marshal.UnsupportedTypeError
	if err := d.Unmarshal(b, &small); !errors.As(err, &ue) {
		t.Errorf("int64 into int: got %v", err)
	}

	if err := d.Unmarshal(b, small); err != marshal.ErrNotPointer {
		t.Errorf("non-pointer: got %v", err)
	}
}

func TestHash(t *testing.T) {
	h := marshal.Hash{
		{Key: []interface{}{int64(1)}, Value: "list"},
		{Key: "k", Value: int64(2)},
	}

	if v, ok := h.Get([]interface{}{int64(1)}); !ok || v != "list" {
		t.Errorf("Get(list)=%v, %v", v, ok)
	}
	if _, ok := h.Get("missing"); ok {
		t.Error("Get(missing) found a value")
	}

	want := []interface{}{[]interface{}{int64(1)}, "k"}
	if diff := cmp.Diff(want, h.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
}
