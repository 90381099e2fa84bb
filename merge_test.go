package marshal_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrbmarshal/marshal"
)

func mustDump(t testing.TB, v interface{}) []byte {
	t.Helper()
	b, err := marshal.Dump(v)
	require.NoError(t, err)
	return b
}

func TestMerger(t *testing.T) {
	m := marshal.NewMerger()

	require.NoError(t, m.Append(mustDump(t, []interface{}{marshal.Symbol("a"), marshal.Symbol("b")})))
	require.NoError(t, m.Append(mustDump(t, marshal.Symbol("b"))))
	assert.Equal(t, 2, m.Len())

	b := m.Finish()
	want := []byte{4, 8, '[', 7,
		'[', 7, ':', 6, 'a', ':', 6, 'b',
		';', 6}
	assert.Equal(t, want, b)

	_, err := marshal.Load(b)
	require.NoError(t, err)

	assert.Error(t, m.Append(mustDump(t, 1)))
}

func TestMergerRoundtrips(t *testing.T) {
	m := marshal.NewMerger()

	var want []interface{}
	for _, tt := range roundtrips {
		require.NoError(t, m.Append(mustDump(t, tt.in)), "%#v", tt.in)
		want = append(want, tt.want)
	}

	got, err := marshal.Load(m.Finish())
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestMergerRollback(t *testing.T) {
	m := marshal.NewMerger()
	require.NoError(t, m.Append(mustDump(t, marshal.Symbol("a"))))

	// the truncated input registers c before failing
	err := m.Append([]byte{4, 8, '[', 7, ':', 6, 'c'})
	assert.ErrorIs(t, err, marshal.ErrTruncated)
	assert.Equal(t, 1, m.Len())

	err = m.Append([]byte{4, 8, ';', 0})
	assert.ErrorIs(t, err, marshal.ErrUnknownSymbol)

	err = m.Append([]byte{4, 7, '0'})
	assert.ErrorIs(t, err, marshal.ErrVersion)

	require.NoError(t, m.Append(mustDump(t, marshal.Symbol("c"))))

	b := m.Finish()
	assert.Equal(t, []byte{4, 8, '[', 7, ':', 6, 'a', ':', 6, 'c'}, b)
}

func TestMergerObjects(t *testing.T) {
	// objects are transcoded without a host
	in := []byte{4, 8, 'o', ':', 10, 'P', 'o', 'i', 'n', 't', 6, ':', 7, '@', 'x', 'i', 6}

	m := marshal.NewMerger()
	require.NoError(t, m.Append(in))
	require.NoError(t, m.Append(in))

	want := []byte{4, 8, '[', 7,
		'o', ':', 10, 'P', 'o', 'i', 'n', 't', 6, ':', 7, '@', 'x', 'i', 6,
		'o', ';', 0, 6, ';', 6, 'i', 6}
	assert.Equal(t, want, m.Finish())

	err := marshal.NewMerger().Append([]byte{4, 8, 'o', 'i', 0})
	assert.ErrorIs(t, err, marshal.ErrExpectedSymbol)
}

func TestMergerDepth(t *testing.T) {
	m := marshal.NewMerger()
	require.NoError(t, m.Append(mustDump(t, nest(9))))

	// the merged array adds a level
	err := m.Append(mustDump(t, nest(10)))
	var fe *marshal.FormatError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.ErrorIs(t, err, marshal.ErrTooDeep)

	_, err = marshal.Load(m.Finish())
	assert.NoError(t, err)
}
