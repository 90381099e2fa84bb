//go:build gofuzz
// +build gofuzz

package marshal

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func Fuzz(data []byte) int {
	if len(data) < 2 || data[0] != MajorVersion || data[1] != MinorVersion {
		return 0
	}

	m, err := Load(data)
	if err != nil {
		return 0
	}

	enc, err := Dump(m)
	if err != nil {
		panic("unable to dump: " + err.Error())
	}

	m2, err := Load(enc)
	if err != nil {
		panic("loading dumped data: " + err.Error())
	}

	if diff := cmp.Diff(m, m2, cmpopts.EquateNaNs()); diff != "" {
		panic("failed to roundtrip: " + diff)
	}

	return 1
}
