package host

import (
	"reflect"
	"strings"
	"sync"
)

type tagsCache struct {
	mu   sync.Mutex
	cmap map[reflect.Type][]field
}

type field struct {
	name      string
	id        int
	omitEmpty bool
}

// Get returns the instance variables of struct type t in declaration order.
func (tc *tagsCache) Get(t reflect.Type) []field {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.cmap == nil {
		tc.cmap = make(map[reflect.Type][]field)
	}

	if m, ok := tc.cmap[t]; ok {
		return m
	}

	var m []field

	l := t.NumField()
	for i := 0; i < l; i++ {
		name, opts := parseTag(t.Field(i).Tag.Get("marshal"))
		if name == "-" {
			// marshal tag is "-" -- skip
			continue
		}

		if t.Field(i).PkgPath != "" {
			// field not exported -- skip
			continue
		}

		if name == "" {
			name = t.Field(i).Name
		}
		m = append(m, field{name, i, opts.Contains("omitempty")})
	}

	tc.cmap[t] = m
	return m
}

func (tc *tagsCache) lookup(t reflect.Type, name string) (field, bool) {
	for _, f := range tc.Get(t) {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

type tagOptions string

func parseTag(tag string) (string, tagOptions) {
	if i := strings.Index(tag, ","); i != -1 {
		return tag[:i], tagOptions(tag[i+1:])
	}
	return tag, ""
}

func (o tagOptions) Contains(name string) bool {
	s := string(o)
	for s != "" {
		var next string
		if i := strings.Index(s, ","); i >= 0 {
			s, next = s[:i], s[i+1:]
		}
		if s == name {
			return true
		}
		s = next
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
