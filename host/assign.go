package host

import (
	"fmt"
	"reflect"

	"github.com/mrbmarshal/marshal"
)

// assign stores a loaded value into a struct field, converting between the
// loader's representations (int64, float64, string, []interface{},
// marshal.Hash) and the field's declared type.
func assign(dst reflect.Value, v interface{}) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	sv := reflect.ValueOf(v)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := v.(int64); ok {
			if dst.OverflowInt(i) {
				return fmt.Errorf("%d overflows %s", i, dst.Type())
			}
			dst.SetInt(i)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i, ok := v.(int64); ok {
			if i < 0 || dst.OverflowUint(uint64(i)) {
				return fmt.Errorf("%d overflows %s", i, dst.Type())
			}
			dst.SetUint(uint64(i))
			return nil
		}

	case reflect.Float32, reflect.Float64:
		switch f := v.(type) {
		case float64:
			dst.SetFloat(f)
			return nil
		case int64:
			dst.SetFloat(float64(f))
			return nil
		}

	case reflect.String:
		switch sv.Kind() {
		case reflect.String:
			dst.SetString(sv.String())
			return nil
		case reflect.Slice:
			if sv.Type().Elem().Kind() == reflect.Uint8 {
				dst.SetString(string(sv.Bytes()))
				return nil
			}
		}

	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 && sv.Kind() == reflect.String {
			dst.SetBytes([]byte(sv.String()))
			return nil
		}
		if a, ok := v.([]interface{}); ok {
			slice := reflect.MakeSlice(dst.Type(), len(a), len(a))
			for i, e := range a {
				if err := assign(slice.Index(i), e); err != nil {
					return fmt.Errorf("index %d: %w", i, err)
				}
			}
			dst.Set(slice)
			return nil
		}

	case reflect.Map:
		if h, ok := v.(marshal.Hash); ok {
			m := reflect.MakeMapWithSize(dst.Type(), len(h))
			for _, p := range h {
				key := reflect.New(dst.Type().Key()).Elem()
				if err := assign(key, p.Key); err != nil {
					return fmt.Errorf("key %v: %w", p.Key, err)
				}
				val := reflect.New(dst.Type().Elem()).Elem()
				if err := assign(val, p.Value); err != nil {
					return fmt.Errorf("key %v: %w", p.Key, err)
				}
				m.SetMapIndex(key, val)
			}
			dst.Set(m)
			return nil
		}

	case reflect.Ptr:
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}
