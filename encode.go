package marshal

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"sort"
	"strconv"
)

// An Encoder writes values as dumps. The zero value dumps plain data;
// objects and classes need a Host.
type Encoder struct {
	Host Host

	// LegacyIntegers writes multi-byte integer counts as unsigned
	// magnitudes and never uses the bignum tag. The output matches older
	// writers byte for byte, including the negative values they cannot
	// read back.
	LegacyIntegers bool

	// MaxDepth bounds container nesting. Zero means 10.
	MaxDepth int
}

// NewEncoder returns an encoder that dumps the objects of h.
func NewEncoder(h Host) *Encoder {
	return &Encoder{Host: h}
}

// Dump returns the dump of v using the default Encoder.
func Dump(v interface{}) ([]byte, error) {
	return (&Encoder{}).Marshal(v)
}

// Marshal returns the dump of v
func (e *Encoder) Marshal(v interface{}) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}

			b = nil
			if s, ok := r.(string); ok {
				err = errors.New(s)
			} else if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				panic(r)
			}
		}
	}()

	s := encodeState{Encoder: e, b: make([]byte, 2, 32)}
	s.b[0] = MajorVersion
	s.b[1] = MinorVersion

	if err := s.encode(v, 0); err != nil {
		return nil, err
	}

	return s.b, nil
}

func depthLimit(n int) int {
	if n <= 0 {
		return defaultMaxDepth
	}
	return n
}

// visitKey identifies a container by address and, for slices, length.
type visitKey struct {
	ptr uintptr
	len int
}

type encodeState struct {
	*Encoder
	b    []byte
	syms symbolTable
	path map[visitKey]struct{} // containers being encoded
}

func (s *encodeState) encode(v interface{}, depth int) error {
	switch v := v.(type) {
	case nil:
		s.b = append(s.b, typeNIL)
	case bool:
		if v {
			s.b = append(s.b, typeTRUE)
		} else {
			s.b = append(s.b, typeFALSE)
		}
	case int:
		s.encodeInt(int64(v))
	case int8:
		s.encodeInt(int64(v))
	case int16:
		s.encodeInt(int64(v))
	case int32:
		s.encodeInt(int64(v))
	case int64:
		s.encodeInt(v)
	case uint8:
		s.encodeInt(int64(v))
	case uint16:
		s.encodeInt(int64(v))
	case uint32:
		s.encodeInt(int64(v))
	case uint:
		return s.encodeUint(uint64(v), "uint")
	case uint64:
		return s.encodeUint(v, "uint64")
	case float32:
		s.encodeFloat(float64(v))
	case float64:
		s.encodeFloat(v)
	case string:
		return s.encodeString(v)
	case []byte:
		return s.encodeString(string(v))
	case Symbol:
		s.b = appendSymbol(s.b, &s.syms, string(v))
	case Hash:
		return s.encodeHash(v, depth)
	case Class:
		return s.encodeClass(v)
	default:
		if s.Host != nil {
			if c, ok := s.Host.ClassOf(v); ok {
				return s.encodeObject(v, c, depth)
			}
		}
		return s.encodeReflect(reflect.ValueOf(v), depth)
	}

	return nil
}

func (s *encodeState) encodeReflect(rv reflect.Value, depth int) error {
	switch rv.Kind() {
	case reflect.Invalid:
		s.b = append(s.b, typeNIL)
		return nil
	case reflect.Bool:
		return s.encode(rv.Bool(), depth)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.encodeInt(rv.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return s.encodeUint(rv.Uint(), rv.Type().String())
	case reflect.Float32, reflect.Float64:
		s.encodeFloat(rv.Float())
		return nil
	case reflect.String:
		return s.encodeString(rv.String())

	case reflect.Slice:
		if rv.IsNil() {
			s.b = append(s.b, typeNIL)
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return s.encodeString(string(rv.Bytes()))
		}
		return s.encodeArray(rv, depth)

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			p := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(p), rv)
			return s.encodeString(string(p))
		}
		return s.encodeArray(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			s.b = append(s.b, typeNIL)
			return nil
		}
		return s.encodeMap(rv, depth)

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			s.b = append(s.b, typeNIL)
			return nil
		}
		k := identity(rv)
		if err := s.mark(k, rv); err != nil {
			return err
		}
		defer s.unmark(k)
		return s.encode(rv.Elem().Interface(), depth)
	}

	return &UnsupportedTypeError{Type: rv.Type().String()}
}

// identity returns the key used to detect rv containing itself. Values
// without an address of their own get the zero key.
func identity(rv reflect.Value) visitKey {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Len() == 0 {
			return visitKey{}
		}
		return visitKey{rv.Pointer(), rv.Len()}
	case reflect.Map, reflect.Ptr:
		if rv.IsNil() {
			return visitKey{}
		}
		return visitKey{rv.Pointer(), -1}
	}
	return visitKey{}
}

// enter is called before a container is written at depth.
func (s *encodeState) enter(k visitKey, rv reflect.Value, depth int) error {
	if depth > depthLimit(s.MaxDepth) {
		return &FormatError{Offset: len(s.b), Err: ErrTooDeep}
	}
	return s.mark(k, rv)
}

func (s *encodeState) mark(k visitKey, rv reflect.Value) error {
	if k.ptr == 0 {
		return nil
	}
	if _, ok := s.path[k]; ok {
		return &CyclicGraphError{Type: rv.Type().String()}
	}
	if s.path == nil {
		s.path = make(map[visitKey]struct{})
	}
	s.path[k] = struct{}{}
	return nil
}

func (s *encodeState) unmark(k visitKey) {
	if k.ptr != 0 {
		delete(s.path, k)
	}
}

func (s *encodeState) appendLength(n int) error {
	if int64(n) > math.MaxInt32 {
		return &FormatError{Offset: len(s.b), Err: fmt.Errorf("%w %d", ErrBadLength, n)}
	}
	s.b = appendInt(s.b, int64(n), false)
	return nil
}

func (s *encodeState) encodeInt(i int64) {
	if s.LegacyIntegers || isFixnum(i) {
		s.b = append(s.b, typeFIXNUM)
		s.b = appendInt(s.b, i, s.LegacyIntegers)
		return
	}
	s.b = appendBignum(s.b, i)
}

func (s *encodeState) encodeUint(u uint64, typ string) error {
	if u > math.MaxInt64 {
		return &UnsupportedTypeError{Type: typ + " value " + strconv.FormatUint(u, 10)}
	}
	s.encodeInt(int64(u))
	return nil
}

func (s *encodeState) encodeFloat(f float64) {
	var text string
	switch {
	case math.IsInf(f, 1):
		text = "inf"
	case math.IsInf(f, -1):
		text = "-inf"
	case math.IsNaN(f):
		text = "nan"
	default:
		text = strconv.FormatFloat(f, 'g', floatDigits, 64)
	}

	s.b = append(s.b, typeFLOAT)
	s.b = appendInt(s.b, int64(len(text)), false)
	s.b = append(s.b, text...)
}

func (s *encodeState) encodeString(str string) error {
	s.b = append(s.b, typeSTRING)
	if err := s.appendLength(len(str)); err != nil {
		return err
	}
	s.b = append(s.b, str...)
	return nil
}

func (s *encodeState) encodeArray(rv reflect.Value, depth int) error {
	k := identity(rv)
	if err := s.enter(k, rv, depth); err != nil {
		return err
	}
	defer s.unmark(k)

	l := rv.Len()

	s.b = append(s.b, typeARRAY)
	if err := s.appendLength(l); err != nil {
		return err
	}

	for i := 0; i < l; i++ {
		if err := s.encode(rv.Index(i).Interface(), depth+1); err != nil {
			return err
		}
	}

	return nil
}

func (s *encodeState) encodeHash(h Hash, depth int) error {
	rv := reflect.ValueOf(h)
	k := identity(rv)
	if err := s.enter(k, rv, depth); err != nil {
		return err
	}
	defer s.unmark(k)

	s.b = append(s.b, typeHASH)
	if err := s.appendLength(len(h)); err != nil {
		return err
	}

	for _, p := range h {
		if err := s.encode(p.Key, depth+1); err != nil {
			return err
		}
		if err := s.encode(p.Value, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// encodeMap writes a Go map as a hash. Keys are sorted so that equal maps
// produce equal dumps.
func (s *encodeState) encodeMap(m reflect.Value, depth int) error {
	k := identity(m)
	if err := s.enter(k, m, depth); err != nil {
		return err
	}
	defer s.unmark(k)

	keys := m.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })

	s.b = append(s.b, typeHASH)
	if err := s.appendLength(len(keys)); err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.encode(key.Interface(), depth+1); err != nil {
			return err
		}
		if err := s.encode(m.MapIndex(key).Interface(), depth+1); err != nil {
			return err
		}
	}

	return nil
}

func keyLess(a, b reflect.Value) bool {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}

	if a.Kind() != b.Kind() {
		return a.Kind() < b.Kind()
	}

	switch a.Kind() {
	case reflect.String:
		return a.String() < b.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() < b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	case reflect.Bool:
		return !a.Bool() && b.Bool()
	}

	return fmt.Sprint(a) < fmt.Sprint(b)
}

func (s *encodeState) encodeClass(c Class) error {
	kind := "class"
	tag := byte(typeCLASS)
	if c.IsModule() {
		kind = "module"
		tag = typeMODULE
	}

	if s.Host == nil {
		return &LookupError{Kind: kind, Path: fmt.Sprint(c), Err: ErrNoHost}
	}

	s.b = append(s.b, tag)
	path := s.Host.ClassPath(c)
	if err := s.appendLength(len(path)); err != nil {
		return err
	}
	s.b = append(s.b, path...)
	return nil
}

func (s *encodeState) encodeObject(obj interface{}, c Class, depth int) error {
	h := s.Host
	path := h.ClassPath(c)
	custom := h.HasCustomEncode(c)

	if !custom && h.Opaque(obj) {
		return &UnsupportedTypeError{Type: path + " (no custom dump hook)"}
	}

	rv := reflect.ValueOf(obj)
	k := identity(rv)
	if err := s.enter(k, rv, depth); err != nil {
		return err
	}
	defer s.unmark(k)

	if custom {
		payload, err := h.CustomEncode(obj)
		if err != nil {
			return err
		}

		s.b = append(s.b, typeUSEROBJ)
		s.b = appendSymbol(s.b, &s.syms, path)
		return s.encode(payload, depth+1)
	}

	names := h.Fields(obj)

	s.b = append(s.b, typeOBJECT)
	s.b = appendSymbol(s.b, &s.syms, path)
	if err := s.appendLength(len(names)); err != nil {
		return err
	}

	for _, name := range names {
		v, err := h.Field(obj, name)
		if err != nil {
			return err
		}
		s.b = appendSymbol(s.b, &s.syms, name)
		if err := s.encode(v, depth+1); err != nil {
			return err
		}
	}

	return nil
}
