package marshal

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
)

// A Decoder reads values from dumps. The zero value loads plain data;
// classes and objects need a Host.
type Decoder struct {
	Host Host

	// Binary loads strings as []byte instead of string.
	Binary bool

	// MaxDepth bounds container nesting. Zero means 10.
	MaxDepth int
}

// NewDecoder returns a decoder that loads objects into h.
func NewDecoder(h Host) *Decoder {
	return &Decoder{Host: h}
}

// Load decodes the dump b using the default Decoder.
func Load(b []byte) (interface{}, error) {
	return (&Decoder{}).Load(b)
}

// Restore is an alias for Load.
func Restore(b []byte) (interface{}, error) {
	return Load(b)
}

// Load decodes the dump b. Bytes following the top-level value are ignored.
func (d *Decoder) Load(b []byte) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}

			v = nil
			if s, ok := r.(string); ok {
				err = errors.New(s)
			} else if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				panic(r)
			}
		}
	}()

	s := decodeState{Decoder: d, c: cursor{b: b}}

	vers, err := s.c.read(2)
	if err != nil {
		return nil, err
	}
	if vers[0] != MajorVersion || vers[1] != MinorVersion {
		return nil, &VersionError{Major: vers[0], Minor: vers[1]}
	}

	v, err = s.decode(0)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal decodes the dump b and stores the result in the value pointed
// to by v. The loaded value must be assignable to the pointed-to type.
func (d *Decoder) Unmarshal(b []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrNotPointer
	}

	x, err := d.Load(b)
	if err != nil {
		return err
	}

	dst := rv.Elem()
	if x == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	xv := reflect.ValueOf(x)
	if !xv.Type().AssignableTo(dst.Type()) {
		return &UnsupportedTypeError{Type: xv.Type().String() + " into " + dst.Type().String()}
	}
	dst.Set(xv)
	return nil
}

type decodeState struct {
	*Decoder
	c    cursor
	syms symbolTable
}

func (s *decodeState) decode(depth int) (interface{}, error) {
	start := s.c.off

	tag, err := s.c.readByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case typeNIL:
		return nil, nil
	case typeFALSE:
		return false, nil
	case typeTRUE:
		return true, nil
	case typeFIXNUM:
		return s.c.readInt()
	case typeBIGNUM:
		return s.c.readBignum()
	case typeFLOAT:
		return s.decodeFloat()
	case typeSTRING:
		return s.decodeString()
	case typeSYMBOL, typeSYMLINK:
		name, err := s.decodeSymbolTag(tag)
		if err != nil {
			return nil, err
		}
		return Symbol(name), nil
	case typeCLASS, typeMODULE:
		return s.decodeClass(tag)
	case typeARRAY:
		return s.decodeArray(depth)
	case typeHASH:
		return s.decodeHash(depth)
	case typeOBJECT:
		return s.decodeObject(depth)
	case typeUSEROBJ:
		return s.decodeUserObject(depth)
	}

	return nil, &FormatError{Offset: start, Err: fmt.Errorf("%w %q", ErrUnknownTag, tag)}
}

// checkDepth is called after the tag of a container at depth was read.
func (s *decodeState) checkDepth(depth int) error {
	if depth > depthLimit(s.MaxDepth) {
		return &FormatError{Offset: s.c.off - 1, Err: ErrTooDeep}
	}
	return nil
}

func (s *decodeState) decodeFloat() (interface{}, error) {
	start := s.c.off
	p, err := s.c.readBytes()
	if err != nil {
		return nil, err
	}

	f, err := strconv.ParseFloat(string(p), 64)
	if err != nil {
		// out of range text still yields ±Inf, like strtod
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, nil
		}
		return nil, &FormatError{Offset: start, Err: fmt.Errorf("%w %q", ErrBadFloat, p)}
	}
	return f, nil
}

func (s *decodeState) decodeString() (interface{}, error) {
	p, err := s.c.readBytes()
	if err != nil {
		return nil, err
	}

	if s.Binary {
		b := make([]byte, len(p))
		copy(b, p)
		return b, nil
	}
	return string(p), nil
}

func (s *decodeState) decodeSymbol() (string, error) {
	tag, err := s.c.readByte()
	if err != nil {
		return "", err
	}
	return s.decodeSymbolTag(tag)
}

func (s *decodeState) decodeSymbolTag(tag byte) (string, error) {
	switch tag {
	case typeSYMBOL:
		p, err := s.c.readBytes()
		if err != nil {
			return "", err
		}
		name := string(p)
		s.syms.add(name)
		return name, nil

	case typeSYMLINK:
		start := s.c.off
		k, err := s.c.readInt()
		if err != nil {
			return "", err
		}
		name, ok := s.syms.at(k)
		if !ok {
			return "", &FormatError{Offset: start, Err: fmt.Errorf("%w %d", ErrUnknownSymbol, k)}
		}
		return name, nil
	}

	return "", &FormatError{Offset: s.c.off - 1, Err: fmt.Errorf("%w, got tag %q", ErrExpectedSymbol, tag)}
}

func (s *decodeState) decodeClass(tag byte) (interface{}, error) {
	p, err := s.c.readBytes()
	if err != nil {
		return nil, err
	}
	path := string(p)

	kind := "class"
	if tag == typeMODULE {
		kind = "module"
	}

	if s.Host == nil {
		return nil, &LookupError{Kind: kind, Path: path, Err: ErrNoHost}
	}

	var c Class
	if tag == typeMODULE {
		c, err = s.Host.ResolveModule(path)
	} else {
		c, err = s.Host.ResolveClass(path)
	}
	if err != nil {
		return nil, lookupError(kind, path, err)
	}
	return c, nil
}

func lookupError(kind, path string, err error) error {
	var le *LookupError
	if errors.As(err, &le) {
		return err
	}
	return &LookupError{Kind: kind, Path: path, Err: err}
}

// sizeHint caps a claimed element count by what the input could hold.
func sizeHint(n, remaining int) int {
	if n > remaining {
		return remaining
	}
	return n
}

func (s *decodeState) decodeArray(depth int) (interface{}, error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, err
	}

	ln, err := s.c.readLength()
	if err != nil {
		return nil, err
	}

	a := make([]interface{}, 0, sizeHint(ln, s.c.remaining()))
	for i := 0; i < ln; i++ {
		v, err := s.decode(depth + 1)
		if err != nil {
			return nil, err
		}
		a = append(a, v)
	}

	return a, nil
}

func (s *decodeState) decodeHash(depth int) (interface{}, error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, err
	}

	ln, err := s.c.readLength()
	if err != nil {
		return nil, err
	}

	h := make(Hash, 0, sizeHint(ln, s.c.remaining()/2))
	for i := 0; i < ln; i++ {
		key, err := s.decode(depth + 1)
		if err != nil {
			return nil, err
		}
		val, err := s.decode(depth + 1)
		if err != nil {
			return nil, err
		}
		h = append(h, Pair{Key: key, Value: val})
	}

	return h, nil
}

// allocate reads a class name symbol and returns a bare instance of it.
func (s *decodeState) allocate() (interface{}, error) {
	path, err := s.decodeSymbol()
	if err != nil {
		return nil, err
	}

	if s.Host == nil {
		return nil, &LookupError{Kind: "class", Path: path, Err: ErrNoHost}
	}

	c, err := s.Host.ResolveClass(path)
	if err != nil {
		return nil, lookupError("class", path, err)
	}

	return s.Host.Allocate(c)
}

func (s *decodeState) decodeObject(depth int) (interface{}, error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, err
	}

	obj, err := s.allocate()
	if err != nil {
		return nil, err
	}

	ln, err := s.c.readLength()
	if err != nil {
		return nil, err
	}

	for i := 0; i < ln; i++ {
		name, err := s.decodeSymbol()
		if err != nil {
			return nil, err
		}
		v, err := s.decode(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := s.Host.SetField(obj, name, v); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func (s *decodeState) decodeUserObject(depth int) (interface{}, error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, err
	}

	obj, err := s.allocate()
	if err != nil {
		return nil, err
	}

	payload, err := s.decode(depth + 1)
	if err != nil {
		return nil, err
	}

	if err := s.Host.CustomDecode(obj, payload); err != nil {
		return nil, err
	}

	return obj, nil
}
