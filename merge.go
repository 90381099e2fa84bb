package marshal

import (
	"errors"
	"fmt"
)

// A Merger combines several dumps into a single dump of an array holding
// their top-level values. Symbols are renumbered against one shared table,
// so every input is rewritten rather than copied.
type Merger struct {
	// MaxDepth bounds container nesting of the inputs. Zero means 10.
	MaxDepth int

	numElements int
	finalized   bool
	syms        symbolTable
	buf         []byte
}

// NewMerger returns an empty merger
func NewMerger() *Merger {
	return &Merger{buf: make([]byte, 0, 32)}
}

// Append validates the dump b and adds its value as the next element. A
// dump that fails to parse leaves the merger unchanged.
func (m *Merger) Append(b []byte) error {
	if m.finalized {
		return errors.New("marshal: merger already finished")
	}

	c := cursor{b: b}
	vers, err := c.read(2)
	if err != nil {
		return err
	}
	if vers[0] != MajorVersion || vers[1] != MinorVersion {
		return &VersionError{Major: vers[0], Minor: vers[1]}
	}

	startOffset := len(m.buf)
	startSyms := m.syms.len()

	var local []string
	if err := m.mergeItem(&c, &local, 1); err != nil {
		m.buf = m.buf[:startOffset]
		m.syms.truncate(startSyms)
		return err
	}

	m.numElements++
	return nil
}

// Len returns the number of dumps appended so far.
func (m *Merger) Len() int { return m.numElements }

// Finish returns the merged dump. Further calls to Append fail.
func (m *Merger) Finish() []byte {
	m.finalized = true

	out := make([]byte, 0, len(m.buf)+8)
	out = append(out, MajorVersion, MinorVersion, typeARRAY)
	out = appendInt(out, int64(m.numElements), false)
	return append(out, m.buf...)
}

func (m *Merger) mergeItem(c *cursor, local *[]string, depth int) error {
	start := c.off
	tag, err := c.readByte()
	if err != nil {
		return err
	}

	switch tag {
	case typeNIL, typeFALSE, typeTRUE:
		m.buf = append(m.buf, tag)

	case typeFIXNUM:
		i, err := c.readInt()
		if err != nil {
			return err
		}
		m.buf = append(m.buf, tag)
		m.buf = appendInt(m.buf, i, false)

	case typeBIGNUM:
		i, err := c.readBignum()
		if err != nil {
			return err
		}
		m.buf = appendBignum(m.buf, i)

	case typeCLASS, typeMODULE, typeFLOAT, typeSTRING:
		p, err := c.readBytes()
		if err != nil {
			return err
		}
		m.buf = append(m.buf, tag)
		m.buf = appendInt(m.buf, int64(len(p)), false)
		m.buf = append(m.buf, p...)

	case typeSYMBOL, typeSYMLINK:
		return m.mergeSymbol(c, tag, local)

	case typeARRAY, typeHASH:
		if depth > depthLimit(m.MaxDepth) {
			return &FormatError{Offset: start, Err: ErrTooDeep}
		}
		ln, err := c.readLength()
		if err != nil {
			return err
		}
		m.buf = append(m.buf, tag)
		m.buf = appendInt(m.buf, int64(ln), false)

		items := ln
		if tag == typeHASH {
			items *= 2
		}
		for i := 0; i < items; i++ {
			if err := m.mergeItem(c, local, depth+1); err != nil {
				return err
			}
		}

	case typeOBJECT:
		if depth > depthLimit(m.MaxDepth) {
			return &FormatError{Offset: start, Err: ErrTooDeep}
		}
		m.buf = append(m.buf, tag)
		if err := m.mergeSymbolItem(c, local); err != nil {
			return err
		}
		ln, err := c.readLength()
		if err != nil {
			return err
		}
		m.buf = appendInt(m.buf, int64(ln), false)
		for i := 0; i < ln; i++ {
			if err := m.mergeSymbolItem(c, local); err != nil {
				return err
			}
			if err := m.mergeItem(c, local, depth+1); err != nil {
				return err
			}
		}

	case typeUSEROBJ:
		if depth > depthLimit(m.MaxDepth) {
			return &FormatError{Offset: start, Err: ErrTooDeep}
		}
		m.buf = append(m.buf, tag)
		if err := m.mergeSymbolItem(c, local); err != nil {
			return err
		}
		return m.mergeItem(c, local, depth+1)

	default:
		return &FormatError{Offset: start, Err: fmt.Errorf("%w %q", ErrUnknownTag, tag)}
	}

	return nil
}

// mergeSymbolItem copies a value that must be a symbol.
func (m *Merger) mergeSymbolItem(c *cursor, local *[]string) error {
	tag, err := c.readByte()
	if err != nil {
		return err
	}
	if tag != typeSYMBOL && tag != typeSYMLINK {
		return &FormatError{Offset: c.off - 1, Err: fmt.Errorf("%w, got tag %q", ErrExpectedSymbol, tag)}
	}
	return m.mergeSymbol(c, tag, local)
}

// mergeSymbol resolves a symbol against the input's own table (local) and
// writes it against the merged one.
func (m *Merger) mergeSymbol(c *cursor, tag byte, local *[]string) error {
	var name string

	if tag == typeSYMBOL {
		p, err := c.readBytes()
		if err != nil {
			return err
		}
		name = string(p)
		*local = append(*local, name)
	} else {
		start := c.off
		k, err := c.readInt()
		if err != nil {
			return err
		}
		if k < 0 || k >= int64(len(*local)) {
			return &FormatError{Offset: start, Err: fmt.Errorf("%w %d", ErrUnknownSymbol, k)}
		}
		name = (*local)[k]
	}

	m.buf = appendSymbol(m.buf, &m.syms, name)
	return nil
}
