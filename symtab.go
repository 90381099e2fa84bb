package marshal

// symbolTable assigns dense ordinals to names in order of first appearance.
// One table lives for the duration of a single dump or load.
type symbolTable struct {
	index map[string]int
	names []string
}

func (t *symbolTable) lookup(name string) (int, bool) {
	k, ok := t.index[name]
	return k, ok
}

func (t *symbolTable) add(name string) int {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	k := len(t.names)
	t.index[name] = k
	t.names = append(t.names, name)
	return k
}

func (t *symbolTable) at(k int64) (string, bool) {
	if k < 0 || k >= int64(len(t.names)) {
		return "", false
	}
	return t.names[k], true
}

func (t *symbolTable) len() int { return len(t.names) }

// truncate forgets every name registered at ordinal n or later.
func (t *symbolTable) truncate(n int) {
	for _, name := range t.names[n:] {
		delete(t.index, name)
	}
	t.names = t.names[:n]
}

// appendSymbol writes name as a first occurrence, or as a back reference
// if t has already seen it.
func appendSymbol(b []byte, t *symbolTable, name string) []byte {
	if k, ok := t.lookup(name); ok {
		b = append(b, typeSYMLINK)
		return appendInt(b, int64(k), false)
	}
	t.add(name)
	b = append(b, typeSYMBOL)
	b = appendInt(b, int64(len(name)), false)
	return append(b, name...)
}
