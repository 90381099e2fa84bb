package marshal

import "reflect"

// types for representing host values that have no direct Go counterpart

// Symbol is an interned name.
type Symbol string

// Pair is a single key/value entry of a Hash.
type Pair struct {
	Key   interface{}
	Value interface{}
}

// Hash is an ordered mapping. Keys may be any value, including ones that
// are not comparable in Go.
type Hash []Pair

// Get returns the value of the first pair whose key is deeply equal to key.
func (h Hash) Get(key interface{}) (interface{}, bool) {
	for _, p := range h {
		if reflect.DeepEqual(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys of h in order.
func (h Hash) Keys() []interface{} {
	keys := make([]interface{}, len(h))
	for i, p := range h {
		keys[i] = p.Key
	}
	return keys
}

// Class is a host type descriptor: a class, or a module when IsModule
// reports true. A Class appearing as a value is dumped by name.
type Class interface {
	IsModule() bool
}

// Host is the object model a dump is written from and loaded into. The
// codec reaches classes, object state and custom hooks only through it.
type Host interface {
	// ResolveClass and ResolveModule return a *LookupError when path is unknown.
	ResolveClass(path string) (Class, error)
	ResolveModule(path string) (Class, error)
	// ClassPath returns the dotted name of c.
	ClassPath(c Class) string

	// ClassOf reports whether v is an object of the host and its class.
	ClassOf(v interface{}) (Class, bool)
	// Allocate returns an instance of c with no fields set.
	Allocate(c Class) (interface{}, error)

	// Fields lists the instance variable names of obj in a stable order.
	Fields(obj interface{}) []string
	Field(obj interface{}, name string) (interface{}, error)
	SetField(obj interface{}, name string, v interface{}) error

	// Opaque reports whether obj keeps state its fields do not expose.
	// Such objects can only be dumped through a custom hook.
	Opaque(obj interface{}) bool

	HasCustomEncode(c Class) bool
	// CustomEncode returns the single value standing for the state of obj.
	CustomEncode(obj interface{}) (interface{}, error)
	// CustomDecode rebuilds a freshly allocated obj from payload.
	CustomDecode(obj interface{}, payload interface{}) error
}
