// Package host provides an in-memory object model for marshal dumps.
//
// A Registry maps dotted class and module names to Class descriptors. Classes
// are either dynamic, with instances of type *Instance holding an ordered set
// of named fields, or bound to a Go struct type with RegisterType, in which
// case exported struct fields are the instance variables.
package host
