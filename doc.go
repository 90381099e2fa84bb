/*
Package marshal implements a compact binary dump format for dynamically typed
object graphs: nil, booleans, integers, floats, byte strings, symbols, arrays,
ordered hashes, class and module references, and objects with instance state.

A dump starts with two version bytes (MajorVersion, MinorVersion) followed by a
single tagged value. Symbols and instance variable names are written once per
dump and referenced by ordinal afterwards.

Classes, modules and objects belong to a host object model, reached through the
Host interface. The host package provides a ready-made registry.

	b, err := marshal.Dump([]interface{}{1, "two", marshal.Symbol("three")})
	v, err := marshal.Load(b)

*/
package marshal
