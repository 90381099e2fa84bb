package host

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/mrbmarshal/marshal"
)

// CustomMarshaler is implemented by Go types that dump themselves as a
// single value instead of field by field.
type CustomMarshaler interface {
	MarshalValue() (interface{}, error)
}

// CustomUnmarshaler is implemented by Go types that rebuild themselves from
// the value their MarshalValue returned.
type CustomUnmarshaler interface {
	UnmarshalValue(v interface{}) error
}

var (
	customMarshalerType   = reflect.TypeOf((*CustomMarshaler)(nil)).Elem()
	customUnmarshalerType = reflect.TypeOf((*CustomUnmarshaler)(nil)).Elem()
)

// Errors
var (
	ErrKindMismatch = errors.New("host: name is already defined with another kind")
	ErrNoLoadHook   = errors.New("host: class has no custom load hook")
	ErrModule       = errors.New("host: modules cannot be instantiated")
	ErrForeign      = errors.New("host: object does not belong to this registry")
)

// Class describes a class or module of a Registry.
type Class struct {
	path   string
	module bool
	opaque bool
	dump   func(*Instance) (interface{}, error)
	load   func(*Instance, interface{}) error
	typ    reflect.Type // struct type, for classes bound with RegisterType
}

// IsModule implements marshal.Class.
func (c *Class) IsModule() bool { return c.module }

// Path returns the dotted name of c.
func (c *Class) Path() string { return c.path }

func (c *Class) String() string { return c.path }

// ClassOption configures a dynamic class.
type ClassOption func(*Class)

// WithCustom installs the hooks used to dump and load instances as a single
// value. load may be nil for classes that are only ever dumped.
func WithCustom(dump func(*Instance) (interface{}, error), load func(*Instance, interface{}) error) ClassOption {
	return func(c *Class) {
		c.dump = dump
		c.load = load
	}
}

// AsOpaque marks instances as keeping native state in Instance.Data. They
// cannot be dumped without a custom hook.
func AsOpaque() ClassOption {
	return func(c *Class) { c.opaque = true }
}

// Registry is an object model implementing marshal.Host. It is safe for
// concurrent use.
type Registry struct {
	// AutoDefine makes unknown names resolve to newly defined dynamic
	// classes and modules instead of failing. Custom-dumped instances of
	// classes without a load hook then keep their payload in Data.
	AutoDefine bool

	mu      sync.RWMutex
	classes map[string]*Class
	byType  map[reflect.Type]*Class
	tags    tagsCache
}

var _ marshal.Host = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Define registers a dynamic class, or reopens it if it already exists.
func (r *Registry) Define(path string, opts ...ClassOption) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.define(path, false)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefineModule registers a module.
func (r *Registry) DefineModule(path string) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.define(path, true)
}

// RegisterType binds path to the struct type of prototype, which may be a
// struct or a pointer to one. Loaded instances are pointers to that type.
func (r *Registry) RegisterType(path string, prototype interface{}) (*Class, error) {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("host: RegisterType(%q) needs a struct, got %T", path, prototype)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.byType[t]; ok && c.path != path {
		return nil, fmt.Errorf("host: %s is already registered as %s", t, c.path)
	}

	c, err := r.define(path, false)
	if err != nil {
		return nil, err
	}
	if c.typ != nil && c.typ != t {
		return nil, fmt.Errorf("host: %s is already bound to %s", path, c.typ)
	}
	c.typ = t

	if r.byType == nil {
		r.byType = make(map[reflect.Type]*Class)
	}
	r.byType[t] = c
	return c, nil
}

func (r *Registry) define(path string, module bool) (*Class, error) {
	if path == "" {
		return nil, errors.New("host: empty class name")
	}
	if c, ok := r.classes[path]; ok {
		if c.module != module {
			return nil, fmt.Errorf("%w: %s", ErrKindMismatch, path)
		}
		return c, nil
	}

	if r.classes == nil {
		r.classes = make(map[string]*Class)
	}
	c := &Class{path: path, module: module}
	r.classes[path] = c
	return c, nil
}

// Lookup returns the class or module named path.
func (r *Registry) Lookup(path string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[path]
	return c, ok
}

// New returns a bare instance of the dynamic class named path.
func (r *Registry) New(path string) (*Instance, error) {
	c, err := r.ResolveClass(path)
	if err != nil {
		return nil, err
	}
	obj, err := r.Allocate(c)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, fmt.Errorf("host: %s is bound to a Go type", path)
	}
	return inst, nil
}

func (r *Registry) resolve(path string, module bool) (marshal.Class, error) {
	kind := "class"
	if module {
		kind = "module"
	}

	r.mu.RLock()
	c, ok := r.classes[path]
	r.mu.RUnlock()

	if !ok {
		if !r.AutoDefine {
			return nil, &marshal.LookupError{Kind: kind, Path: path}
		}
		var err error
		r.mu.Lock()
		c, err = r.define(path, module)
		r.mu.Unlock()
		if err != nil {
			return nil, &marshal.LookupError{Kind: kind, Path: path, Err: err}
		}
	}

	if c.module != module {
		return nil, &marshal.LookupError{Kind: kind, Path: path, Err: ErrKindMismatch}
	}
	return c, nil
}

// ResolveClass implements marshal.Host.
func (r *Registry) ResolveClass(path string) (marshal.Class, error) {
	return r.resolve(path, false)
}

// ResolveModule implements marshal.Host.
func (r *Registry) ResolveModule(path string) (marshal.Class, error) {
	return r.resolve(path, true)
}

// ClassPath implements marshal.Host.
func (r *Registry) ClassPath(c marshal.Class) string {
	if hc, ok := c.(*Class); ok {
		return hc.path
	}
	return fmt.Sprint(c)
}

// ClassOf implements marshal.Host. Instances, and values or pointers of
// registered struct types, are objects.
func (r *Registry) ClassOf(v interface{}) (marshal.Class, bool) {
	if inst, ok := v.(*Instance); ok {
		if inst == nil || inst.class == nil {
			return nil, false
		}
		return inst.class, true
	}

	t := reflect.TypeOf(v)
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		if reflect.ValueOf(v).IsNil() {
			return nil, false
		}
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}

	r.mu.RLock()
	c, ok := r.byType[t]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return c, true
}

func (r *Registry) class(c marshal.Class) (*Class, error) {
	hc, ok := c.(*Class)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrForeign, c)
	}
	return hc, nil
}

// Allocate implements marshal.Host.
func (r *Registry) Allocate(c marshal.Class) (interface{}, error) {
	hc, err := r.class(c)
	if err != nil {
		return nil, err
	}
	if hc.module {
		return nil, fmt.Errorf("%w: %s", ErrModule, hc.path)
	}
	if typ := r.settings(hc).typ; typ != nil {
		return reflect.New(typ).Interface(), nil
	}
	return &Instance{class: hc}, nil
}

// structValue returns the struct behind obj, which must be a struct or a
// pointer to one.
func structValue(obj interface{}) (reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %T", ErrForeign, obj)
	}
	return rv, nil
}

// Fields implements marshal.Host. Struct fields tagged omitempty are left
// out when they hold their zero value.
func (r *Registry) Fields(obj interface{}) []string {
	if inst, ok := obj.(*Instance); ok {
		return inst.Fields()
	}

	rv, err := structValue(obj)
	if err != nil {
		return nil
	}

	var names []string
	for _, f := range r.tags.Get(rv.Type()) {
		if f.omitEmpty && isEmptyValue(rv.Field(f.id)) {
			continue
		}
		names = append(names, f.name)
	}
	return names
}

// Field implements marshal.Host.
func (r *Registry) Field(obj interface{}, name string) (interface{}, error) {
	if inst, ok := obj.(*Instance); ok {
		v, _ := inst.Get(name)
		return v, nil
	}

	rv, err := structValue(obj)
	if err != nil {
		return nil, err
	}
	f, ok := r.tags.lookup(rv.Type(), name)
	if !ok {
		return nil, fmt.Errorf("host: %s has no field %s", rv.Type(), name)
	}
	return rv.Field(f.id).Interface(), nil
}

// SetField implements marshal.Host. Fields a struct does not declare are
// ignored.
func (r *Registry) SetField(obj interface{}, name string, v interface{}) error {
	if inst, ok := obj.(*Instance); ok {
		inst.Set(name, v)
		return nil
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", ErrForeign, obj)
	}
	rv = rv.Elem()

	f, ok := r.tags.lookup(rv.Type(), name)
	if !ok {
		return nil
	}
	if err := assign(rv.Field(f.id), v); err != nil {
		return fmt.Errorf("host: field %s of %s: %w", name, rv.Type(), err)
	}
	return nil
}

// settings returns a copy of c taken under the registry lock, since Define
// may reopen a class while objects of it are dumped or loaded.
func (r *Registry) settings(c *Class) Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *c
}

// Opaque implements marshal.Host.
func (r *Registry) Opaque(obj interface{}) bool {
	if inst, ok := obj.(*Instance); ok {
		return r.settings(inst.class).opaque
	}
	return false
}

// HasCustomEncode implements marshal.Host.
func (r *Registry) HasCustomEncode(c marshal.Class) bool {
	hc, ok := c.(*Class)
	if !ok {
		return false
	}
	cs := r.settings(hc)
	if cs.typ != nil {
		return reflect.PtrTo(cs.typ).Implements(customMarshalerType)
	}
	return cs.dump != nil
}

// CustomEncode implements marshal.Host.
func (r *Registry) CustomEncode(obj interface{}) (interface{}, error) {
	if inst, ok := obj.(*Instance); ok {
		dump := r.settings(inst.class).dump
		if dump == nil {
			return nil, fmt.Errorf("host: class %s has no custom dump hook", inst.class.path)
		}
		return dump(inst)
	}

	if m, ok := obj.(CustomMarshaler); ok {
		return m.MarshalValue()
	}

	// a struct value whose pointer has the method
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Struct {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		if m, ok := p.Interface().(CustomMarshaler); ok {
			return m.MarshalValue()
		}
	}

	return nil, fmt.Errorf("host: %T has no custom dump hook", obj)
}

// CustomDecode implements marshal.Host.
func (r *Registry) CustomDecode(obj interface{}, payload interface{}) error {
	if inst, ok := obj.(*Instance); ok {
		load := r.settings(inst.class).load
		if load == nil {
			if r.AutoDefine {
				inst.Data = payload
				return nil
			}
			return fmt.Errorf("%w: %s", ErrNoLoadHook, inst.class.path)
		}
		return load(inst, payload)
	}

	if reflect.TypeOf(obj).Implements(customUnmarshalerType) {
		return obj.(CustomUnmarshaler).UnmarshalValue(payload)
	}
	return fmt.Errorf("%w: %T", ErrNoLoadHook, obj)
}
