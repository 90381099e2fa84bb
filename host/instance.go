package host

// Instance is an object of a dynamic class. Fields keep the order in which
// they were first set.
type Instance struct {
	class  *Class
	names  []string
	fields map[string]interface{}

	// Data holds native state of opaque classes. It is only dumped through
	// the class's custom hooks.
	Data interface{}
}

// Class returns the class o was allocated from.
func (o *Instance) Class() *Class { return o.class }

// Get returns the value of field name.
func (o *Instance) Get(name string) (interface{}, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// Set assigns field name. Setting an existing field keeps its position.
func (o *Instance) Set(name string, v interface{}) {
	if o.fields == nil {
		o.fields = make(map[string]interface{})
	}
	if _, ok := o.fields[name]; !ok {
		o.names = append(o.names, name)
	}
	o.fields[name] = v
}

// Fields returns the field names of o in order.
func (o *Instance) Fields() []string {
	names := make([]string, len(o.names))
	copy(names, o.names)
	return names
}

func (o *Instance) String() string {
	if o.class == nil {
		return "#<?>"
	}
	return "#<" + o.class.path + ">"
}
