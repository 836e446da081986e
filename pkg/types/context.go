package types

import "fmt"

// Context is the per-function variable store: spec §3's "per-function
// contexts holding variables with positions". Contexts own their variables;
// quadruples and instructions reference them only via *Variable pointers
// obtained from a Context, never by copy.
type Context struct {
	FunctionName string
	vars         map[string]*Variable
	order        []*Variable // declaration order, for deterministic iteration
	nextTemp     int
}

// NewContext creates an empty context for the named function.
func NewContext(functionName string) *Context {
	return &Context{FunctionName: functionName, vars: make(map[string]*Variable)}
}

// Declare adds a new named variable at the given position. Declaring the
// same name twice is an invariant violation — the front end guarantees
// uniqueness before the middle-end ever sees a Context.
func (c *Context) Declare(name string, t *Type, pos Position) *Variable {
	if _, exists := c.vars[name]; exists {
		panic(fmt.Sprintf("types: context %s: duplicate variable %q", c.FunctionName, name))
	}
	v := &Variable{Name: name, Type: t, Position: pos}
	c.vars[name] = v
	c.order = append(c.order, v)
	return v
}

// NewTemporary declares and returns a fresh temporary variable of type t.
// Used by CSE and strength reduction to introduce variables not present in
// the original source; loop peeling does not call it.
func (c *Context) NewTemporary(t *Type) *Variable {
	for {
		name := fmt.Sprintf("t$%d", c.nextTemp)
		c.nextTemp++
		if _, exists := c.vars[name]; exists {
			continue
		}
		v := &Variable{Name: name, Type: t, Position: TemporaryPosition(c.nextTemp - 1)}
		c.vars[name] = v
		c.order = append(c.order, v)
		return v
	}
}

// Clone declares a fresh variable that copies v's type, under a name built
// from v's name and the given disambiguating suffix. No optimization pass
// calls it: strength reduction takes its tj variables from NewTemporary, and
// loop peeling copies the body without renaming its variables.
func (c *Context) Clone(v *Variable, suffix string) *Variable {
	base := v.Name + "_" + suffix
	name := base
	for i := 0; ; i++ {
		if _, exists := c.vars[name]; !exists {
			break
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
	clone := &Variable{Name: name, Type: v.Type, Position: TemporaryPosition(c.nextTemp)}
	c.nextTemp++
	c.vars[name] = clone
	c.order = append(c.order, clone)
	return clone
}

// Lookup finds a variable by name, or nil if not declared.
func (c *Context) Lookup(name string) *Variable {
	return c.vars[name]
}

// Variables returns all variables in declaration order.
func (c *Context) Variables() []*Variable {
	return c.order
}

// Remove deletes a variable from the context. Used by "clean variables"
// (spec §4.3) once liveness/use-count analysis shows the variable is never
// read.
func (c *Context) Remove(v *Variable) {
	delete(c.vars, v.Name)
	for i, existing := range c.order {
		if existing == v {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Record describes a user-declared record type's field layout, used only by
// the middle-end to compute DOT/DOT_ASSIGN offsets (spec §4.4); field
// ordering and byte offsets are the front end's responsibility and are
// supplied here verbatim.
type Record struct {
	Name   string
	Fields []Field
}

// Field is one member of a Record: its name, type, and byte offset within
// the record's storage.
type Field struct {
	Name   string
	Type   *Type
	Offset int64
}

// FieldByName finds a field by name, or returns (Field{}, false).
func (r *Record) FieldByName(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// GlobalContext is the process-wide, immutable-after-front-end symbol table
// of functions and records (spec §3, §5). The middle-end never mutates it.
type GlobalContext struct {
	Records   map[string]*Record
	Functions map[string]*FunctionSignature
}

// FunctionSignature is the global-context view of a function: enough to
// resolve calls without needing the callee's full body.
type FunctionSignature struct {
	Name       string
	ReturnType *Type
	ParamTypes []*Type
}

func NewGlobalContext() *GlobalContext {
	return &GlobalContext{
		Records:   make(map[string]*Record),
		Functions: make(map[string]*FunctionSignature),
	}
}
