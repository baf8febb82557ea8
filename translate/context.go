package translate

import "fmt"

// ClassField is one rendered field of a declared class.
type ClassField struct {
	Name        string
	Type        string
	Optional    bool
	Description string
}

// ClassType is one declared class in the target IR.
type ClassType struct {
	Name   string
	Fields []ClassField
}

// Context accumulates every declaration produced by one translation pass.
// All declared names (classes, enums, aliases) share one namespace and are
// unique within the context; each order slice records first-encounter
// order, which the renderer preserves verbatim.
type Context struct {
	classes    map[string]*ClassType
	classOrder []string

	enums     map[string][]string
	enumOrder []string

	aliases    map[string]string
	aliasOrder []string

	declared map[string]bool

	// counter disambiguates colliding names. It is monotonic for the
	// lifetime of the context and never reset, so repeated collisions
	// stay deterministic.
	counter int
}

// NewContext creates an empty translation context.
func NewContext() *Context {
	return &Context{
		classes:  make(map[string]*ClassType),
		enums:    make(map[string][]string),
		aliases:  make(map[string]string),
		declared: make(map[string]bool),
		counter:  2,
	}
}

// uniqueName returns base if unclaimed, otherwise base with the next
// counter value appended until a free name is found.
func (c *Context) uniqueName(base string) string {
	name := base
	for c.declared[name] {
		name = fmt.Sprintf("%s%d", base, c.counter)
		c.counter++
	}
	c.declared[name] = true
	return name
}

// declareClass reserves a class slot so first-encounter order is recorded
// before the class's own fields (and any nested classes) are translated.
func (c *Context) declareClass(name string) *ClassType {
	class := &ClassType{Name: name}
	c.classes[name] = class
	c.classOrder = append(c.classOrder, name)
	return class
}

func (c *Context) declareEnum(name string, values []string) {
	c.enums[name] = values
	c.enumOrder = append(c.enumOrder, name)
}

func (c *Context) declareAlias(name, expr string) {
	c.aliases[name] = expr
	c.aliasOrder = append(c.aliasOrder, name)
}

// IsClass reports whether name was declared as a class in this context.
func (c *Context) IsClass(name string) bool {
	_, ok := c.classes[name]
	return ok
}

// Class returns a declared class by name.
func (c *Context) Class(name string) (*ClassType, bool) {
	class, ok := c.classes[name]
	return class, ok
}

// ClassNames returns declared class names in first-encounter order.
func (c *Context) ClassNames() []string {
	return c.classOrder
}

// EnumNames returns declared enum names in first-encounter order.
func (c *Context) EnumNames() []string {
	return c.enumOrder
}

// AliasNames returns declared alias names in first-encounter order.
func (c *Context) AliasNames() []string {
	return c.aliasOrder
}

// Empty reports whether the context holds no declarations at all.
func (c *Context) Empty() bool {
	return len(c.classOrder) == 0 && len(c.enumOrder) == 0 && len(c.aliasOrder) == 0
}
