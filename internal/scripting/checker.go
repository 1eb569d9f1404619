package scripting

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dop251/goja"

	"github.com/Qfusion/qfusion-sub007/internal/invariant"
)

// MaxTypesPerBase bounds the script types deriving from one base class.
const MaxTypesPerBase = 24

var ErrTooManyTypes = errors.New("scripting: too many script types")

// BaseType is one of the base classes exported by the qf:ai module.
type BaseType uint8

const (
	BaseGoal BaseType = iota
	BaseAction
	BaseActionRecord
	BaseWeightConfig
	numBaseTypes
)

var baseTypeNames = [numBaseTypes]string{
	BaseGoal:         "Goal",
	BaseAction:       "Action",
	BaseActionRecord: "ActionRecord",
	BaseWeightConfig: "WeightConfig",
}

func (b BaseType) String() string {
	if b < numBaseTypes {
		return baseTypeNames[b]
	}
	return fmt.Sprintf("BaseType(%d)", uint8(b))
}

// TypeID identifies a registered script type for the current load. Zero is
// never a valid id.
type TypeID int32

// Checker validates script values that cross into native code. Types are
// registered as scripts run; Rescan assigns ids and computes, per base
// class, the set of registered types deriving from it.
//
// Checker is only used on the event loop.
type Checker struct {
	sym    *goja.Symbol
	types  []*goja.Object
	protos []*goja.Object
	names  []string
	ids    [numBaseTypes][]TypeID

	onViolation func(*invariant.Violation)
}

func newChecker(onViolation func(*invariant.Violation)) *Checker {
	return &Checker{
		sym:         goja.NewSymbol("qf:ai.typeId"),
		onViolation: onViolation,
	}
}

// Register adds a class to the registered types. It reports false if the
// class was registered already.
func (c *Checker) Register(class *goja.Object) bool {
	for _, t := range c.types {
		if t.SameAs(class) {
			return false
		}
	}
	c.types = append(c.types, class)
	return true
}

// Len is the number of registered types.
func (c *Checker) Len() int { return len(c.types) }

// Rescan stamps every registered type with a fresh id and rebuilds the per
// base type tables. Ids from earlier scans are invalid afterwards.
func (c *Checker) Rescan(vm *goja.Runtime, bases baseClasses) error {
	c.names = c.names[:0]
	c.protos = c.protos[:0]
	for b := range c.ids {
		c.ids[b] = c.ids[b][:0]
	}
	for i, class := range c.types {
		id := TypeID(i + 1)
		name := className(class)
		c.names = append(c.names, name)

		proto, ok := class.Get("prototype").(*goja.Object)
		if !ok || proto == nil {
			return fmt.Errorf("type %s has no prototype", name)
		}
		c.protos = append(c.protos, proto)
		if err := proto.DefineDataPropertySymbol(c.sym, vm.ToValue(id), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
			return fmt.Errorf("type %s: %w", name, err)
		}
		for b := BaseType(0); b < numBaseTypes; b++ {
			if !derives(proto, bases.prototypes[b]) {
				continue
			}
			if len(c.ids[b]) == MaxTypesPerBase {
				return fmt.Errorf("%w: more than %d types derive from %s", ErrTooManyTypes, MaxTypesPerBase, b)
			}
			c.ids[b] = append(c.ids[b], id)
		}
	}
	return nil
}

func derives(proto, base *goja.Object) bool {
	if base == nil {
		return false
	}
	for p := proto; p != nil; p = p.Prototype() {
		if p.SameAs(base) {
			return true
		}
	}
	return false
}

// TypeOf returns the id of the value's class. Instances of a subclass that
// was never registered have no id, even if an ancestor was registered.
func (c *Checker) TypeOf(v goja.Value) (TypeID, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return 0, false
	}
	idv := obj.GetSymbol(c.sym)
	if idv == nil || goja.IsUndefined(idv) {
		return 0, false
	}
	id := TypeID(idv.ToInteger())
	if id <= 0 || int(id) > len(c.protos) || !c.protos[id-1].SameAs(obj.Prototype()) {
		return 0, false
	}
	return id, true
}

// ClassID returns the id of a registered class.
func (c *Checker) ClassID(class *goja.Object) (TypeID, bool) {
	for i, t := range c.types {
		if t.SameAs(class) && i < len(c.protos) {
			return TypeID(i + 1), true
		}
	}
	return 0, false
}

// Is reports whether id derives from base.
func (c *Checker) Is(id TypeID, base BaseType) bool {
	for _, t := range c.ids[base] {
		if t == id {
			return true
		}
	}
	return false
}

// Name returns the class name of a registered type.
func (c *Checker) Name(id TypeID) string {
	if id <= 0 || int(id) > len(c.names) {
		return fmt.Sprintf("TypeID(%d)", id)
	}
	return c.names[id-1]
}

// Unbox returns v as an object of a type deriving from base. Anything else
// is a fatal violation naming site and both types.
func (c *Checker) Unbox(site string, v goja.Value, base BaseType) *goja.Object {
	id, ok := c.TypeOf(v)
	if !ok {
		c.fail(site, describe(v), base.String())
	}
	if !c.Is(id, base) {
		c.fail(site, c.Name(id), base.String())
	}
	return v.(*goja.Object)
}

func (c *Checker) fail(site, actual, expected string) {
	v := invariant.TypeMismatch(site, actual, expected)
	if c.onViolation != nil {
		c.onViolation(v)
	}
	invariant.Fail(v)
}

func className(class *goja.Object) string {
	if n := class.Get("name"); n != nil && !goja.IsUndefined(n) && n.String() != "" {
		return n.String()
	}
	return "<anonymous>"
}

// describe names the dynamic type of a value for error messages.
func describe(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if ctor, ok := obj.Get("constructor").(*goja.Object); ok && ctor != nil {
			return className(ctor)
		}
		return obj.ClassName()
	}
	if t := v.ExportType(); t != nil {
		switch t.Kind() {
		case reflect.String:
			return "string"
		case reflect.Bool:
			return "boolean"
		case reflect.Int64, reflect.Float64:
			return "number"
		}
	}
	return v.String()
}
