package scripting

import (
	"fmt"
	"strconv"

	"github.com/dop251/goja"

	"github.com/Qfusion/qfusion-sub007/internal/planning"
)

// Status strings returned by ActionRecord.checkStatus.
const (
	StatusValid     = "valid"
	StatusInvalid   = "invalid"
	StatusCompleted = "completed"
)

const basePrelude = `(function (newNodeForRecord) {
	class Goal {
		constructor(bot) {
			this.bot = bot;
			this.name = new.target.name;
		}
		updateWeight(worldState) { return 0; }
		getDesiredWorldState(worldState) {}
	}
	class Action {
		constructor(bot) {
			this.bot = bot;
			this.name = new.target.name;
		}
		tryApply(worldState) { return null; }
		newNodeForRecord(record, cost, worldState) {
			return newNodeForRecord(record, cost, worldState);
		}
	}
	class ActionRecord {
		constructor(name) {
			this.name = name || new.target.name;
		}
		activate() {}
		deactivate() {}
		checkStatus(worldState) { return "invalid"; }
	}
	class WeightConfig {
		constructor(bot) {
			this.bot = bot;
		}
		values() { return {}; }
	}
	return [Goal, Action, ActionRecord, WeightConfig];
})`

// baseClasses are the constructors and prototypes of the exported base
// classes, indexed by BaseType.
type baseClasses struct {
	constructors [numBaseTypes]*goja.Object
	prototypes   [numBaseTypes]*goja.Object
}

func newBaseClasses(h *Host, vm *goja.Runtime) (baseClasses, error) {
	var bases baseClasses
	v, err := vm.RunString(basePrelude)
	if err != nil {
		return bases, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return bases, fmt.Errorf("base class prelude is not a function")
	}
	arr, err := fn(goja.Undefined(), vm.ToValue(h.jsNewNodeForRecord))
	if err != nil {
		return bases, err
	}
	list := arr.ToObject(vm)
	for b := BaseType(0); b < numBaseTypes; b++ {
		ctor, ok := list.Get(fmt.Sprint(int(b))).(*goja.Object)
		if !ok {
			return bases, fmt.Errorf("base class %s missing", b)
		}
		proto, ok := ctor.Get("prototype").(*goja.Object)
		if !ok {
			return bases, fmt.Errorf("base class %s has no prototype", b)
		}
		bases.constructors[b] = ctor
		bases.prototypes[b] = proto
		h.checker.Register(ctor)
	}
	return bases, nil
}

// factories are the classes scripts registered to build per bot objects.
type factories struct {
	goals   []*goja.Object
	actions []*goja.Object
	weights *goja.Object
}

// validate drops factories whose class does not derive from the expected
// base and reports them.
func (f *factories) validate(c *Checker) error {
	var bad []string
	keep := func(list []*goja.Object, base BaseType) []*goja.Object {
		out := list[:0]
		for _, class := range list {
			if id, ok := c.ClassID(class); ok && c.Is(id, base) {
				out = append(out, class)
				continue
			}
			bad = append(bad, fmt.Sprintf("%s does not extend %s", className(class), base))
		}
		return out
	}
	f.goals = keep(f.goals, BaseGoal)
	f.actions = keep(f.actions, BaseAction)
	if f.weights != nil {
		if w := keep([]*goja.Object{f.weights}, BaseWeightConfig); len(w) == 0 {
			f.weights = nil
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid factories: %v", bad)
	}
	return nil
}

func (h *Host) moduleLoader(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	for b := BaseType(0); b < numBaseTypes; b++ {
		_ = exports.Set(b.String(), h.bases.constructors[b])
	}
	_ = exports.Set("VALID", StatusValid)
	_ = exports.Set("INVALID", StatusInvalid)
	_ = exports.Set("COMPLETED", StatusCompleted)

	// registerType(class) makes instances of class acceptable to native code.
	_ = exports.Set("registerType", func(call goja.FunctionCall) goja.Value {
		h.checker.Register(classArg(vm, "registerType", call))
		return goja.Undefined()
	})
	_ = exports.Set("registerGoal", func(call goja.FunctionCall) goja.Value {
		class := classArg(vm, "registerGoal", call)
		h.checker.Register(class)
		if !contains(h.factories.goals, class) {
			h.factories.goals = append(h.factories.goals, class)
		}
		return goja.Undefined()
	})
	_ = exports.Set("registerAction", func(call goja.FunctionCall) goja.Value {
		class := classArg(vm, "registerAction", call)
		h.checker.Register(class)
		if !contains(h.factories.actions, class) {
			h.factories.actions = append(h.factories.actions, class)
		}
		return goja.Undefined()
	})
	_ = exports.Set("registerWeightConfig", func(call goja.FunctionCall) goja.Value {
		class := classArg(vm, "registerWeightConfig", call)
		h.checker.Register(class)
		h.factories.weights = class
		return goja.Undefined()
	})

	_ = exports.Set("newNodeForRecord", h.jsNewNodeForRecord)
	_ = exports.Set("newWorldState", func(goja.FunctionCall) goja.Value {
		return h.wrapWorldState(vm, newDesiredState())
	})

	h.exportSpots(vm, exports)
	h.exportBots(vm, exports)
}

func classArg(vm *goja.Runtime, site string, call goja.FunctionCall) *goja.Object {
	v := call.Argument(0)
	if _, ok := goja.AssertFunction(v); !ok {
		panic(vm.NewTypeError(fmt.Sprintf("%s requires a class argument", site)))
	}
	return v.(*goja.Object)
}

func contains(list []*goja.Object, class *goja.Object) bool {
	for _, c := range list {
		if c.SameAs(class) {
			return true
		}
	}
	return false
}

// jsNewNodeForRecord(record, cost, worldState) binds a script action record
// into a planner node. A record of any other type is fatal.
func (h *Host) jsNewNodeForRecord(call goja.FunctionCall) goja.Value {
	vm := h.vm
	obj := h.checker.Unbox("newNodeForRecord", call.Argument(0), BaseActionRecord)
	state, ok := h.unwrapWorldState(call.Argument(2))
	if !ok {
		panic(vm.NewTypeError("newNodeForRecord requires a world state argument"))
	}
	record := &scriptRecord{
		BaseActionRecord: planning.NewBaseActionRecord(objectName(obj)),
		host:             h,
		obj:              obj,
	}
	action := planning.NewBaseAction(record.Name())
	node := action.NewNodeForRecord(record, float32(call.Argument(1).ToFloat()), state)
	return h.wrapNode(vm, node)
}

func (h *Host) wrapNode(vm *goja.Runtime, node *planning.PlannerNode) goja.Value {
	if node == nil {
		return goja.Null()
	}
	obj := vm.NewObject()
	_ = obj.Set("_native", node)
	_ = obj.Set("cost", node.Cost())
	_ = obj.Set("hash", strconv.FormatUint(node.WorldStateHash(), 16))
	return obj
}

// unwrapNode returns the planner node a script action returned. Anything but
// a node, null or undefined is fatal.
func (h *Host) unwrapNode(site string, v goja.Value) *planning.PlannerNode {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if nv := obj.Get("_native"); nv != nil {
			if n, ok := nv.Export().(*planning.PlannerNode); ok {
				return n
			}
		}
	}
	h.checker.fail(site, describe(v), "PlannerNode")
	return nil
}

func objectName(obj *goja.Object) string {
	if n := obj.Get("name"); n != nil && !goja.IsUndefined(n) && !goja.IsNull(n) {
		return n.String()
	}
	return describe(obj)
}
