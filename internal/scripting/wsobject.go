package scripting

import (
	"fmt"
	"strconv"

	"github.com/dop251/goja"

	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

func newDesiredState() *worldstate.WorldState { return worldstate.New() }

// wrapWorldState exposes ws to scripts. Variables are addressed by name:
//
//	ws.get("Health")            // undefined when ignored
//	ws.set("HasThreat", false)  // also clears the ignore flag
//	ws.setSatisfyOp("Health", "GE")
//	ws.setFact("hasFlag", true) // script defined facts
func (h *Host) wrapWorldState(vm *goja.Runtime, ws *worldstate.WorldState) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("_native", ws)

	key := func(call goja.FunctionCall) worldstate.Key {
		name := call.Argument(0).String()
		k, ok := worldstate.Lookup(name)
		if !ok {
			panic(vm.NewTypeError(fmt.Sprintf("unknown world state variable %q", name)))
		}
		return k
	}

	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		return valueToJS(vm, ws.Value(key(call)))
	})
	_ = obj.Set("set", func(call goja.FunctionCall) goja.Value {
		k := key(call)
		v, err := valueFromJS(ws.Value(k), call.Argument(1))
		if err != nil {
			panic(vm.NewTypeError(fmt.Sprintf("%s: %v", k, err)))
		}
		if err := ws.SetValue(k, v); err != nil {
			panic(vm.NewGoError(err))
		}
		return obj
	})
	_ = obj.Set("isIgnored", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(ws.Value(key(call)).Ignore)
	})
	_ = obj.Set("setIgnore", func(call goja.FunctionCall) goja.Value {
		k := key(call)
		v := ws.Value(k)
		v.Ignore = call.Argument(1).ToBoolean()
		_ = ws.SetValue(k, v)
		return obj
	})
	_ = obj.Set("setIgnoreAll", func(call goja.FunctionCall) goja.Value {
		ws.SetIgnoreAll(call.Argument(0).ToBoolean())
		return obj
	})
	_ = obj.Set("setSatisfyOp", func(call goja.FunctionCall) goja.Value {
		k := key(call)
		op, err := worldstate.ParseSatisfyOp(call.Argument(1).String())
		if err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		v := ws.Value(k)
		v.Op = op
		_ = ws.SetValue(k, v)
		return obj
	})
	_ = obj.Set("fact", func(call goja.FunctionCall) goja.Value {
		f, _ := ws.Attachment().(Facts)
		v, ok := f[call.Argument(0).String()]
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("setFact", func(call goja.FunctionCall) goja.Value {
		v := call.Argument(1)
		f := factsOf(ws)
		if b, ok := v.Export().(bool); ok {
			f[call.Argument(0).String()] = boolFloat(b)
		} else {
			f[call.Argument(0).String()] = v.ToFloat()
		}
		return obj
	})
	_ = obj.Set("isSatisfiedBy", func(call goja.FunctionCall) goja.Value {
		current, ok := h.unwrapWorldState(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("isSatisfiedBy requires a world state argument"))
		}
		return vm.ToValue(ws.IsSatisfiedBy(current))
	})
	_ = obj.Set("hash", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(strconv.FormatUint(ws.Hash(), 16))
	})
	_ = obj.Set("clone", func(goja.FunctionCall) goja.Value {
		return h.wrapWorldState(vm, ws.Clone())
	})
	_ = obj.Set("toString", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(ws.String())
	})
	return obj
}

func (h *Host) unwrapWorldState(v goja.Value) (*worldstate.WorldState, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil, false
	}
	nv := obj.Get("_native")
	if nv == nil {
		return nil, false
	}
	ws, ok := nv.Export().(*worldstate.WorldState)
	return ws, ok && ws != nil
}

func valueToJS(vm *goja.Runtime, v worldstate.Value) goja.Value {
	if v.Ignore {
		return goja.Undefined()
	}
	switch v.Kind {
	case worldstate.KindBool:
		return vm.ToValue(v.Bool)
	case worldstate.KindShort, worldstate.KindUnsigned:
		return vm.ToValue(v.Int)
	case worldstate.KindFloat:
		return vm.ToValue(float64(v.Float))
	case worldstate.KindOrigin:
		return vecToJS(vm, v.Origin)
	case worldstate.KindOriginLazy:
		if !v.Present {
			return goja.Null()
		}
		return vecToJS(vm, v.Origin)
	case worldstate.KindDualOriginLazy:
		if !v.Present {
			return goja.Null()
		}
		return vm.NewArray(vecToJS(vm, v.Origin), vecToJS(vm, v.Origin2))
	}
	return goja.Undefined()
}

// valueFromJS returns cur with its value replaced by jv and its ignore flag
// cleared. null makes a lazy variable absent.
func valueFromJS(cur worldstate.Value, jv goja.Value) (worldstate.Value, error) {
	cur.Ignore = false
	switch cur.Kind {
	case worldstate.KindBool:
		cur.Bool = jv.ToBoolean()
	case worldstate.KindShort, worldstate.KindUnsigned:
		cur.Int = jv.ToInteger()
	case worldstate.KindFloat:
		cur.Float = float32(jv.ToFloat())
	case worldstate.KindOrigin:
		p, err := vecFromJS(jv)
		if err != nil {
			return cur, err
		}
		cur.Origin = p
	case worldstate.KindOriginLazy:
		if goja.IsNull(jv) {
			cur.Present = false
			break
		}
		p, err := vecFromJS(jv)
		if err != nil {
			return cur, err
		}
		cur.Origin, cur.Present = p, true
	case worldstate.KindDualOriginLazy:
		if goja.IsNull(jv) {
			cur.Present = false
			break
		}
		pair, ok := jv.(*goja.Object)
		if !ok || pair.ClassName() != "Array" {
			return cur, fmt.Errorf("expected a pair of points")
		}
		a, err := vecFromJS(pair.Get("0"))
		if err != nil {
			return cur, err
		}
		b, err := vecFromJS(pair.Get("1"))
		if err != nil {
			return cur, err
		}
		cur.Origin, cur.Origin2, cur.Present = a, b, true
	}
	return cur, nil
}

func vecToJS(vm *goja.Runtime, p geom.Vec3) goja.Value {
	return vm.NewArray(float64(p.X), float64(p.Y), float64(p.Z))
}

// vecFromJS accepts [x, y, z] or [x, y].
func vecFromJS(v goja.Value) (geom.Vec3, error) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil || obj.ClassName() != "Array" {
		return geom.Vec3{}, fmt.Errorf("expected a point [x, y, z], got %s", describe(v))
	}
	n := obj.Get("length").ToInteger()
	if n < 2 || n > 3 {
		return geom.Vec3{}, fmt.Errorf("expected 2 or 3 coordinates, got %d", n)
	}
	var c [3]float32
	for i := range n {
		c[i] = float32(obj.Get(strconv.FormatInt(i, 10)).ToFloat())
	}
	return geom.V(c[0], c[1], c[2]), nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
