package scripting

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/Qfusion/qfusion-sub007/internal/planning"
	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// callMethod calls obj[method](args...). It must run on the loop.
func callMethod(obj *goja.Object, method string, args ...goja.Value) (goja.Value, error) {
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, fmt.Errorf("%s.%s is not a function", objectName(obj), method)
	}
	return fn(obj, args...)
}

// scriptGoal is a Goal implemented by an instance of a script Goal subclass.
type scriptGoal struct {
	planning.BaseGoal
	host *Host
	obj  *goja.Object
}

func (g *scriptGoal) UpdateWeight(current *worldstate.WorldState) {
	var weight float32
	err := g.host.run(func(vm *goja.Runtime) error {
		v, err := callMethod(g.obj, "updateWeight", g.host.wrapWorldState(vm, current.Clone()))
		if err != nil {
			return err
		}
		weight = float32(v.ToFloat())
		return nil
	})
	if err := fatal(err); err != nil {
		g.host.logger.Warn("script goal weight failed", "goal", g.Name(), "error", err)
		weight = 0
	}
	g.SetWeight(weight)
}

func (g *scriptGoal) GetDesiredWorldState(desired *worldstate.WorldState) {
	err := g.host.run(func(vm *goja.Runtime) error {
		_, err := callMethod(g.obj, "getDesiredWorldState", g.host.wrapWorldState(vm, desired))
		return err
	})
	if err := fatal(err); err != nil {
		g.host.logger.Warn("script goal desired world state failed", "goal", g.Name(), "error", err)
	}
}

// scriptAction is an Action implemented by an instance of a script Action
// subclass. Its tryApply returns the result of newNodeForRecord, or null.
type scriptAction struct {
	planning.BaseAction
	host *Host
	obj  *goja.Object
}

func (a *scriptAction) TryApply(current *worldstate.WorldState) *planning.PlannerNode {
	var node *planning.PlannerNode
	err := a.host.run(func(vm *goja.Runtime) error {
		v, err := callMethod(a.obj, "tryApply", a.host.wrapWorldState(vm, current.Clone()))
		if err != nil {
			return err
		}
		node = a.host.unwrapNode("tryApply", v)
		return nil
	})
	if err := fatal(err); err != nil {
		a.host.logger.Warn("script action failed", "action", a.Name(), "error", err)
		return nil
	}
	return node
}

// scriptRecord is an ActionRecord implemented by an instance of a script
// ActionRecord subclass.
type scriptRecord struct {
	planning.BaseActionRecord
	host *Host
	obj  *goja.Object
}

func (r *scriptRecord) Activate()   { r.call("activate") }
func (r *scriptRecord) Deactivate() { r.call("deactivate") }

func (r *scriptRecord) call(method string) {
	err := r.host.run(func(*goja.Runtime) error {
		_, err := callMethod(r.obj, method)
		return err
	})
	if err := fatal(err); err != nil {
		r.host.logger.Warn("script action record failed", "record", r.Name(), "method", method, "error", err)
	}
}

func (r *scriptRecord) CheckStatus(current *worldstate.WorldState) planning.Status {
	var status string
	err := r.host.run(func(vm *goja.Runtime) error {
		v, err := callMethod(r.obj, "checkStatus", r.host.wrapWorldState(vm, current.Clone()))
		if err != nil {
			return err
		}
		status = v.String()
		return nil
	})
	if err := fatal(err); err != nil {
		r.host.logger.Warn("script action record failed", "record", r.Name(), "method", "checkStatus", "error", err)
		return planning.Invalid
	}
	switch status {
	case StatusValid:
		return planning.Valid
	case StatusCompleted:
		return planning.Completed
	case StatusInvalid:
		return planning.Invalid
	}
	r.host.logger.Warn("unknown action record status", "record", r.Name(), "status", status)
	return planning.Invalid
}
