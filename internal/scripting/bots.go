package scripting

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
)

// NewGoals instantiates every registered goal factory for b.
func (h *Host) NewGoals(b *bot.Bot) ([]planning.Goal, error) {
	var goals []planning.Goal
	err := h.run(func(vm *goja.Runtime) error {
		summary := h.botSummary(vm, b)
		for _, class := range h.factories.goals {
			v, err := vm.New(class, summary)
			if err != nil {
				return fmt.Errorf("new %s: %w", className(class), err)
			}
			obj := h.checker.Unbox("NewGoals", v, BaseGoal)
			goals = append(goals, &scriptGoal{
				BaseGoal: planning.NewBaseGoal(objectName(obj)),
				host:     h,
				obj:      obj,
			})
		}
		return nil
	})
	return goals, fatal(err)
}

// NewActions instantiates every registered action factory for b.
func (h *Host) NewActions(b *bot.Bot) ([]planning.Action, error) {
	var actions []planning.Action
	err := h.run(func(vm *goja.Runtime) error {
		summary := h.botSummary(vm, b)
		for _, class := range h.factories.actions {
			v, err := vm.New(class, summary)
			if err != nil {
				return fmt.Errorf("new %s: %w", className(class), err)
			}
			obj := h.checker.Unbox("NewActions", v, BaseAction)
			actions = append(actions, &scriptAction{
				BaseAction: planning.NewBaseAction(objectName(obj)),
				host:       h,
				obj:        obj,
			})
		}
		return nil
	})
	return actions, fatal(err)
}

// WeightConfig returns the overrides of the registered weight config
// factory for b, or nil if none is registered.
func (h *Host) WeightConfig(b *bot.Bot) (map[string]float32, error) {
	var out map[string]float32
	err := h.run(func(vm *goja.Runtime) error {
		class := h.factories.weights
		if class == nil {
			return nil
		}
		v, err := vm.New(class, h.botSummary(vm, b))
		if err != nil {
			return fmt.Errorf("new %s: %w", className(class), err)
		}
		obj := h.checker.Unbox("WeightConfig", v, BaseWeightConfig)
		values, err := callMethod(obj, "values")
		if err != nil {
			return err
		}
		vo, ok := values.(*goja.Object)
		if !ok {
			return fmt.Errorf("%s.values() must return an object", className(class))
		}
		out = make(map[string]float32)
		for _, k := range vo.Keys() {
			out[k] = float32(vo.Get(k).ToFloat())
		}
		return nil
	})
	return out, fatal(err)
}

// InstallBot adds the script goals and actions to b and applies the script
// weight config. Unknown weight names are logged and skipped.
func (h *Host) InstallBot(b *bot.Bot) error {
	goals, err := h.NewGoals(b)
	if err != nil {
		return err
	}
	actions, err := h.NewActions(b)
	if err != nil {
		return err
	}
	weights, err := h.WeightConfig(b)
	if err != nil {
		return err
	}
	for _, g := range goals {
		b.AddGoal(g)
	}
	for _, a := range actions {
		b.AddAction(a)
	}
	for name, v := range weights {
		if err := b.WeightConfig().Set(name, v); err != nil {
			h.logger.Warn("script weight config rejected", "bot", b.Name(), "error", err)
		}
	}
	h.logger.Debug("script behaviour installed", "bot", b.Name(), "goals", len(goals), "actions", len(actions))
	return nil
}

func (h *Host) exportBots(vm *goja.Runtime, exports *goja.Object) {
	// bots() returns a summary of every bot.
	_ = exports.Set("bots", func(goja.FunctionCall) goja.Value {
		var items []any
		if h.bots != nil {
			for _, b := range h.bots.All() {
				items = append(items, h.botSummary(vm, b))
			}
		}
		return vm.NewArray(items...)
	})
	// bot(name) returns the summary of one bot, or null.
	_ = exports.Set("bot", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if h.bots != nil {
			for _, b := range h.bots.All() {
				if b.Name() == name {
					return h.botSummary(vm, b)
				}
			}
		}
		return goja.Null()
	})
}

// botSummary describes a bot to scripts, including its selected enemies and
// selected nav entity.
func (h *Host) botSummary(vm *goja.Runtime, b *bot.Bot) *goja.Object {
	o := vm.NewObject()
	_ = o.Set("name", b.Name())
	_ = o.Set("team", b.Team())
	_ = o.Set("entity", b.Entity())
	_ = o.Set("alive", b.IsAlive())
	_ = o.Set("health", b.Health)
	_ = o.Set("armor", b.Armor)
	_ = o.Set("origin", vecToJS(vm, b.Origin))
	_ = o.Set("offensiveness", float64(b.Offensiveness()))
	_, inSquad := b.Squad()
	_ = o.Set("inSquad", inSquad)

	var enemies []any
	selected := b.SelectedEnemies()
	for _, e := range selected.All() {
		eo := vm.NewObject()
		_ = eo.Set("entity", e.Entity)
		_ = eo.Set("name", e.Name)
		_ = eo.Set("origin", vecToJS(vm, e.Origin))
		_ = eo.Set("health", e.Health)
		_ = eo.Set("armor", e.Armor)
		_ = eo.Set("carrier", e.CarriesObjective)
		enemies = append(enemies, eo)
	}
	se := vm.NewObject()
	_ = se.Set("valid", selected.AreValid())
	_ = se.Set("instanceId", selected.InstanceID())
	_ = se.Set("enemies", vm.NewArray(enemies...))
	_ = o.Set("selectedEnemies", se)

	if nav, ok := b.SelectedNavEntity(); ok {
		no := vm.NewObject()
		_ = no.Set("entity", nav.Entity)
		_ = no.Set("name", nav.Name)
		_ = no.Set("origin", vecToJS(vm, nav.Origin))
		_ = no.Set("cost", float64(nav.Cost))
		_ = o.Set("selectedNavEntity", no)
	} else {
		_ = o.Set("selectedNavEntity", goja.Null())
	}
	return o
}
