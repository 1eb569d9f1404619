package scripting

import (
	"errors"
	"time"

	"github.com/dop251/goja"

	"github.com/Qfusion/qfusion-sub007/internal/objective"
)

var ErrNoSpotController = errors.New("scripting: no spot controller")

// SpotController applies script spot calls to the objective brain of a
// team.
type SpotController interface {
	AddDefenceSpot(team int, spot objective.DefenceSpot) error
	RemoveDefenceSpot(team, id int) error
	AddOffenceSpot(team int, spot objective.OffenceSpot) error
	RemoveOffenceSpot(team, id int) error
	SetDefenceSpotAlert(team, id int, level float32, timeout time.Duration) error
	EnableDefenceSpotAutoAlert(team, id int) error
	DisableDefenceSpotAutoAlert(team, id int) error
}

// exportSpots installs the spot calls. Each returns false, after a logged
// warning, when the call is rejected.
func (h *Host) exportSpots(vm *goja.Runtime, exports *goja.Object) {
	result := func(site string, err error) goja.Value {
		if err != nil {
			h.logger.Warn("script spot call rejected", "call", site, "error", err)
		}
		return vm.ToValue(err == nil)
	}
	spots := func() (SpotController, error) {
		if h.spots == nil {
			return nil, ErrNoSpotController
		}
		return h.spots, nil
	}

	// addDefenceSpot(team, {id, entity, origin, radius, minDefenders,
	// maxDefenders, autoAlert, regularEnemyAlertScale, carrierEnemyAlertScale})
	_ = exports.Set("addDefenceSpot", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err != nil {
			return result("addDefenceSpot", err)
		}
		def := call.Argument(1).ToObject(vm)
		origin, err := vecFromJS(def.Get("origin"))
		if err != nil {
			return result("addDefenceSpot", err)
		}
		return result("addDefenceSpot", sc.AddDefenceSpot(int(call.Argument(0).ToInteger()), objective.DefenceSpot{
			ID:                     intField(def, "id"),
			Entity:                 intField(def, "entity"),
			Origin:                 origin,
			Radius:                 floatField(def, "radius"),
			MinDefenders:           intField(def, "minDefenders"),
			MaxDefenders:           intField(def, "maxDefenders"),
			UsesAutoAlert:          boolField(def, "autoAlert"),
			RegularEnemyAlertScale: floatField(def, "regularEnemyAlertScale"),
			CarrierEnemyAlertScale: floatField(def, "carrierEnemyAlertScale"),
		}))
	})
	_ = exports.Set("removeDefenceSpot", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err == nil {
			err = sc.RemoveDefenceSpot(int(call.Argument(0).ToInteger()), int(call.Argument(1).ToInteger()))
		}
		return result("removeDefenceSpot", err)
	})
	// addOffenceSpot(team, {id, entity, origin, weight, minAttackers, maxAttackers})
	_ = exports.Set("addOffenceSpot", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err != nil {
			return result("addOffenceSpot", err)
		}
		def := call.Argument(1).ToObject(vm)
		origin, err := vecFromJS(def.Get("origin"))
		if err != nil {
			return result("addOffenceSpot", err)
		}
		return result("addOffenceSpot", sc.AddOffenceSpot(int(call.Argument(0).ToInteger()), objective.OffenceSpot{
			ID:           intField(def, "id"),
			Entity:       intField(def, "entity"),
			Origin:       origin,
			Weight:       floatField(def, "weight"),
			MinAttackers: intField(def, "minAttackers"),
			MaxAttackers: intField(def, "maxAttackers"),
		}))
	})
	_ = exports.Set("removeOffenceSpot", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err == nil {
			err = sc.RemoveOffenceSpot(int(call.Argument(0).ToInteger()), int(call.Argument(1).ToInteger()))
		}
		return result("removeOffenceSpot", err)
	})
	// setDefenceSpotAlert(team, id, level, timeoutMillis)
	_ = exports.Set("setDefenceSpotAlert", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err == nil {
			err = sc.SetDefenceSpotAlert(
				int(call.Argument(0).ToInteger()),
				int(call.Argument(1).ToInteger()),
				float32(call.Argument(2).ToFloat()),
				time.Duration(call.Argument(3).ToInteger())*time.Millisecond,
			)
		}
		return result("setDefenceSpotAlert", err)
	})
	_ = exports.Set("enableDefenceSpotAutoAlert", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err == nil {
			err = sc.EnableDefenceSpotAutoAlert(int(call.Argument(0).ToInteger()), int(call.Argument(1).ToInteger()))
		}
		return result("enableDefenceSpotAutoAlert", err)
	})
	_ = exports.Set("disableDefenceSpotAutoAlert", func(call goja.FunctionCall) goja.Value {
		sc, err := spots()
		if err == nil {
			err = sc.DisableDefenceSpotAutoAlert(int(call.Argument(0).ToInteger()), int(call.Argument(1).ToInteger()))
		}
		return result("disableDefenceSpotAutoAlert", err)
	})
}

func intField(obj *goja.Object, name string) int {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return int(v.ToInteger())
}

func floatField(obj *goja.Object, name string) float32 {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return float32(v.ToFloat())
}

func boolField(obj *goja.Object, name string) bool {
	v := obj.Get(name)
	return v != nil && v.ToBoolean()
}
