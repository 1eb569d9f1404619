package planning

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// GoalDefinition is the file form of an ExprGoal.
//
//	goals:
//	  - name: GrabArmor
//	    weight: "Armor < 50 ? (100 - Armor) / 100.0 * weights.armorBias : 0"
//	    desired:
//	      Armor: {value: 50, op: GE}
type GoalDefinition struct {
	Name    string                `yaml:"name"`
	Weight  string                `yaml:"weight"`
	Desired map[string]DesiredVar `yaml:"desired"`
}

// DesiredVar is one desired variable of a GoalDefinition. Origins are given
// as a three element list.
type DesiredVar struct {
	Value   any     `yaml:"value"`
	Op      string  `yaml:"op"`
	Epsilon float32 `yaml:"epsilon"`
}

type goalFile struct {
	Goals []GoalDefinition `yaml:"goals"`
}

// LoadGoalDefinitions reads a YAML goal file.
func LoadGoalDefinitions(path string) ([]GoalDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGoalDefinitions(raw)
}

// ParseGoalDefinitions decodes YAML goal definitions.
func ParseGoalDefinitions(raw []byte) ([]GoalDefinition, error) {
	var f goalFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("goal definitions: %w", err)
	}
	return f.Goals, nil
}

// ExprGoal is a goal whose weight is an expr-lang expression over the bot's
// world state and weight config. Variables are exposed by name; ignored
// variables hold their zero value and are listed in the ignored map.
type ExprGoal struct {
	BaseGoal
	program *vm.Program
	desired *worldstate.WorldState
	weights func() map[string]float64
	logger  *slog.Logger
}

// NewExprGoal compiles def. weights may be nil.
func NewExprGoal(def GoalDefinition, weights func() map[string]float64, logger *slog.Logger) (*ExprGoal, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("goal definition: missing name")
	}
	if logger == nil {
		logger = slog.Default()
	}
	program, err := expr.Compile(def.Weight, expr.Env(exprEnvTemplate()), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("goal %s: weight: %w", def.Name, err)
	}
	desired := worldstate.New()
	for name, dv := range def.Desired {
		if err := setDesired(desired, name, dv); err != nil {
			return nil, fmt.Errorf("goal %s: %w", def.Name, err)
		}
	}
	return &ExprGoal{
		BaseGoal: NewBaseGoal(def.Name),
		program:  program,
		desired:  desired,
		weights:  weights,
		logger:   logger,
	}, nil
}

func (g *ExprGoal) UpdateWeight(current *worldstate.WorldState) {
	env := exprEnv(current, g.weights)
	out, err := expr.Run(g.program, env)
	if err != nil {
		g.logger.Warn("goal weight expression failed", "goal", g.Name(), "error", err)
		g.SetWeight(0)
		return
	}
	w, _ := out.(float64)
	g.SetWeight(float32(w))
}

func (g *ExprGoal) GetDesiredWorldState(desired *worldstate.WorldState) {
	for _, k := range worldstate.Keys() {
		v := g.desired.Value(k)
		if v.Ignore {
			continue
		}
		_ = desired.SetValue(k, v)
	}
}

func exprEnvTemplate() map[string]any {
	return exprEnv(nil, nil)
}

func exprEnv(ws *worldstate.WorldState, weights func() map[string]float64) map[string]any {
	env := make(map[string]any, len(worldstate.Keys())+2)
	ignored := make(map[string]bool)
	for _, k := range worldstate.Keys() {
		var v worldstate.Value
		if ws != nil {
			v = ws.Value(k)
		} else {
			v = worldstate.Value{Kind: k.Kind, Ignore: true}
		}
		name := k.String()
		if v.Ignore {
			ignored[name] = true
		}
		switch k.Kind {
		case worldstate.KindBool:
			env[name] = v.Bool && !v.Ignore
		case worldstate.KindShort, worldstate.KindUnsigned:
			if v.Ignore {
				env[name] = 0
			} else {
				env[name] = int(v.Int)
			}
		case worldstate.KindFloat:
			if v.Ignore {
				env[name] = 0.0
			} else {
				env[name] = float64(v.Float)
			}
		}
	}
	env["ignored"] = ignored
	w := map[string]float64{}
	if weights != nil {
		if m := weights(); m != nil {
			w = m
		}
	}
	env["weights"] = w
	return env
}

func setDesired(ws *worldstate.WorldState, name string, dv DesiredVar) error {
	k, ok := worldstate.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	val := worldstate.Value{Kind: k.Kind, Epsilon: dv.Epsilon}
	if dv.Op != "" {
		op, err := worldstate.ParseSatisfyOp(dv.Op)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		val.Op = op
	}
	switch k.Kind {
	case worldstate.KindBool:
		b, ok := dv.Value.(bool)
		if !ok {
			return fmt.Errorf("%s: want bool, got %T", name, dv.Value)
		}
		val.Bool = b
	case worldstate.KindShort, worldstate.KindUnsigned:
		n, ok := toFloat(dv.Value)
		if !ok {
			return fmt.Errorf("%s: want number, got %T", name, dv.Value)
		}
		val.Int = int64(n)
	case worldstate.KindFloat:
		n, ok := toFloat(dv.Value)
		if !ok {
			return fmt.Errorf("%s: want number, got %T", name, dv.Value)
		}
		val.Float = float32(n)
	case worldstate.KindOrigin, worldstate.KindOriginLazy:
		if s, ok := dv.Value.(string); ok && s == "absent" && k.Kind == worldstate.KindOriginLazy {
			break
		}
		v, err := toVec(dv.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		val.Origin = v
		val.Present = true
	default:
		return fmt.Errorf("%s: %s variables cannot be desired from a definition", name, k.Kind)
	}
	return ws.SetValue(k, val)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toVec(v any) (geom.Vec3, error) {
	list, ok := v.([]any)
	if !ok || len(list) != 3 {
		return geom.Vec3{}, fmt.Errorf("want [x, y, z], got %v", v)
	}
	var out [3]float32
	for i, c := range list {
		f, ok := toFloat(c)
		if !ok {
			return geom.Vec3{}, fmt.Errorf("want number, got %T", c)
		}
		out[i] = float32(f)
	}
	return geom.V(out[0], out[1], out[2]), nil
}
